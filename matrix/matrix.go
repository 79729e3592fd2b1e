// Copyright 2025 go-splatt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package matrix provides the dense factor/output matrix type the
// kernels read and write, plus the GEMM backend TTMc's root variant
// uses to batch its outer-product expansion into a single dense
// multiply per root slice.
package matrix

import "github.com/go-splatt/splatt"

// Dense is a caller-owned, row-major I x J dense matrix: a factor
// matrix, or an output slab flattened to two dimensions.
type Dense[T splatt.Real] struct {
	I, J int
	Data []T
}

// New allocates a zeroed I x J Dense.
func New[T splatt.Real](i, j int) *Dense[T] {
	return &Dense[T]{I: i, J: j, Data: make([]T, i*j)}
}

// Row returns row r as a slice view over Data (not a copy).
func (d *Dense[T]) Row(r int) []T {
	return d.Data[r*d.J : (r+1)*d.J]
}

// At returns element (r, c).
func (d *Dense[T]) At(r, c int) T {
	return d.Data[r*d.J+c]
}

// Set assigns element (r, c).
func (d *Dense[T]) Set(r, c int, v T) {
	d.Data[r*d.J+c] = v
}

// Zero clears every element in place, matching the kernel contract that
// an output slab is zeroed on entry.
func (d *Dense[T]) Zero() {
	for i := range d.Data {
		d.Data[i] = 0
	}
}

// AddRow accumulates vec into row r elementwise. len(vec) must equal d.J.
func (d *Dense[T]) AddRow(r int, vec []T) {
	row := d.Row(r)
	for i, v := range vec {
		row[i] += v
	}
}
