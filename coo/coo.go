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

// Package coo provides the coordinate tensor, the canonical input form a
// CSF is built from: a flat value column plus one index column per mode.
package coo

import (
	"github.com/go-splatt/splatt"
	"github.com/pkg/errors"
)

// Tensor is a coordinate-list (COO) representation of an N-dimensional
// sparse tensor: NModes index columns of length NNZ, plus one value
// column of the same length. Ind[m][k] is the mode-m index of nonzero k;
// Vals[k] is its value.
//
// A Tensor is immutable for the duration of any kernel call that
// consumes it; it owns its Ind and Vals slices exclusively.
type Tensor[T splatt.Real] struct {
	NModes int
	Dims   []int
	Ind    [][]int
	Vals   []T
}

// NNZ returns the number of nonzero entries.
func (t *Tensor[T]) NNZ() int {
	return len(t.Vals)
}

// New builds a Tensor from already-parsed coordinate columns and
// validates it against the invariants in the specification: every
// mode's index column must have length NNZ, and every index must lie in
// [0, dims[m]).
//
// New never mutates ind or vals; the returned Tensor takes ownership of
// them (New does not copy).
func New[T splatt.Real](dims []int, ind [][]int, vals []T) (*Tensor[T], error) {
	nmodes := len(dims)
	if nmodes == 0 {
		return nil, splatt.Errorf(splatt.InvalidInput, "coo: nmodes must be positive")
	}
	if len(vals) == 0 {
		return nil, splatt.Errorf(splatt.InvalidInput, "coo: nnz must be positive")
	}
	if len(ind) != nmodes {
		return nil, splatt.Errorf(splatt.InvalidInput, "coo: len(ind)=%d, want nmodes=%d", len(ind), nmodes)
	}
	nnz := len(vals)
	for m, col := range ind {
		if len(col) != nnz {
			return nil, splatt.Errorf(splatt.InvalidInput, "coo: mode %d index column has length %d, want nnz=%d", m, len(col), nnz)
		}
		for k, idx := range col {
			if idx < 0 || idx >= dims[m] {
				return nil, splatt.NewError(splatt.InvalidInput,
					errors.Errorf("coo: nonzero %d mode %d index %d out of range [0,%d)", k, m, idx, dims[m]))
			}
		}
	}
	return &Tensor[T]{
		NModes: nmodes,
		Dims:   append([]int(nil), dims...),
		Ind:    ind,
		Vals:   vals,
	}, nil
}

// At returns the value of the nonzero whose per-mode indices are coord,
// or (0, false) if no such nonzero exists. This is O(nnz); it exists for
// tests and small-tensor debugging, not for use inside a kernel's hot
// path.
func (t *Tensor[T]) At(coord []int) (T, bool) {
	var zero T
	if len(coord) != t.NModes {
		return zero, false
	}
outer:
	for k := range t.Vals {
		for m := 0; m < t.NModes; m++ {
			if t.Ind[m][k] != coord[m] {
				continue outer
			}
		}
		return t.Vals[k], true
	}
	return zero, false
}

// Coord returns the per-mode indices of nonzero k, as a freshly
// allocated slice.
func (t *Tensor[T]) Coord(k int) []int {
	c := make([]int, t.NModes)
	for m := 0; m < t.NModes; m++ {
		c[m] = t.Ind[m][k]
	}
	return c
}
