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

// Package csf implements the Compressed Sparse Fiber store: a tree that
// groups a COO tensor's nonzeros by shared index prefixes along a chosen
// mode permutation, optionally tiled into rectangular sub-boxes of the
// index space for conflict-free parallel traversal.
//
// A CSF is immutable for the duration of any kernel call that consumes
// it, save for the leaf Vals array, which CCD mutates in place as the
// running residual.
package csf

import "github.com/go-splatt/splatt"

// Tile is one rectangular sub-box of a CSF's index space: a tree whose
// root-to-leaf paths encode the nonzeros that fall inside the box.
//
// For every level L < NModes-1, FPtr[L] is the parent-to-child range
// array (length NFibs[L]+1, strictly monotone non-decreasing).
// FIDs[L] holds the child index at level L; a nil FIDs[L] denotes the
// identity map i -> i (the level is fully dense in this tile). The leaf
// level (NModes-1) additionally holds Vals, the tile's nonzero values in
// the same order as its FIDs[NModes-1] entries.
//
// A tile with zero nonzeros is legal: every NFibs entry is zero, every
// FPtr/FIDs/Vals slice is nil. Kernels must early-return on such a tile.
type Tile[T splatt.Real] struct {
	NFibs []int
	FPtr  [][]int
	FIDs  [][]int
	Vals  []T
}

// NNZ returns the number of nonzeros stored in this tile.
func (t *Tile[T]) NNZ() int {
	return len(t.Vals)
}

// Empty reports whether the tile holds no nonzeros (a legal, zero-volume
// tile that kernels must skip).
func (t *Tile[T]) Empty() bool {
	return len(t.Vals) == 0
}

// CSF is one permuted, possibly tiled representation of a tensor: the
// tree built from a COO by csf.Build.
type CSF[T splatt.Real] struct {
	NModes int
	Dims   []int

	// DimPerm is a bijection on [0, NModes): DimPerm[level] is the
	// original tensor mode stored at that tree level. Level 0 is the
	// root, level NModes-1 is the leaf.
	DimPerm []int

	// modeDepth caches the inverse of DimPerm: modeDepth[mode] = level.
	modeDepth []int

	// TileDims[level] is the number of partitions the tiling policy cut
	// that level's mode into (1 if that level was not tiled).
	TileDims []int

	Tiles []*Tile[T]
}

// NTiles returns the number of tiles in this representation.
func (c *CSF[T]) NTiles() int {
	return len(c.Tiles)
}

// NNZ returns the total nonzero count across all tiles, which must equal
// the originating COO's nnz (invariant 5).
func (c *CSF[T]) NNZ() int {
	n := 0
	for _, t := range c.Tiles {
		n += t.NNZ()
	}
	return n
}

// Close releases any resources the CSF holds. Go's garbage collector
// reclaims the backing slices once a CSF is unreferenced, so Close is a
// no-op; it is kept for API symmetry with the build-time csf_free
// counterpart named in the specification, and so a caller written
// against the original defer-free idiom still compiles.
func (c *CSF[T]) Close() {}

// Bundle holds every CSF representation a single csf.Build call
// produced: one for CSF_ONEMODE, two for CSF_TWOMODE, NModes for
// CSF_ALLMODE.
type Bundle[T splatt.Real] struct {
	Alloc splatt.CSFAlloc
	Reps  []*CSF[T]
}

// Close releases every representation in the bundle.
func (b *Bundle[T]) Close() {
	for _, rep := range b.Reps {
		rep.Close()
	}
}

// ForMode returns the representation a TTMc call targeting the given
// output mode should use, per the
// selection rule in the specification: CSF_ALLMODE always uses the
// representation rooted at mode; CSF_TWOMODE uses the representation
// rooted at mode's current leaf when mode is the original leaf mode,
// and the first representation otherwise; CSF_ONEMODE has only one
// representation to choose from.
func (b *Bundle[T]) ForMode(mode int) *CSF[T] {
	switch b.Alloc {
	case splatt.AllMode:
		for _, rep := range b.Reps {
			if rep.DimPerm[0] == mode {
				return rep
			}
		}
		return b.Reps[0]
	case splatt.TwoMode:
		for _, rep := range b.Reps {
			if rep.DimPerm[0] == mode {
				return rep
			}
		}
		return b.Reps[0]
	default:
		return b.Reps[0]
	}
}
