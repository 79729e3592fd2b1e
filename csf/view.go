package csf

import "github.com/go-splatt/splatt"

// Either models the "NULL-as-identity" design note: a fid array is
// either a Sparse explicit lookup table or a Dense identity map i -> i.
// A tight per-level loop calls At once per element and gets either
// behavior without a branch of its own at the call site choosing which
// case applies; the nil check that picks the case lives inside At.
type Either struct {
	ids []int // nil when Dense
	dim int   // identity domain size, only meaningful when ids == nil
}

// NewEither wraps a tile level's fid array: ids, or nil for the
// identity map over [0, dim).
func NewEither(ids []int, dim int) Either {
	return Either{ids: ids, dim: dim}
}

// At returns ids[i] for a Sparse view, or i itself for a Dense
// (identity) view.
func (e Either) At(i int) int {
	if e.ids == nil {
		return i
	}
	return e.ids[i]
}

// Dense reports whether this view is the identity map.
func (e Either) Dense() bool {
	return e.ids == nil
}

// TileView is the read-only bundle of one tile's per-level arrays,
// constructed once per tile and handed to a kernel's inner loops in
// place of the macro-expanded field "grabs" the original took on each
// tile. Its fields are slice-typed borrows over the underlying Tile;
// no aliasing or pointer arithmetic is exposed.
type TileView[T splatt.Real] struct {
	NFibs []int
	FPtr  [][]int
	FIDs  []Either
	Vals  []T
}

// NewTileView builds a TileView over tile, using dims to resolve each
// level's identity-map domain size (dims[dimPerm[level]]).
func NewTileView[T splatt.Real](tile *Tile[T], dims []int, dimPerm []int) TileView[T] {
	nmodes := len(tile.NFibs)
	fids := make([]Either, nmodes)
	for l := 0; l < nmodes; l++ {
		fids[l] = NewEither(tile.FIDs[l], dims[dimPerm[l]])
	}
	return TileView[T]{
		NFibs: tile.NFibs,
		FPtr:  tile.FPtr,
		FIDs:  fids,
		Vals:  tile.Vals,
	}
}
