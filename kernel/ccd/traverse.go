package ccd

import (
	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/csf"
)

// rootUnit identifies one root-level fiber of one tile: the
// granularity at which CCD's add/subtract/update passes split work
// across workers.
type rootUnit[E splatt.Real] struct {
	tile *csf.Tile[E]
	view csf.TileView[E]
	root int
}

// unitsOf flattens every non-empty tile's root fibers, in ascending
// (tile, root) order, so that splitting the result into contiguous
// worker ranges reproduces the deterministic traversal order the
// specification requires.
func unitsOf[E splatt.Real](rep *csf.CSF[E]) []rootUnit[E] {
	var out []rootUnit[E]
	for _, tile := range rep.Tiles {
		if tile.Empty() {
			continue
		}
		view := csf.NewTileView(tile, rep.Dims, rep.DimPerm)
		for root := 0; root < tile.NFibs[0]; root++ {
			out = append(out, rootUnit[E]{tile: tile, view: view, root: root})
		}
	}
	return out
}

// walk descends from u's root fiber to every leaf below it, invoking
// visit once per leaf with the leaf's coordinate (in original mode
// order) and its index into u.view.Vals (aliasing u.tile.Vals, so
// mutating it through visit mutates the residual in place).
func (u rootUnit[E]) walk(dimPerm []int, visit func(coord [3]int, leafIdx int)) {
	view := u.view
	i0 := view.FIDs[0].At(u.root)
	for fiber := view.FPtr[0][u.root]; fiber < view.FPtr[0][u.root+1]; fiber++ {
		i1 := view.FIDs[1].At(fiber)
		for leaf := view.FPtr[1][fiber]; leaf < view.FPtr[1][fiber+1]; leaf++ {
			i2 := view.FIDs[2].At(leaf)
			var coord [3]int
			coord[dimPerm[0]] = i0
			coord[dimPerm[1]] = i1
			coord[dimPerm[2]] = i2
			visit(coord, leaf)
		}
	}
}
