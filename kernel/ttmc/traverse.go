package ttmc

import (
	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/internal/scratch"
	"github.com/go-splatt/splatt/matrix"
)

// rootUnit identifies one root-level fiber of one tile, the unit of
// work distributed across the worker pool.
type rootUnit[E splatt.Real] struct {
	tile *csf.Tile[E]
	view csf.TileView[E]
	root int
}

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

// kronInto writes the flattened outer product a ⊗ b into dst[:len(a)*len(b)]
// and returns that prefix. dst must have at least len(a)*len(b) capacity.
func kronInto[T splatt.Real](dst, a, b []T) []T {
	out := dst[:len(a)*len(b)]
	for i, av := range a {
		row := out[i*len(b) : i*len(b)+len(b)]
		if av == 0 {
			for j := range row {
				row[j] = 0
			}
			continue
		}
		for j, bv := range b {
			row[j] = av * bv
		}
	}
	return out
}

// kron returns a freshly allocated flattened outer product a ⊗ b, for
// call sites (belowSum's own recursion) not yet wired to a scratch
// arena.
func kron[T splatt.Real](a, b []T) []T {
	return kronInto(make([]T, len(a)*len(b)), a, b)
}

// scaleInto writes a scaled by v into dst[:len(a)] and returns that
// prefix. dst must have at least len(a) capacity.
func scaleInto[T splatt.Real](dst, a []T, v T) []T {
	out := dst[:len(a)]
	for i, av := range a {
		out[i] = av * v
	}
	return out
}

// scale returns a freshly allocated copy of a scaled by v.
func scale[T splatt.Real](a []T, v T) []T {
	return scaleInto(make([]T, len(a)), a, v)
}

// addInto adds src into dst elementwise, allocating dst if nil.
func addInto[T splatt.Real](dst, src []T) []T {
	if dst == nil {
		dst = make([]T, len(src))
	}
	for i, v := range src {
		dst[i] += v
	}
	return dst
}

// run performs the general N-mode TTMc traversal: an explicit
// root-to-leaf descent that multiplies in every non-target mode's
// factor row (above target) and reduces every non-target descendant
// (below target) bottom-up, scatter-adding the combined Kronecker
// vector into Y at the coordinate target takes at its own tree level.
// This is the correctness backbone used whenever the specialized
// batched root variant (root.go) does not apply, and the only path for
// N>3 modes.
func (w *Workspace[T]) run(rep *csf.CSF[T], mode int, Y *matrix.Dense[T]) {
	depth := rep.Depth(mode)
	lockFree := depth == 0 && rep.NTiles() == 1
	units := unitsOf(rep)

	w.pool.ParallelForIndexed(len(units), func(worker, start, end int) {
		region := w.scratch.For(worker)
		for _, u := range units[start:end] {
			w.descend(region, u.view, rep, mode, 0, u.root, []T{1}, Y, lockFree)
		}
	})
}

// aboveSlot returns the arena slot descend uses to hold the running
// above-product at level: region.Oprod split into w.NModes fixed-size
// slices, one per tree level, each big enough for any Kronecker chain
// a subset of the factor rows can produce (see maxKronLen). Slots are
// only ever read by a node's children after being written once by that
// node, so two different levels' slots never alias a value still being
// read, and the same slot is safely reused across sibling subtrees
// since traversal within one worker is sequential.
func (w *Workspace[T]) aboveSlot(region scratch.Region[T], level int) []T {
	return region.Oprod[level*w.maxKron : (level+1)*w.maxKron]
}

// descend walks from (level, fiberIdx) toward target's level,
// multiplying ancestor factor rows into above as it goes. At target's
// level it reduces everything below into one vector and scatter-adds
// kron(above, below) into Y.
func (w *Workspace[T]) descend(region scratch.Region[T], view csf.TileView[T], rep *csf.CSF[T], mode, level, fiberIdx int, above []T, Y *matrix.Dense[T], lockFree bool) {
	idx := view.FIDs[level].At(fiberIdx)

	if level == rep.Depth(mode) {
		if level == rep.NModes-1 {
			vec := scaleInto(region.Plane, above, view.Vals[fiberIdx])
			w.scatterAdd(Y, idx, vec, lockFree)
			return
		}
		var below []T
		start, end := view.FPtr[level][fiberIdx], view.FPtr[level][fiberIdx+1]
		for child := start; child < end; child++ {
			below = addInto(below, w.belowSum(view, rep, level+1, child))
		}
		if below == nil {
			return
		}
		vec := kronInto(region.Plane, above, below)
		w.scatterAdd(Y, idx, vec, lockFree)
		return
	}

	origMode := rep.DimPerm[level]
	row := w.Matrices[origMode].Row(idx)
	nextAbove := kronInto(w.aboveSlot(region, level+1), above, row)

	start, end := view.FPtr[level][fiberIdx], view.FPtr[level][fiberIdx+1]
	for child := start; child < end; child++ {
		w.descend(region, view, rep, mode, level+1, child, nextAbove, Y, lockFree)
	}
}

// belowSum computes the contribution of the subtree rooted at
// (level, idx), strictly below target's level: a leaf contributes
// val * ownRow; an internal node contributes ownRow ⊗ (sum of its
// children's contributions).
func (w *Workspace[T]) belowSum(view csf.TileView[T], rep *csf.CSF[T], level, idx int) []T {
	coord := view.FIDs[level].At(idx)
	origMode := rep.DimPerm[level]

	if level == rep.NModes-1 {
		return scale(w.Matrices[origMode].Row(coord), view.Vals[idx])
	}

	var childSum []T
	start, end := view.FPtr[level][idx], view.FPtr[level][idx+1]
	for child := start; child < end; child++ {
		childSum = addInto(childSum, w.belowSum(view, rep, level+1, child))
	}
	if childSum == nil {
		return nil
	}
	return kron(w.Matrices[origMode].Row(coord), childSum)
}

// scatterAdd accumulates vec into Y's row idx, under a striped lock
// unless lockFree (single-writer per row, guaranteed by the caller).
func (w *Workspace[T]) scatterAdd(Y *matrix.Dense[T], idx int, vec []T, lockFree bool) {
	if vec == nil {
		return
	}
	if lockFree {
		Y.AddRow(idx, vec)
		return
	}
	unlock := w.locks.Lock(idx)
	Y.AddRow(idx, vec)
	unlock()
}
