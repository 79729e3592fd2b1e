package ttmc

import (
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/matrix"
)

// runRootRep3 is the specialized root variant for a 3-mode
// representation rooted at the target mode: it batches every fiber
// under a slice into two matrices (the gathered middle-level factor
// rows, and the leaf-nonzero reductions) and multiplies them with one
// matrix.Backend call instead of combining one fiber at a time. This
// is the concrete realization of the specification's "single dense
// GEMM (when a BLAS is available), or a sum of outer products
// otherwise" root variant; traverse.go's general descend/belowSum path
// computes the same result fiber-by-fiber and remains correct for it,
// but this path is what actually exercises matrix.GorgoniaBackend.
func (w *Workspace[T]) runRootRep3(rep *csf.CSF[T], mode int, Y *matrix.Dense[T]) {
	internalMode := rep.DimPerm[1]
	leafMode := rep.DimPerm[2]
	rmid := w.Matrices[internalMode].J
	rleaf := w.Matrices[leafMode].J
	backend := matrix.Select[T](w.Options.GEMMBackend)
	lockFree := rep.NTiles() == 1

	units := unitsOf(rep)
	w.pool.ParallelForIndexed(len(units), func(worker, start, end int) {
		region := w.scratch.For(worker)
		for _, u := range units[start:end] {
			view := u.view
			rootIdx := view.FIDs[0].At(u.root)
			fStart, fEnd := view.FPtr[0][u.root], view.FPtr[0][u.root+1]
			nFibers := fEnd - fStart
			if nFibers == 0 {
				continue
			}

			// a is fully overwritten below (copy into every row), so only
			// b's accumulator needs zeroing before use.
			a := &matrix.Dense[T]{I: nFibers, J: rmid, Data: region.Oprod[:nFibers*rmid]}
			b := &matrix.Dense[T]{I: nFibers, J: rleaf, Data: region.Fiber[:nFibers*rleaf]}
			b.Zero()
			for fi := 0; fi < nFibers; fi++ {
				fiber := fStart + fi
				midIdx := view.FIDs[1].At(fiber)
				copy(a.Row(fi), w.Matrices[internalMode].Row(midIdx))

				accum := b.Row(fi)
				lStart, lEnd := view.FPtr[1][fiber], view.FPtr[1][fiber+1]
				for leaf := lStart; leaf < lEnd; leaf++ {
					ind := view.FIDs[2].At(leaf)
					v := view.Vals[leaf]
					leafRow := w.Matrices[leafMode].Row(ind)
					for i, r := range leafRow {
						accum[i] += v * r
					}
				}
			}

			out := &matrix.Dense[T]{I: rmid, J: rleaf, Data: region.Plane[:rmid*rleaf]}
			out.Zero()
			if err := backend.MulAT(a, b, out); err != nil {
				out.Zero()
				_ = (matrix.NaiveBackend[T]{}).MulAT(a, b, out)
			}

			if lockFree {
				Y.AddRow(rootIdx, out.Data)
				continue
			}
			unlock := w.locks.Lock(rootIdx)
			Y.AddRow(rootIdx, out.Data)
			unlock()
		}
	})
}
