package ccd

import (
	"sync"

	"github.com/go-splatt/splatt/internal/scratch"
)

// InitResidual sets every leaf value to X - the model's current
// prediction at that coordinate, per property P2. It must be called
// once, before the first epoch; rep's leaf values are assumed to still
// hold the raw nonzero values csf.Build copied from the training COO.
func (w *Workspace[T]) InitResidual() {
	units := unitsOf(w.Rep)
	w.pool.ParallelFor(len(units), func(start, end int) {
		for _, u := range units[start:end] {
			u.walk(w.Rep.DimPerm, func(coord [3]int, leafIdx int) {
				var pred T
				for f := 0; f < w.Rank; f++ {
					pred += w.Factors[0].At(coord[0], f) * w.Factors[1].At(coord[1], f) * w.Factors[2].At(coord[2], f)
				}
				u.tile.Vals[leafIdx] -= pred
			})
		}
	})
}

// addColumnBack implements step 2a: r += A[:,f] ∘ B[:,f] ∘ C[:,f],
// returning Σr² after the update.
func (w *Workspace[T]) addColumnBack(units []rootUnit[T], f int) T {
	return w.applyColumnDelta(units, f, 1)
}

// subtractNewColumn implements step 2c: r -= A[:,f] ∘ B[:,f] ∘ C[:,f]
// (using the just-updated factor columns), returning Σr².
func (w *Workspace[T]) subtractNewColumn(units []rootUnit[T], f int) T {
	return w.applyColumnDelta(units, f, -1)
}

func (w *Workspace[T]) applyColumnDelta(units []rootUnit[T], f int, sign T) T {
	var mu sync.Mutex
	var total T

	w.pool.ParallelFor(len(units), func(start, end int) {
		var local T
		for _, u := range units[start:end] {
			u.walk(w.Rep.DimPerm, func(coord [3]int, leafIdx int) {
				delta := sign * w.Factors[0].At(coord[0], f) * w.Factors[1].At(coord[1], f) * w.Factors[2].At(coord[2], f)
				v := u.tile.Vals[leafIdx] + delta
				u.tile.Vals[leafIdx] = v
				local += v * v
			})
		}
		mu.Lock()
		total += local
		mu.Unlock()
	})
	return total
}

// otherFactorProduct returns s_ijk: the product of the factor entries
// at column f for the two modes other than mode.
func (w *Workspace[T]) otherFactorProduct(coord [3]int, mode, f int) T {
	s := T(1)
	for m := 0; m < 3; m++ {
		if m == mode {
			continue
		}
		s *= w.Factors[m].At(coord[m], f)
	}
	return s
}

// updateMode implements step 2b for one mode: recompute numerator and
// denominator per output row by sweeping every nonzero that touches
// it, then write A^(m)[:,f] = numerator / denominator.
//
// Every worker accumulates into its own scratch region (numerator in
// Oprod, denominator in Fiber, both reused from w.scratch rather than
// allocated per call) with no cross-worker writes, regardless of which
// root units it was handed; a serial reduction afterward sums the
// per-worker partials into the final numerator/denominator per row.
// This is agnostic to the fact that two different workers' units can
// both touch the same output row — the reduction just adds their
// partial sums — so unlike the old lock-guarded scheme it needs no
// special case for tiled or non-root modes.
func (w *Workspace[T]) updateMode(units []rootUnit[T], mode, f int) {
	dims := w.Rep.Dims[mode]
	numWorkers := w.scratch.NumWorkers()

	// Zero every worker's region up front: ParallelForIndexed may hand
	// out fewer than numWorkers slots when len(units) < numWorkers, and
	// the reduction below sums over all of them unconditionally, so an
	// untouched region must read as zero rather than a stale value left
	// over from a previous mode/column.
	for wi := 0; wi < numWorkers; wi++ {
		region := w.scratch.For(wi)
		scratch.Zero(scratch.Region[T]{Oprod: region.Oprod[:dims], Fiber: region.Fiber[:dims]})
	}

	w.pool.ParallelForIndexed(len(units), func(worker, start, end int) {
		region := w.scratch.For(worker)
		numerator := region.Oprod[:dims]
		denominator := region.Fiber[:dims]

		for _, u := range units[start:end] {
			u.walk(w.Rep.DimPerm, func(coord [3]int, leafIdx int) {
				o := coord[mode]
				s := w.otherFactorProduct(coord, mode, f)
				r := u.tile.Vals[leafIdx]
				numerator[o] += r * s
				denominator[o] += s * s
			})
		}
	})

	for o := 0; o < dims; o++ {
		var numeratorSum, denominatorSum T
		denominatorSum = w.Lambda[mode]
		for wi := 0; wi < numWorkers; wi++ {
			region := w.scratch.For(wi)
			numeratorSum += region.Oprod[o]
			denominatorSum += region.Fiber[o]
		}
		w.Factors[mode].Set(o, f, numeratorSum/denominatorSum)
	}
}
