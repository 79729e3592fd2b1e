package ccd

import (
	"math"

	"github.com/go-splatt/splatt/coo"
)

// Converger is the external convergence predicate ccd_run's
// specification names: given the epoch just completed and its
// validation RMSE, it reports whether training should stop.
type Converger func(epoch int, rmse float64) (stop bool)

// RunEpoch performs one full pass over every column f in [0, Rank): add
// the column back into the residual, update every mode's column f, then
// subtract the (now updated) column back out. It returns Σr² measured
// immediately after the last column's subtract step, which the
// specification designates as the epoch's reported loss (the "add"
// step's running total is discarded by design; see DESIGN.md).
func (w *Workspace[T]) RunEpoch() T {
	units := unitsOf(w.Rep)

	var loss T
	for f := 0; f < w.Rank; f++ {
		w.addColumnBack(units, f)
		for mode := 0; mode < 3; mode++ {
			w.updateMode(units, mode, f)
		}
		loss = w.subtractNewColumn(units, f)
	}
	return loss
}

// RMSE computes the current model's root-mean-square error against a
// held-out COO, for the external Converger to judge.
func (w *Workspace[T]) RMSE(validate *coo.Tensor[T]) float64 {
	if validate.NNZ() == 0 {
		return 0
	}
	var sumSq float64
	for k := 0; k < validate.NNZ(); k++ {
		c := validate.Coord(k)
		var pred T
		for f := 0; f < w.Rank; f++ {
			pred += w.Factors[0].At(c[0], f) * w.Factors[1].At(c[1], f) * w.Factors[2].At(c[2], f)
		}
		diff := float64(validate.Vals[k] - pred)
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(validate.NNZ()))
}

// Run drives RunEpoch until converge reports stop or maxEpochs is
// reached, whichever comes first, returning the final epoch's loss.
// InitResidual must have already been called.
func (w *Workspace[T]) Run(validate *coo.Tensor[T], maxEpochs int, converge Converger) T {
	var loss T
	for epoch := 1; epoch <= maxEpochs; epoch++ {
		loss = w.RunEpoch()
		rmse := w.RMSE(validate)
		if converge(epoch, rmse) {
			break
		}
	}
	return loss
}
