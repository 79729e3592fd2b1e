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

// Package ccd implements Coordinate Cyclic Descent tensor completion:
// rank-one column sweeps that minimize reconstruction error one factor
// column at a time, maintaining the residual in place inside a CSF's
// leaf values. Only the 3-mode specialization is implemented; N-mode
// CCD is a documented future extension.
package ccd

import (
	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/internal/parallel"
	"github.com/go-splatt/splatt/internal/scratch"
	"github.com/go-splatt/splatt/matrix"
)

// Workspace holds everything one CCD run needs: the single CSF
// representation CCD trains against, the factor matrices it updates in
// place, per-mode regularization, and the worker pool/scratch pool
// shared across every epoch.
type Workspace[T splatt.Real] struct {
	Rep     *csf.CSF[T]
	Factors [3]*matrix.Dense[T]
	Lambda  [3]T
	Rank    int

	pool    *parallel.Pool
	scratch *scratch.Pool[T]
}

// validateScratchBudget checks a per-worker scratch request against
// options.MaxScratchElems, the way a CCD or TTMc workspace's scratch
// sizing is validated: one fallible check per worker, aggregated by a
// Region so the first violation (if any) is the error NewWorkspace
// returns. Below the limit — or when no limit is set — every check
// trivially succeeds.
func validateScratchBudget(numWorkers, perWorkerElems, maxElems int) error {
	if maxElems <= 0 {
		return nil
	}
	region := parallel.NewRegion()
	for range numWorkers {
		region.Go(func() error {
			if perWorkerElems > maxElems {
				return splatt.Errorf(splatt.AllocationFailure,
					"ccd: worker scratch region needs %d elements, limit is %d", perWorkerElems, maxElems)
			}
			return nil
		})
	}
	return region.Wait()
}

// NewWorkspace validates rep and factors and returns a ready Workspace.
// rep must have exactly 3 modes (3-mode specialization); every factor's
// row count must match rep.Dims at that mode, and every factor must
// share the same column count (the rank).
func NewWorkspace[T splatt.Real](rep *csf.CSF[T], factors [3]*matrix.Dense[T], lambda [3]T, options splatt.Options) (*Workspace[T], error) {
	if rep.NModes != 3 {
		return nil, splatt.Errorf(splatt.Unsupported, "ccd: workspace requires a 3-mode CSF, got %d modes", rep.NModes)
	}
	rank := factors[0].J
	for m := 0; m < 3; m++ {
		if factors[m].I != rep.Dims[m] {
			return nil, splatt.Errorf(splatt.InvalidInput, "ccd: factor %d has %d rows, want %d", m, factors[m].I, rep.Dims[m])
		}
		if factors[m].J != rank {
			return nil, splatt.Errorf(splatt.InvalidInput, "ccd: factor %d has rank %d, want %d", m, factors[m].J, rank)
		}
		if lambda[m] <= 0 {
			return nil, splatt.Errorf(splatt.InvalidInput, "ccd: lambda[%d] = %v, must be positive", m, lambda[m])
		}
	}

	numWorkers := options.Workers()
	maxDim := 0
	for m := 0; m < 3; m++ {
		if rep.Dims[m] > maxDim {
			maxDim = rep.Dims[m]
		}
	}
	// Each worker's region holds one numerator[] and one denominator[]
	// accumulator, both sized to the largest mode dimension so they are
	// reusable across all three modes.
	if err := validateScratchBudget(numWorkers, 2*maxDim, options.MaxScratchElems); err != nil {
		return nil, err
	}

	return &Workspace[T]{
		Rep:     rep,
		Factors: factors,
		Lambda:  lambda,
		Rank:    rank,
		pool:    parallel.New(numWorkers),
		scratch: scratch.New[T](numWorkers, maxDim, maxDim, 0),
	}, nil
}

// Close releases the workspace's worker pool.
func (w *Workspace[T]) Close() {
	w.pool.Close()
}
