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

// Package ttmc implements tensor-times-matrix-chain: multiplying a
// sparse tensor by a distinct dense factor matrix along every mode
// except one, accumulating Kronecker outer products into the output
// mode's row.
package ttmc

import (
	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/internal/lockpool"
	"github.com/go-splatt/splatt/internal/parallel"
	"github.com/go-splatt/splatt/internal/scratch"
	"github.com/go-splatt/splatt/matrix"
)

// Workspace holds a CSF bundle and the per-mode factor matrices a TTMc
// run multiplies against, plus the worker pool, lock pool (for the
// scatter-add join that can still collide across workers), and scratch
// pool shared across every mode a caller runs.
type Workspace[T splatt.Real] struct {
	Bundle   *csf.Bundle[T]
	Matrices []*matrix.Dense[T]
	Options  splatt.Options
	NModes   int

	pool    *parallel.Pool
	locks   *lockpool.Striped
	scratch *scratch.Pool[T]
	maxKron int
}

// NewWorkspace validates bundle and matrices and returns a ready
// Workspace. matrices must have one entry per mode, row count equal to
// the tensor's dimension at that mode.
func NewWorkspace[T splatt.Real](bundle *csf.Bundle[T], matrices []*matrix.Dense[T], options splatt.Options) (*Workspace[T], error) {
	if len(bundle.Reps) == 0 {
		return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: bundle has no representations")
	}
	rep0 := bundle.Reps[0]
	nmodes := rep0.NModes
	if len(matrices) != nmodes {
		return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: got %d factor matrices, want %d", len(matrices), nmodes)
	}
	for m, mat := range matrices {
		if mat.I != rep0.Dims[m] {
			return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: factor %d has %d rows, want %d", m, mat.I, rep0.Dims[m])
		}
	}

	numWorkers := options.Workers()
	maxOuter := maxOuterAcrossBundle(bundle, options)
	maxRank := maxFactorRank(matrices)
	maxKron := maxKronLen(matrices)

	// runRootRep3 needs nFibers x rank matrices for its gathered "a"/"b"
	// operands and an rmid x rleaf "out" accumulator; the general
	// traversal needs one maxKron-sized slot per tree level for the
	// Kronecker chain it builds while descending. The two paths are
	// mutually exclusive within a single Run(mode) call (see run.go), so
	// Oprod/Fiber can be sized to whichever need is larger and reused by
	// both across different calls over the workspace's lifetime.
	rootPairLen := maxOuter * maxRank
	traversalLen := nmodes * maxKron
	oprodLen := max(rootPairLen, traversalLen)
	fiberLen := rootPairLen
	planeLen := max(maxRank*maxRank, maxKron)

	if err := validateScratchBudget(numWorkers, oprodLen+fiberLen+planeLen, options.MaxScratchElems); err != nil {
		return nil, err
	}

	return &Workspace[T]{
		Bundle:   bundle,
		Matrices: matrices,
		Options:  options,
		NModes:   nmodes,
		pool:     parallel.New(numWorkers),
		locks:    lockpool.NewStriped(lockpool.NLocks),
		scratch:  scratch.New[T](numWorkers, oprodLen, fiberLen, planeLen),
		maxKron:  maxKron,
	}, nil
}

// validateScratchBudget is ttmc's copy of the same per-worker
// scratch-size check ccd.validateScratchBudget performs: the Region
// (errgroup) aggregation the specification requires around scratch
// sizing at kernel entry, realized once per package rather than shared,
// since the two kernels' Workspace types are otherwise independent.
func validateScratchBudget(numWorkers, perWorkerElems, maxElems int) error {
	if maxElems <= 0 {
		return nil
	}
	region := parallel.NewRegion()
	for range numWorkers {
		region.Go(func() error {
			if perWorkerElems > maxElems {
				return splatt.Errorf(splatt.AllocationFailure,
					"ttmc: worker scratch region needs %d elements, limit is %d", perWorkerElems, maxElems)
			}
			return nil
		})
	}
	return region.Wait()
}

// maxOuterAcrossBundle returns the largest root-level fiber count
// (LargestOuter's level-0 entry) across every representation in
// bundle, the bound runRootRep3's per-slice "a"/"b" matrices need.
func maxOuterAcrossBundle[T splatt.Real](bundle *csf.Bundle[T], options splatt.Options) int {
	best := 1
	for _, rep := range bundle.Reps {
		sizes := LargestOuter(rep, options)
		if len(sizes) > 0 && sizes[0] > best {
			best = sizes[0]
		}
	}
	return best
}

// maxFactorRank returns the largest column count among matrices.
func maxFactorRank[T splatt.Real](matrices []*matrix.Dense[T]) int {
	best := 1
	for _, m := range matrices {
		if m.J > best {
			best = m.J
		}
	}
	return best
}

// maxKronLen returns the product of every factor matrix's rank, a safe
// upper bound on the length of any Kronecker chain built from a subset
// of those rows (it also counts the target mode's own rank, which no
// actual above/below/combined vector includes, so it overcounts
// slightly rather than risk underscoping the scratch it sizes).
func maxKronLen[T splatt.Real](matrices []*matrix.Dense[T]) int {
	n := 1
	for _, m := range matrices {
		if m.J > 0 {
			n *= m.J
		}
	}
	return n
}

// Close releases the workspace's worker pool.
func (w *Workspace[T]) Close() {
	w.pool.Close()
}

// outCols returns the output column count for a TTMc on mode: the
// product of every other mode's factor rank.
func (w *Workspace[T]) outCols(mode int) int {
	cols := 1
	for m, mat := range w.Matrices {
		if m == mode {
			continue
		}
		cols *= mat.J
	}
	return cols
}
