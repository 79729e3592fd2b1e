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

package ttmc

import (
	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/coo"
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/internal/lockpool"
	"github.com/go-splatt/splatt/internal/parallel"
	"github.com/go-splatt/splatt/matrix"
)

// Run is a one-shot convenience wrapper: it builds a Workspace, runs
// mode, and tears the workspace down before returning.
func Run[T splatt.Real](bundle *csf.Bundle[T], matrices []*matrix.Dense[T], mode int, options splatt.Options) (*matrix.Dense[T], error) {
	w, err := NewWorkspace(bundle, matrices, options)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.Run(mode)
}

// Run computes the TTMc of w.Bundle along every mode except mode,
// selecting the bundle's representation for mode per Bundle.ForMode,
// and dispatching to the specialized 3-mode root variant when it
// applies, else the general traversal.
func (w *Workspace[T]) Run(mode int) (*matrix.Dense[T], error) {
	if mode < 0 || mode >= w.NModes {
		return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: mode %d out of range [0,%d)", mode, w.NModes)
	}
	rep := w.Bundle.ForMode(mode)
	Y := matrix.New[T](rep.Dims[mode], w.outCols(mode))

	if w.NModes == 3 && rep.Depth(mode) == 0 {
		w.runRootRep3(rep, mode, Y)
		return Y, nil
	}
	w.run(rep, mode, Y)
	return Y, nil
}

// Stream computes the TTMc of x along every mode except mode directly
// from COO, without building a CSF: the coordinate-form fallback the
// specification calls for when a representation has not been built
// (e.g. a one-off TTMc, or a mode CSF_TWOMODE cannot serve cheaply).
// Every nonzero contributes kron of its non-target-mode factor rows,
// scaled by its value, scatter-added into Y's row at its target-mode
// index.
func Stream[T splatt.Real](x *coo.Tensor[T], matrices []*matrix.Dense[T], mode int, options splatt.Options) (*matrix.Dense[T], error) {
	if len(matrices) != x.NModes {
		return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: got %d factor matrices, want %d", len(matrices), x.NModes)
	}
	if mode < 0 || mode >= x.NModes {
		return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: mode %d out of range [0,%d)", mode, x.NModes)
	}
	for m, mat := range matrices {
		if mat.I != x.Dims[m] {
			return nil, splatt.Errorf(splatt.InvalidInput, "ttmc: factor %d has %d rows, want %d", m, mat.I, x.Dims[m])
		}
	}

	cols := 1
	for m, mat := range matrices {
		if m != mode {
			cols *= mat.J
		}
	}
	Y := matrix.New[T](x.Dims[mode], cols)

	pool := parallel.New(options.Workers())
	defer pool.Close()
	locks := lockpool.NewStriped(lockpool.NLocks)

	// Nonzeros cost roughly the same to process each, but COO streams
	// can run into the millions of entries; batching the atomic grab
	// amortizes that contention the way ParallelForAtomicBatched's doc
	// comment describes, where plain per-index stealing would otherwise
	// dominate runtime at high NNZ counts.
	const streamBatchSize = 64
	pool.ParallelForAtomicBatched(x.NNZ(), streamBatchSize, func(start, end int) {
		for k := start; k < end; k++ {
			vec := []T{x.Vals[k]}
			for m := 0; m < x.NModes; m++ {
				if m == mode {
					continue
				}
				vec = kron(vec, matrices[m].Row(x.Ind[m][k]))
			}
			idx := x.Ind[mode][k]
			unlock := locks.Lock(idx)
			Y.AddRow(idx, vec)
			unlock()
		}
	})

	return Y, nil
}
