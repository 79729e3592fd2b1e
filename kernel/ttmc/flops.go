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
)

// LargestOuter returns, for every level above the leaf, the largest
// fiber length (child count) any single fiber at that level has across
// every tile of rep. A kernel that pre-sizes scratch buffers once per
// call, rather than reallocating per fiber, sizes them from this.
func LargestOuter[T splatt.Real](rep *csf.CSF[T], options splatt.Options) []int {
	out := make([]int, rep.NModes-1)
	for _, tile := range rep.Tiles {
		if tile.Empty() {
			continue
		}
		for level := 0; level < rep.NModes-1; level++ {
			fptr := tile.FPtr[level]
			for f := 0; f+1 < len(fptr); f++ {
				length := fptr[f+1] - fptr[f]
				if length > out[level] {
					out[level] = length
				}
			}
		}
	}
	return out
}

// nfibsAtLevel sums NFibs[level] across every tile of rep.
func nfibsAtLevel[T splatt.Real](rep *csf.CSF[T], level int) int {
	n := 0
	for _, tile := range rep.Tiles {
		if level < len(tile.NFibs) {
			n += tile.NFibs[level]
		}
	}
	return n
}

// CountFlops estimates the multiply-add work Run(mode) spends against
// rep: the descent path (gathering ancestor factor rows above target's
// level), the ascent path (reducing descendant fibers below target's
// level), and — when target is not at the root — the join that
// combines the two into the output row.
func CountFlops[T splatt.Real](rep *csf.CSF[T], mode int, ncols []int) int {
	depth := rep.Depth(mode)
	total := 0

	prefix := 1
	for d := 0; d < depth; d++ {
		prefix *= ncols[rep.DimPerm[d]]
		total += nfibsAtLevel(rep, d) * prefix
	}

	suffix := 1
	for d := rep.NModes - 1; d > depth; d-- {
		suffix *= ncols[rep.DimPerm[d]]
		total += nfibsAtLevel(rep, d) * suffix
	}

	if depth > 0 {
		outCols := 1
		for m := 0; m < rep.NModes; m++ {
			if m != mode {
				outCols *= ncols[m]
			}
		}
		total += nfibsAtLevel(rep, depth) * outCols
	}
	return total
}

// CoordCountFlops estimates Stream's work against x: each of x's
// nonzeros pays for progressively Kronecker-multiplying in every
// non-target mode's factor row, one column count at a time.
func CoordCountFlops[T splatt.Real](x *coo.Tensor[T], mode int, ncols []int) int {
	perNNZ := 0
	width := 1
	for m := 0; m < x.NModes; m++ {
		if m == mode {
			continue
		}
		perNNZ += width * ncols[m]
		width *= ncols[m]
	}
	return x.NNZ() * perNNZ
}

// rootedPerm returns the mode permutation with root first and every
// other mode following in ascending order.
func rootedPerm(nmodes, root int) []int {
	perm := make([]int, 0, nmodes)
	perm = append(perm, root)
	for m := 0; m < nmodes; m++ {
		if m != root {
			perm = append(perm, m)
		}
	}
	return perm
}

// FillFlopTable builds the planner's nmodes x nmodes flop-cost table:
// table[root][mode] is CountFlops for the TTMc of mode against a CSF
// representation rooted at root. A CSF_ALLMODE planner compares each
// mode's own column against CoordCountFlops to decide whether building
// that representation is worth it at all.
func FillFlopTable[T splatt.Real](x *coo.Tensor[T], ncols []int, options splatt.Options) ([][]int, error) {
	nmodes := x.NModes
	table := make([][]int, nmodes)
	rootOptions := options
	rootOptions.ModePermPolicy = splatt.ExplicitPerm
	rootOptions.CSFAllocFlavor = splatt.OneMode

	for root := 0; root < nmodes; root++ {
		table[root] = make([]int, nmodes)
		opts := rootOptions
		opts.Perm = rootedPerm(nmodes, root)
		bundle, err := csf.Build(x, opts)
		if err != nil {
			return nil, err
		}
		rep := bundle.Reps[0]
		for mode := 0; mode < nmodes; mode++ {
			table[root][mode] = CountFlops(rep, mode, ncols)
		}
	}
	return table, nil
}
