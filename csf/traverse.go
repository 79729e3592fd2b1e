package csf

import "github.com/go-splatt/splatt"

// Nonzero is one (coordinate, value) pair recovered from a depth-first
// traversal of a CSF.
type Nonzero[T splatt.Real] struct {
	Coord []int
	Val   T
}

// Materialize walks every tile root-to-leaf and returns every nonzero it
// stores, in mode-index order (not necessarily the order the
// originating COO listed them in). It exists for testing the CSF round
// trip property (P1): building a CSF from a COO and materializing it
// back must reproduce the same multiset of (coord, val) tuples.
func (c *CSF[T]) Materialize() []Nonzero[T] {
	var out []Nonzero[T]
	for _, tile := range c.Tiles {
		if tile.Empty() {
			continue
		}
		out = append(out, materializeTile(tile, c.DimPerm, c.NModes)...)
	}
	return out
}

func materializeTile[T splatt.Real](tile *Tile[T], dimPerm []int, nmodes int) []Nonzero[T] {
	out := make([]Nonzero[T], 0, tile.NNZ())
	path := make([]int, nmodes)

	var walk func(level, fiber int)
	walk = func(level, fiber int) {
		idx := fiber
		if tile.FIDs[level] != nil {
			idx = tile.FIDs[level][fiber]
		}
		path[level] = idx

		if level == nmodes-1 {
			coord := make([]int, nmodes)
			for l, mode := range dimPerm {
				coord[mode] = path[l]
			}
			out = append(out, Nonzero[T]{Coord: coord, Val: tile.Vals[fiber]})
			return
		}

		start, end := tile.FPtr[level][fiber], tile.FPtr[level][fiber+1]
		for child := start; child < end; child++ {
			walk(level+1, child)
		}
	}

	for root := 0; root < tile.NFibs[0]; root++ {
		walk(0, root)
	}
	return out
}
