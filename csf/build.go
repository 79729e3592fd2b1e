package csf

import (
	"sort"

	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/coo"
)

// Build translates a COO tensor into one or more CSF representations
// per options.CSFAllocFlavor: a single representation (CSF_ONEMODE), two
// representations covering every mode from a root or internal level
// (CSF_TWOMODE), or one representation per mode rooted at that mode
// (CSF_ALLMODE).
//
// Build fails with splatt.InvalidInput if t has zero nonzeros (coo.New
// already rejects this) or if options.Perm is not a bijection on
// [0, nmodes) when options.ModePermPolicy is splatt.ExplicitPerm.
func Build[T splatt.Real](t *coo.Tensor[T], options splatt.Options) (*Bundle[T], error) {
	if t.NNZ() == 0 {
		return nil, splatt.Errorf(splatt.InvalidInput, "csf: nnz must be positive")
	}
	perms, err := representationPerms(t.Dims, options)
	if err != nil {
		return nil, err
	}

	reps := make([]*CSF[T], 0, len(perms))
	for _, perm := range perms {
		rep, err := buildOne(t, perm, options)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}

	return &Bundle[T]{Alloc: options.CSFAllocFlavor, Reps: reps}, nil
}

// representationPerms computes the DimPerm of every representation
// options.CSFAllocFlavor calls for.
func representationPerms(dims []int, options splatt.Options) ([][]int, error) {
	nmodes := len(dims)
	base, err := basePerm(dims, options)
	if err != nil {
		return nil, err
	}

	switch options.CSFAllocFlavor {
	case splatt.OneMode:
		return [][]int{base}, nil
	case splatt.TwoMode:
		// The second representation forces base's leaf mode to the
		// root, keeping the remaining modes in base's relative order,
		// so every mode is reachable from either root (base, or the
		// leaf mode via rep2) or an internal level of base.
		second := rotateLeafToRoot(base)
		return [][]int{base, second}, nil
	case splatt.AllMode:
		perms := make([][]int, nmodes)
		for m := 0; m < nmodes; m++ {
			perms[m] = rootedAt(base, m)
		}
		return perms, nil
	default:
		return nil, splatt.Errorf(splatt.InvalidInput, "csf: unknown CSFAlloc %d", options.CSFAllocFlavor)
	}
}

// basePerm computes the DimPerm for options.ModePermPolicy.
func basePerm(dims []int, options splatt.Options) ([]int, error) {
	nmodes := len(dims)
	switch options.ModePermPolicy {
	case splatt.ExplicitPerm:
		if err := validatePerm(options.Perm, nmodes); err != nil {
			return nil, err
		}
		return append([]int(nil), options.Perm...), nil
	case splatt.SortedSmallFirstMinusOne:
		return forceLargestToLeaf(dims), nil
	default:
		return sortedSmallFirst(dims), nil
	}
}

// sortedSmallFirst returns the mode permutation that orders modes
// ascending by their dimension (SORTED_SMALLFIRST).
func sortedSmallFirst(dims []int) []int {
	perm := make([]int, len(dims))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return dims[perm[i]] < dims[perm[j]]
	})
	return perm
}

// forceLargestToLeaf re-derives SORTED_SMALLFIRST_MINUSONE: modes
// ascending by dimension as in sortedSmallFirst, but with the largest
// dimension forced to the leaf level regardless of where the ascending
// sort would otherwise place it.
func forceLargestToLeaf(dims []int) []int {
	perm := make([]int, len(dims))
	for i := range perm {
		perm[i] = i
	}
	largest := perm[0]
	for _, m := range perm {
		if dims[m] > dims[largest] {
			largest = m
		}
	}
	sort.SliceStable(perm, func(i, j int) bool {
		if perm[i] == largest {
			return false
		}
		if perm[j] == largest {
			return true
		}
		return dims[perm[i]] < dims[perm[j]]
	})
	return perm
}

func validatePerm(perm []int, nmodes int) error {
	if len(perm) != nmodes {
		return splatt.Errorf(splatt.InvalidInput, "csf: explicit perm has length %d, want %d", len(perm), nmodes)
	}
	seen := make([]bool, nmodes)
	for _, m := range perm {
		if m < 0 || m >= nmodes || seen[m] {
			return splatt.Errorf(splatt.InvalidInput, "csf: explicit perm %v is not a bijection on [0,%d)", perm, nmodes)
		}
		seen[m] = true
	}
	return nil
}

// rotateLeafToRoot returns a permutation with base's leaf mode moved to
// the root, the rest kept in base's relative order.
func rotateLeafToRoot(base []int) []int {
	nmodes := len(base)
	leaf := base[nmodes-1]
	out := make([]int, 0, nmodes)
	out = append(out, leaf)
	for _, m := range base[:nmodes-1] {
		out = append(out, m)
	}
	return out
}

// rootedAt returns a permutation with mode forced to the root, the rest
// kept in base's relative order.
func rootedAt(base []int, mode int) []int {
	nmodes := len(base)
	out := make([]int, 0, nmodes)
	out = append(out, mode)
	for _, m := range base {
		if m != mode {
			out = append(out, m)
		}
	}
	return out
}

// buildOne builds a single CSF representation with the given DimPerm.
func buildOne[T splatt.Real](t *coo.Tensor[T], dimPerm []int, options splatt.Options) (*CSF[T], error) {
	nmodes := t.NModes
	tileDims := tileDimsFor(t.Dims, dimPerm, options)

	ntiles := 1
	for _, d := range tileDims {
		ntiles *= d
	}

	buckets := make([][]int, ntiles)
	for k := 0; k < t.NNZ(); k++ {
		id := tileIDFor(t, dimPerm, tileDims, k)
		buckets[id] = append(buckets[id], k)
	}

	tiles := make([]*Tile[T], ntiles)
	for id, bucket := range buckets {
		sortBucketLex(t, dimPerm, bucket)
		tiles[id] = sweepTile(t, dimPerm, bucket)
	}

	return &CSF[T]{
		NModes:    nmodes,
		Dims:      append([]int(nil), t.Dims...),
		DimPerm:   dimPerm,
		modeDepth: invertPerm(dimPerm),
		TileDims:  tileDims,
		Tiles:     tiles,
	}, nil
}

// tileDimsFor computes the per-level partition counts for a build: 1
// everywhere under NoTile; for DenseTile/SyncTile, every level up to
// options.TileDepth (inclusive) is split into min(dims[mode],
// options.Workers()) partitions. SyncTile additionally limits tiling to
// level 0 (the synchronization mode), leaving the rest of the tree
// dense, which is the "one mode dense" variant named in the
// specification.
func tileDimsFor(dims []int, dimPerm []int, options splatt.Options) []int {
	nmodes := len(dims)
	tileDims := make([]int, nmodes)
	for l := range tileDims {
		tileDims[l] = 1
	}

	switch options.Tile {
	case splatt.NoTile:
		return tileDims
	case splatt.SyncTile:
		mode := dimPerm[0]
		tileDims[0] = clampPartitions(dims[mode], options.Workers())
		return tileDims
	case splatt.DenseTile:
		depth := options.TileDepth
		if depth > nmodes-1 {
			depth = nmodes - 1
		}
		for l := 0; l <= depth; l++ {
			mode := dimPerm[l]
			tileDims[l] = clampPartitions(dims[mode], options.Workers())
		}
		return tileDims
	default:
		return tileDims
	}
}

func clampPartitions(dim, workers int) int {
	if workers < 1 {
		workers = 1
	}
	if dim < workers {
		return dim
	}
	return workers
}

// tileIDFor computes the tile id of nonzero k under the mixed-radix
// combination described in TileWalkerNext's documentation.
func tileIDFor[T splatt.Real](t *coo.Tensor[T], dimPerm []int, tileDims []int, k int) int {
	id := 0
	for l := 0; l < t.NModes; l++ {
		mode := dimPerm[l]
		partSize := ceilDiv(t.Dims[mode], tileDims[l])
		coordAtLevel := t.Ind[mode][k] / partSize
		id = id*tileDims[l] + coordAtLevel
	}
	return id
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// sortBucketLex stable-sorts a tile's nonzero indices lexicographically
// by (perm[0], perm[1], ..., perm[nmodes-1]).
func sortBucketLex[T splatt.Real](t *coo.Tensor[T], dimPerm []int, bucket []int) {
	sort.SliceStable(bucket, func(i, j int) bool {
		a, b := bucket[i], bucket[j]
		for _, mode := range dimPerm {
			ai, bi := t.Ind[mode][a], t.Ind[mode][b]
			if ai != bi {
				return ai < bi
			}
		}
		return false
	})
}

// sweepTile builds one tile's FPtr/FIDs/Vals by a single pass over its
// (already lexicographically sorted) nonzero indices, per the
// specification's build algorithm step 4.
func sweepTile[T splatt.Real](t *coo.Tensor[T], dimPerm []int, bucket []int) *Tile[T] {
	nmodes := len(dimPerm)
	if len(bucket) == 0 {
		return &Tile[T]{NFibs: make([]int, nmodes)}
	}

	nfibs := make([]int, nmodes)
	fptr := make([][]int, nmodes)   // fptr[l] meaningful for l < nmodes-1
	fids := make([][]int, nmodes)
	vals := make([]T, 0, len(bucket))

	prev := make([]int, nmodes)
	for l := range prev {
		prev[l] = -1
	}

	for _, k := range bucket {
		coord := make([]int, nmodes)
		for l, mode := range dimPerm {
			coord[l] = t.Ind[mode][k]
		}

		diff := nmodes - 1
		for l := 0; l < nmodes; l++ {
			if coord[l] != prev[l] {
				diff = l
				break
			}
		}

		for l := diff; l < nmodes; l++ {
			if l > 0 {
				fptr[l-1] = append(fptr[l-1], nfibs[l])
			}
			fids[l] = append(fids[l], coord[l])
			nfibs[l]++
		}

		vals = append(vals, t.Vals[k])
		prev = coord
	}

	for l := 0; l < nmodes-1; l++ {
		fptr[l] = append(fptr[l], nfibs[l+1])
	}

	for l := 0; l < nmodes; l++ {
		fids[l] = identityOrSparse(fids[l], t.Dims[dimPerm[l]])
	}

	return &Tile[T]{
		NFibs: nfibs,
		FPtr:  fptr,
		FIDs:  fids,
		Vals:  vals,
	}
}

// identityOrSparse applies the "NULL-as-identity" optimization
// (invariant 4): when a level's fid array covers every index of its
// mode exactly once in ascending order, it is exactly the identity map
// and is represented as nil.
func identityOrSparse(ids []int, dim int) []int {
	if len(ids) != dim {
		return ids
	}
	for i, v := range ids {
		if v != i {
			return ids
		}
	}
	return nil
}
