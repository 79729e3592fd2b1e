package splatt

import "runtime"

// PermPolicy selects how csf.Build computes dim_perm, the mode
// permutation that defines CSF tree level order.
type PermPolicy int

const (
	// SortedSmallFirst orders modes ascending by dims[m].
	SortedSmallFirst PermPolicy = iota
	// SortedSmallFirstMinusOne orders modes ascending by dims[m] but
	// forces the largest dimension to the leaf level.
	SortedSmallFirstMinusOne
	// ExplicitPerm uses the caller-supplied Options.Perm verbatim.
	ExplicitPerm
)

// TilePolicy selects how csf.Build partitions the index space into tiles.
type TilePolicy int

const (
	// NoTile builds a single tile spanning the whole tensor.
	NoTile TilePolicy = iota
	// DenseTile partitions the Cartesian product of per-mode partitions
	// along levels [0, TileDepth].
	DenseTile
	// SyncTile is the "one mode dense" tiling variant: only the
	// synchronization mode is partitioned, every other level stays whole.
	SyncTile
)

// CSFAlloc selects how many CSF representations csf.Build produces and how
// they are rooted.
type CSFAlloc int

const (
	// OneMode builds a single CSF representation. Required by CCD.
	OneMode CSFAlloc = iota
	// TwoMode builds two representations chosen so every mode can be
	// computed from either the root or an internal level of one of them.
	TwoMode
	// AllMode builds one representation per mode, each rooted at that mode.
	AllMode
)

// GEMMBackend selects the dense kernel TTMc's root variant uses to batch
// its outer-product expansion.
type GEMMBackend int

const (
	// BLASAuto uses a BLAS-backed GEMM (gorgonia.org/tensor) when the
	// element type is float32 or float64, and falls back to a sum of
	// outer products otherwise. It does not check the problem size.
	BLASAuto GEMMBackend = iota
	// NaiveOuterProduct always accumulates via a sum of outer products,
	// skipping GEMM dispatch entirely.
	NaiveOuterProduct
)

// Options configures a CSF build or a kernel call. It is the Go surface
// for every option row in the specification's option table.
type Options struct {
	// NThreads is the worker pool size. Non-positive means
	// runtime.GOMAXPROCS(0).
	NThreads int

	// CSFAllocFlavor selects the number and orientation of CSF
	// representations a build produces.
	CSFAllocFlavor CSFAlloc

	// Tile selects the tiling policy.
	Tile TilePolicy

	// TileDepth is the level, inclusive, up to which tiling is applied.
	// Ignored when Tile is NoTile.
	TileDepth int

	// ModePermPolicy selects how dim_perm is computed.
	ModePermPolicy PermPolicy

	// Perm is the caller-supplied permutation used when ModePermPolicy
	// is ExplicitPerm. It must be a bijection on [0, nmodes).
	Perm []int

	// GEMMBackend selects the dense kernel used by TTMc's root variant.
	GEMMBackend GEMMBackend

	// MaxScratchElems caps the element count a kernel's per-worker
	// scratch region may request (summed across its buffers). Zero means
	// unlimited. A kernel whose sizing exceeds this returns an
	// AllocationFailure error from NewWorkspace instead of allocating.
	MaxScratchElems int
}

// DefaultOptions returns the Options a caller gets if it does not
// otherwise tune anything: GOMAXPROCS workers, a single untiled
// one-mode CSF permuted small-dimension-first, auto GEMM dispatch.
func DefaultOptions() Options {
	return Options{
		NThreads:        runtime.GOMAXPROCS(0),
		CSFAllocFlavor:  OneMode,
		Tile:            NoTile,
		TileDepth:       0,
		ModePermPolicy:  SortedSmallFirst,
		GEMMBackend:     BLASAuto,
		MaxScratchElems: 0,
	}
}

// Workers returns the number of workers Options.NThreads resolves to.
func (o Options) Workers() int {
	if o.NThreads <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.NThreads
}
