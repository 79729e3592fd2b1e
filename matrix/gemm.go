package matrix

import (
	"github.com/go-splatt/splatt"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Backend computes the outer-product-batch GEMM TTMc's root variant
// needs: given a (F x M) and b (F x N), accumulate out += aᵀ @ b into a
// caller-allocated (M x N) Dense. F is the number of fibers in one
// slice, M is the middle-level factor's rank, N is the leaf-level
// accumulator's rank; out is one output row reshaped to (M, N), whose
// flattening is the Kronecker-ordered row the specification describes.
type Backend[T splatt.Real] interface {
	Name() string
	MulAT(a, b, out *Dense[T]) error
}

// NaiveBackend accumulates as a sum of outer products, in pure Go. It
// is always available and is the reference every other backend must
// agree with (property P4).
type NaiveBackend[T splatt.Real] struct{}

func (NaiveBackend[T]) Name() string { return "naive" }

func (NaiveBackend[T]) MulAT(a, b, out *Dense[T]) error {
	f, m, n := a.I, a.J, b.J
	if b.I != f {
		return splatt.Errorf(splatt.InvalidInput, "matrix: MulAT dimension mismatch a.I=%d b.I=%d", a.I, b.I)
	}
	if out.I != m || out.J != n {
		return splatt.Errorf(splatt.InvalidInput, "matrix: MulAT output shape (%d,%d), want (%d,%d)", out.I, out.J, m, n)
	}
	for k := 0; k < f; k++ {
		for i := 0; i < m; i++ {
			av := a.At(k, i)
			if av == 0 {
				continue
			}
			row := out.Data[i*n : i*n+n]
			brow := b.Data[k*n : k*n+n]
			for j := 0; j < n; j++ {
				row[j] += av * brow[j]
			}
		}
	}
	return nil
}

// GorgoniaBackend delegates the F-term contraction to
// gorgonia.org/tensor's StdEng.MatMul, used when the caller's element
// type is a Go-native float32/float64 (BLAS dispatch inside gorgonia
// only understands those). It falls back to NaiveBackend's algorithm
// for any other element type, so it is always safe to select.
type GorgoniaBackend[T splatt.Real] struct{}

func (GorgoniaBackend[T]) Name() string { return "gorgonia" }

func (g GorgoniaBackend[T]) MulAT(a, b, out *Dense[T]) error {
	f, m, n := a.I, a.J, b.J
	if b.I != f {
		return splatt.Errorf(splatt.InvalidInput, "matrix: MulAT dimension mismatch a.I=%d b.I=%d", a.I, b.I)
	}
	if out.I != m || out.J != n {
		return splatt.Errorf(splatt.InvalidInput, "matrix: MulAT output shape (%d,%d), want (%d,%d)", out.I, out.J, m, n)
	}

	switch bd := any(b.Data).(type) {
	case []float64:
		ad, ok := any(a.Data).([]float64)
		if !ok {
			return NaiveBackend[T]{}.MulAT(a, b, out)
		}
		od, ok := any(out.Data).([]float64)
		if !ok {
			return NaiveBackend[T]{}.MulAT(a, b, out)
		}
		return matmulTransposeA64(ad, bd, od, f, m, n)
	case []float32:
		ad, ok := any(a.Data).([]float32)
		if !ok {
			return NaiveBackend[T]{}.MulAT(a, b, out)
		}
		od, ok := any(out.Data).([]float32)
		if !ok {
			return NaiveBackend[T]{}.MulAT(a, b, out)
		}
		return matmulTransposeA32(ad, bd, od, f, m, n)
	default:
		return NaiveBackend[T]{}.MulAT(a, b, out)
	}
}

func transpose64(a []float64, f, m int) []float64 {
	at := make([]float64, m*f)
	for k := 0; k < f; k++ {
		for i := 0; i < m; i++ {
			at[i*f+k] = a[k*m+i]
		}
	}
	return at
}

func transpose32(a []float32, f, m int) []float32 {
	at := make([]float32, m*f)
	for k := 0; k < f; k++ {
		for i := 0; i < m; i++ {
			at[i*f+k] = a[k*m+i]
		}
	}
	return at
}

// matmulTransposeA64 computes out += aᵀ @ b (a is f x m, b is f x n) by
// materializing aᵀ and handing the (m x f) @ (f x n) contraction to
// gorgonia's standard engine.
func matmulTransposeA64(a, b, out []float64, f, m, n int) error {
	at := transpose64(a, f, m)
	atT := tensor.New(tensor.WithShape(m, f), tensor.WithBacking(at))
	bT := tensor.New(tensor.WithShape(f, n), tensor.WithBacking(append([]float64(nil), b...)))
	prealloc := tensor.New(tensor.WithShape(m, n), tensor.WithBacking(make([]float64, m*n)))

	eng := tensor.StdEng{}
	if err := eng.MatMul(atT, bT, prealloc); err != nil {
		return errors.Wrap(err, "matrix: gorgonia MatMul")
	}
	data, ok := prealloc.Data().([]float64)
	if !ok {
		return errors.New("matrix: gorgonia MatMul returned unexpected backing type")
	}
	for i := range data {
		out[i] += data[i]
	}
	return nil
}

// matmulTransposeA32 is matmulTransposeA64's float32 counterpart.
func matmulTransposeA32(a, b, out []float32, f, m, n int) error {
	at := transpose32(a, f, m)
	atT := tensor.New(tensor.WithShape(m, f), tensor.WithBacking(at))
	bT := tensor.New(tensor.WithShape(f, n), tensor.WithBacking(append([]float32(nil), b...)))
	prealloc := tensor.New(tensor.WithShape(m, n), tensor.WithBacking(make([]float32, m*n)))

	eng := tensor.StdEng{}
	if err := eng.MatMul(atT, bT, prealloc); err != nil {
		return errors.Wrap(err, "matrix: gorgonia MatMul")
	}
	data, ok := prealloc.Data().([]float32)
	if !ok {
		return errors.New("matrix: gorgonia MatMul returned unexpected backing type")
	}
	for i := range data {
		out[i] += data[i]
	}
	return nil
}

// Select returns the Backend options.GEMMBackend calls for.
func Select[T splatt.Real](backend splatt.GEMMBackend) Backend[T] {
	if backend == splatt.BLASAuto {
		return GorgoniaBackend[T]{}
	}
	return NaiveBackend[T]{}
}
