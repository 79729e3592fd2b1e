package coo

import "testing"

func TestNewValid(t *testing.T) {
	dims := []int{2, 2, 3}
	ind := [][]int{
		{0, 1, 0},
		{0, 0, 1},
		{0, 0, 2},
	}
	vals := []float64{1, 2, 3}

	tensor, err := New(dims, ind, vals)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tensor.NNZ() != 3 {
		t.Errorf("NNZ() = %d, want 3", tensor.NNZ())
	}
	v, ok := tensor.At([]int{1, 0, 0})
	if !ok || v != 2 {
		t.Errorf("At({1,0,0}) = (%v, %v), want (2, true)", v, ok)
	}
	if _, ok := tensor.At([]int{1, 1, 1}); ok {
		t.Errorf("At({1,1,1}) found a nonzero that does not exist")
	}
}

func TestNewRejectsOutOfRangeCoordinate(t *testing.T) {
	dims := []int{2, 2, 3}
	ind := [][]int{{0}, {0}, {5}}
	vals := []float64{1}

	if _, err := New(dims, ind, vals); err == nil {
		t.Fatalf("New() with out-of-range coordinate did not error")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New[float64]([]int{2, 2}, [][]int{{}, {}}, nil); err == nil {
		t.Fatalf("New() with zero nnz did not error")
	}
}

func TestNewRejectsMismatchedColumnLength(t *testing.T) {
	dims := []int{2, 2}
	ind := [][]int{{0, 1}, {0}}
	vals := []float64{1, 2}
	if _, err := New(dims, ind, vals); err == nil {
		t.Fatalf("New() with mismatched column length did not error")
	}
}

func TestCoord(t *testing.T) {
	dims := []int{2, 2, 3}
	ind := [][]int{{1}, {0}, {2}}
	vals := []float64{9}
	tensor, err := New(dims, ind, vals)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c := tensor.Coord(0)
	want := []int{1, 0, 2}
	for i := range want {
		if c[i] != want[i] {
			t.Errorf("Coord(0)[%d] = %d, want %d", i, c[i], want[i])
		}
	}
}
