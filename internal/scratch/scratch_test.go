package scratch

import "testing"

func TestNewSizesEachRegion(t *testing.T) {
	p := New[float64](3, 4, 5, 6)
	if p.NumWorkers() != 3 {
		t.Fatalf("NumWorkers() = %d, want 3", p.NumWorkers())
	}
	for w := 0; w < 3; w++ {
		r := p.For(w)
		if len(r.Oprod) != 4 || len(r.Fiber) != 5 || len(r.Plane) != 6 {
			t.Errorf("worker %d region sizes = (%d,%d,%d), want (4,5,6)", w, len(r.Oprod), len(r.Fiber), len(r.Plane))
		}
	}
}

func TestRegionsAreDistinctBackingArrays(t *testing.T) {
	p := New[float64](2, 2, 2, 2)
	a := p.For(0)
	b := p.For(1)
	a.Oprod[0] = 99
	if b.Oprod[0] == 99 {
		t.Fatalf("workers 0 and 1 share backing storage")
	}
}

func TestZeroClears(t *testing.T) {
	p := New[float64](1, 2, 2, 2)
	r := p.For(0)
	r.Oprod[0] = 5
	r.Fiber[0] = 6
	r.Plane[0] = 7
	Zero(r)
	if r.Oprod[0] != 0 || r.Fiber[0] != 0 || r.Plane[0] != 0 {
		t.Errorf("Zero() left nonzero elements: %+v", r)
	}
}

func TestNewClampsNonPositiveWorkers(t *testing.T) {
	p := New[float64](0, 1, 1, 1)
	if p.NumWorkers() != 1 {
		t.Errorf("NumWorkers() = %d, want 1", p.NumWorkers())
	}
}
