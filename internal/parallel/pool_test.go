package parallel

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)
	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForIndexed(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)
	var mu sync.Mutex
	seen := make(map[int]bool)
	pool.ParallelForIndexed(n, func(worker, start, end int) {
		if worker < 0 || worker >= pool.NumWorkers() {
			t.Errorf("worker = %d, out of [0,%d)", worker, pool.NumWorkers())
		}
		mu.Lock()
		seen[worker] = true
		mu.Unlock()
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
	if len(seen) != pool.NumWorkers() {
		t.Errorf("saw %d distinct worker slots, want %d", len(seen), pool.NumWorkers())
	}
}

func TestParallelForIndexedClosedPoolFallsBackToSequential(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 10
	results := make([]int, n)
	pool.ParallelForIndexed(n, func(worker, start, end int) {
		if worker != 0 {
			t.Errorf("worker = %d, want 0 for closed-pool fallback", worker)
		}
		for i := start; i < end; i++ {
			results[i] = i + 1
		}
	})
	for i := 0; i < n; i++ {
		if results[i] != i+1 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i+1)
		}
	}
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)
	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForAtomicBatched(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 97
	results := make([]int, n)
	pool.ParallelForAtomicBatched(n, 8, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForClosedPoolFallsBackToSequential(t *testing.T) {
	pool := New(4)
	pool.Close()

	n := 10
	results := make([]int, n)
	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i + 1
		}
	})
	for i := 0; i < n; i++ {
		if results[i] != i+1 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i+1)
		}
	}
}

func TestRegionAggregatesFirstError(t *testing.T) {
	region := NewRegion()
	sentinel := errors.New("allocation failed")

	region.Go(func() error { return nil })
	region.Go(func() error { return sentinel })
	region.Go(func() error { return nil })

	if err := region.Wait(); err != sentinel {
		t.Errorf("Wait() = %v, want %v", err, sentinel)
	}
}

func TestRegionNoErrors(t *testing.T) {
	region := NewRegion()
	for i := 0; i < 8; i++ {
		region.Go(func() error { return nil })
	}
	if err := region.Wait(); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
