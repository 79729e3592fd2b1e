package ccd

import (
	"math"
	"testing"

	"github.com/go-splatt/splatt"
	"github.com/go-splatt/splatt/coo"
	"github.com/go-splatt/splatt/csf"
	"github.com/go-splatt/splatt/matrix"
)

// tinyTensor builds the S2 scenario tensor: dims=(2,2,3),
// X = {(0,0,0):1, (1,0,0):2, (0,1,2):3}.
func tinyTensor(t *testing.T) *coo.Tensor[float64] {
	t.Helper()
	dims := []int{2, 2, 3}
	ind := [][]int{
		{0, 1, 0},
		{0, 0, 1},
		{0, 0, 2},
	}
	vals := []float64{1, 2, 3}
	tensor, err := coo.New(dims, ind, vals)
	if err != nil {
		t.Fatalf("coo.New() error = %v", err)
	}
	return tensor
}

func allOnes(rows, cols int) *matrix.Dense[float64] {
	d := matrix.New[float64](rows, cols)
	for i := range d.Data {
		d.Data[i] = 1
	}
	return d
}

func buildWorkspace(t *testing.T, rank int, nthreads int) (*Workspace[float64], *coo.Tensor[float64]) {
	t.Helper()
	x := tinyTensor(t)
	options := splatt.DefaultOptions()
	options.ModePermPolicy = splatt.ExplicitPerm
	options.Perm = []int{0, 1, 2}
	options.NThreads = nthreads

	bundle, err := csf.Build(x, options)
	if err != nil {
		t.Fatalf("csf.Build() error = %v", err)
	}
	rep := bundle.Reps[0]

	factors := [3]*matrix.Dense[float64]{
		allOnes(x.Dims[0], rank),
		allOnes(x.Dims[1], rank),
		allOnes(x.Dims[2], rank),
	}
	lambda := [3]float64{1, 1, 1}

	ws, err := NewWorkspace(rep, factors, lambda, options)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	t.Cleanup(ws.Close)
	return ws, x
}

// P2: residual consistency after InitResidual.
func TestInitResidualConsistency(t *testing.T) {
	ws, x := buildWorkspace(t, 1, 1)
	ws.InitResidual()

	// Recompute expected residual directly from X and the all-ones rank-1 model.
	for k := 0; k < x.NNZ(); k++ {
		coord := x.Coord(k)
		want := x.Vals[k] - 1*1*1 // rank 1, all factor entries are 1
		got, ok := findResidual(ws, coord)
		if !ok {
			t.Fatalf("coordinate %v missing from CSF after InitResidual", coord)
		}
		if math.Abs(got-want) > 1e-10*math.Max(1, math.Abs(want)) {
			t.Errorf("residual at %v = %v, want %v", coord, got, want)
		}
	}
}

func findResidual(ws *Workspace[float64], coord []int) (float64, bool) {
	var found float64
	var ok bool
	for _, u := range unitsOf(ws.Rep) {
		u.walk(ws.Rep.DimPerm, func(c [3]int, leafIdx int) {
			if c[0] == coord[0] && c[1] == coord[1] && c[2] == coord[2] {
				found = u.tile.Vals[leafIdx]
				ok = true
			}
		})
	}
	return found, ok
}

// P3: CCD column invariant — Σvals² after "subtract new column" equals
// the reconstruction loss of the model at that point.
func TestColumnInvariant(t *testing.T) {
	ws, x := buildWorkspace(t, 1, 1)
	ws.InitResidual()

	loss := ws.RunEpoch()

	var wantLoss float64
	for k := 0; k < x.NNZ(); k++ {
		coord := x.Coord(k)
		var pred float64
		for f := 0; f < ws.Rank; f++ {
			pred += ws.Factors[0].At(coord[0], f) * ws.Factors[1].At(coord[1], f) * ws.Factors[2].At(coord[2], f)
		}
		diff := x.Vals[k] - pred
		wantLoss += diff * diff
	}

	if math.Abs(loss-wantLoss) > 1e-8*math.Max(1, math.Abs(wantLoss)) {
		t.Errorf("RunEpoch() loss = %v, want %v", loss, wantLoss)
	}
}

// S2: loss is monotone non-increasing across epochs.
func TestLossMonotoneNonIncreasing(t *testing.T) {
	ws, _ := buildWorkspace(t, 1, 1)
	ws.InitResidual()

	prev := math.MaxFloat64
	for epoch := 0; epoch < 2; epoch++ {
		loss := ws.RunEpoch()
		if loss > prev+1e-9 {
			t.Errorf("epoch %d: loss increased from %v to %v", epoch, prev, loss)
		}
		prev = loss
	}
}

// P8: thread invariance — single-worker and multi-worker runs agree.
func TestThreadInvarianceOfCCD(t *testing.T) {
	ws1, _ := buildWorkspace(t, 2, 1)
	ws1.InitResidual()
	loss1 := ws1.RunEpoch()

	ws2, _ := buildWorkspace(t, 2, 4)
	ws2.InitResidual()
	loss2 := ws2.RunEpoch()

	if math.Abs(loss1-loss2) > 1e-6*math.Max(1, math.Abs(loss1)) {
		t.Errorf("loss with 1 worker = %v, with 4 workers = %v", loss1, loss2)
	}
	for m := 0; m < 3; m++ {
		for i := range ws1.Factors[m].Data {
			if math.Abs(ws1.Factors[m].Data[i]-ws2.Factors[m].Data[i]) > 1e-6 {
				t.Errorf("factor %d entry %d diverged across thread counts: %v vs %v", m, i, ws1.Factors[m].Data[i], ws2.Factors[m].Data[i])
			}
		}
	}
}

func TestNewWorkspaceRejectsNonThreeModes(t *testing.T) {
	dims := []int{2, 2}
	ind := [][]int{{0, 1}, {0, 0}}
	vals := []float64{1, 2}
	x, err := coo.New(dims, ind, vals)
	if err != nil {
		t.Fatalf("coo.New() error = %v", err)
	}
	options := splatt.DefaultOptions()
	bundle, err := csf.Build(x, options)
	if err != nil {
		t.Fatalf("csf.Build() error = %v", err)
	}
	factors := [3]*matrix.Dense[float64]{allOnes(2, 1), allOnes(2, 1), allOnes(2, 1)}
	if _, err := NewWorkspace(bundle.Reps[0], factors, [3]float64{1, 1, 1}, options); err == nil {
		t.Fatalf("NewWorkspace() with a 2-mode CSF did not error")
	}
}
