package parallel

import "golang.org/x/sync/errgroup"

// Region runs a fixed set of fallible steps concurrently and aggregates
// their errors, for the one place in the kernels where a parallel sweep
// can itself fail: the per-worker scratch-size check a TTMc or CCD
// NewWorkspace runs before allocating. Pool's ParallelFor family assumes
// fn cannot fail, since tensor arithmetic over an already-allocated
// workspace never does; Region exists for the check that precedes it.
type Region struct {
	g *errgroup.Group
}

// NewRegion returns an empty Region.
func NewRegion() *Region {
	return &Region{g: new(errgroup.Group)}
}

// Go schedules fn to run in the region. Once any fn returns a non-nil
// error, Wait returns that error (the first one observed); subsequently
// scheduled fn still run to completion.
func (r *Region) Go(fn func() error) {
	r.g.Go(fn)
}

// Wait blocks until every scheduled fn has returned, and reports the
// first error any of them produced, if any.
func (r *Region) Wait() error {
	return r.g.Wait()
}
