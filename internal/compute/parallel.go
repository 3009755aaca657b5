package compute

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultMinChunk is the smallest range handed to a worker.
const DefaultMinChunk = 64

// ParallelBackend splits kernels into contiguous chunks across a bounded
// pool of goroutines.
type ParallelBackend struct {
	workers  int
	minChunk int
}

// NewParallelBackend creates a pool of the given size; workers <= 0 uses
// GOMAXPROCS.
func NewParallelBackend(workers int) *ParallelBackend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelBackend{workers: workers, minChunk: DefaultMinChunk}
}

// WithMinChunk sets the serial cutoff and returns the backend.
func (p *ParallelBackend) WithMinChunk(n int) *ParallelBackend {
	if n < 1 {
		n = 1
	}
	p.minChunk = n
	return p
}

func (p *ParallelBackend) Name() string    { return fmt.Sprintf("parallel(%d)", p.workers) }
func (p *ParallelBackend) Available() bool { return p.workers > 1 }
func (p *ParallelBackend) Cleanup()        {}

// Workers returns the pool size.
func (p *ParallelBackend) Workers() int { return p.workers }

func (p *ParallelBackend) Dispatch(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if n <= p.minChunk || p.workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + p.workers - 1) / p.workers
	if chunk < p.minChunk {
		chunk = p.minChunk
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
