package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run. Build must return a fresh simulator; jobs
// never share solvers.
type Job struct {
	Name  string
	Build func() (*Simulator, error)
	Cfg   Config
}

// Outcome pairs a job with its result.
type Outcome struct {
	Name   string
	Result *Result
	Err    error
}

// RunAll executes jobs concurrently, at most limit at a time (limit <= 0
// means unbounded). A failing job does not cancel the others; its error is
// reported in its Outcome.
func RunAll(ctx context.Context, jobs []Job, limit int) []Outcome {
	out := make([]Outcome, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			out[i].Name = job.Name
			sim, err := job.Build()
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Result, out[i].Err = sim.Run(ctx, job.Cfg)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
