package automation

import (
	"context"
	"fmt"

	"github.com/san-kum/fluidsim/internal/config"
)

// Trial is one seed of an ensemble. A trial is stable when every step was
// finite and under the solver's speed limit.
type Trial struct {
	Seed    int64
	Stable  bool
	Metrics map[string]float64
	Err     error
}

// RunEnsemble repeats base with seeds base.Seed, base.Seed+1, ... so that
// particle jitter differs between trials. Trials run concurrently.
func (r *Runner) RunEnsemble(ctx context.Context, base *config.Config, trials int) ([]Trial, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("ensemble: need at least one trial, got %d", trials)
	}
	cases := make([]runCase, trials)
	for i := range cases {
		cfg := base.Clone()
		cfg.Seed = base.Seed + int64(i)
		cases[i] = runCase{cfg: cfg}
	}

	out := make([]Trial, trials)
	for i, p := range r.runAll(ctx, cases) {
		out[i] = Trial{
			Seed:    cases[i].cfg.Seed,
			Metrics: p.Metrics,
			Err:     p.Err,
			Stable:  p.Err == nil && p.Metrics["stability"] == 1,
		}
	}
	return out, nil
}

// Stats counts stable and unstable trials.
func Stats(trials []Trial) (stable, unstable int) {
	for _, t := range trials {
		if t.Stable {
			stable++
		} else {
			unstable++
		}
	}
	return
}
