package automation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
)

// Sweep varies one tunable linearly between Min and Max over Count runs.
type Sweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Count int
}

// Values returns the swept parameter values.
func (s Sweep) Values() []float64 {
	if s.Count <= 1 {
		return []float64{s.Min}
	}
	vals := make([]float64, s.Count)
	step := (s.Max - s.Min) / float64(s.Count-1)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

// Point is one run of a sweep or search.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

// RunSweep runs every value of the sweep concurrently. Results keep the
// order of Values.
func (r *Runner) RunSweep(ctx context.Context, s Sweep) ([]Point, error) {
	if s.Base == nil {
		return nil, fmt.Errorf("sweep: no base config")
	}
	grid := make([]map[string]float64, 0, s.Count)
	for _, v := range s.Values() {
		grid = append(grid, map[string]float64{s.Param: v})
	}
	return r.runGrid(ctx, s.Base, grid), nil
}

// GridSearch tries every combination of the listed parameter values and
// returns all points plus the one minimizing metric. Failed runs never win.
func (r *Runner) GridSearch(ctx context.Context, base *config.Config, ranges map[string][]float64, metric string) ([]Point, *Point, error) {
	if base == nil {
		return nil, nil, fmt.Errorf("grid search: no base config")
	}
	names := make([]string, 0, len(ranges))
	for k := range ranges {
		names = append(names, k)
	}
	sort.Strings(names)

	var grid []map[string]float64
	var expand func(depth int, current map[string]float64)
	expand = func(depth int, current map[string]float64) {
		if depth == len(names) {
			grid = append(grid, current)
			return
		}
		for _, v := range ranges[names[depth]] {
			next := make(map[string]float64, len(current)+1)
			for k, cv := range current {
				next[k] = cv
			}
			next[names[depth]] = v
			expand(depth+1, next)
		}
	}
	expand(0, map[string]float64{})

	points := r.runGrid(ctx, base, grid)
	best := -1
	bestVal := math.Inf(1)
	for i, p := range points {
		v, ok := p.Metrics[metric]
		if p.Err != nil || !ok || math.IsNaN(v) {
			continue
		}
		if v < bestVal {
			best, bestVal = i, v
		}
	}
	if best < 0 {
		return points, nil, fmt.Errorf("grid search: no run reported %q", metric)
	}
	return points, &points[best], nil
}

// runGrid runs base once per parameter set.
func (r *Runner) runGrid(ctx context.Context, base *config.Config, grid []map[string]float64) []Point {
	cases := make([]runCase, len(grid))
	for i, params := range grid {
		cases[i] = runCase{cfg: base.Clone(), params: params}
	}
	return r.runAll(ctx, cases)
}

type runCase struct {
	cfg    *config.Config
	params map[string]float64
}

// runAll runs one job per case with sim.RunAll and closes every solver
// afterwards.
func (r *Runner) runAll(ctx context.Context, cases []runCase) []Point {
	var mu sync.Mutex
	var opened []*experiment.Experiment
	defer func() {
		for _, e := range opened {
			e.Close()
		}
	}()

	jobs := make([]sim.Job, len(cases))
	for i, rc := range cases {
		rc := rc
		jobs[i] = sim.Job{
			Name: label(rc.params),
			Build: func() (*sim.Simulator, error) {
				exp, err := setup(rc.cfg, rc.params, r.logger())
				if err != nil {
					return nil, err
				}
				mu.Lock()
				opened = append(opened, exp)
				mu.Unlock()
				return exp.GetSimulator(), nil
			},
			Cfg: sim.Config{Steps: rc.cfg.Steps, Dt: rc.cfg.Dt, ValidateState: true},
		}
	}

	outcomes := sim.RunAll(ctx, jobs, r.Limit)
	points := make([]Point, len(cases))
	for i, o := range outcomes {
		points[i] = Point{Params: cases[i].params, Err: o.Err}
		if o.Result != nil {
			points[i].Metrics = o.Result.Metrics
		}
		r.logger().Debug("run finished", "params", o.Name, "err", o.Err)
	}
	return points
}

func label(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, ",")
}
