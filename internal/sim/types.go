package sim

import (
	"time"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(d fluid.Diagnostics, s fluid.Solver)
	Value() float64
	Reset()
}

// Sampler is a Metric that also reports a per-step value. Each Sampler
// becomes a column of the run series.
type Sampler interface {
	Metric
	Current() float64
}

type Observer interface {
	OnStep(s fluid.Solver, d fluid.Diagnostics)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s fluid.Solver, d fluid.Diagnostics)

func (f ObserverFunc) OnStep(s fluid.Solver, d fluid.Diagnostics) { f(s, d) }

type Config struct {
	Steps         int
	Dt            float64 // 0 uses the solver's own time step
	ValidateState bool
}

// Columns always present at the start of every series row.
var Columns = []string{"time", "count", "mass", "kinetic_energy", "max_speed", "mean_density"}

type Result struct {
	Solver     string
	Backend    string
	Columns    []string
	Rows       [][]float64
	Metrics    map[string]float64
	StepsTaken int
	Elapsed    time.Duration
	Errors     []error
}

// Series returns one column by name, or nil.
func (r *Result) Series(name string) []float64 {
	col := -1
	for i, c := range r.Columns {
		if c == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[col]
	}
	return out
}

// Final returns the last diagnostics row as a map keyed by column.
func (r *Result) Final() map[string]float64 {
	if len(r.Rows) == 0 {
		return nil
	}
	last := r.Rows[len(r.Rows)-1]
	out := make(map[string]float64, len(r.Columns))
	for i, c := range r.Columns {
		out[c] = last[i]
	}
	return out
}
