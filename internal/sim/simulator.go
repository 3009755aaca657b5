package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/fluid"
)

type Simulator struct {
	solver    fluid.Solver
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
}

func New(solver fluid.Solver, logger *log.Logger) *Simulator {
	if logger == nil {
		logger = log.Default()
	}
	return &Simulator{
		solver:    solver,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Solver returns the driven solver.
func (s *Simulator) Solver() fluid.Solver { return s.solver }

// Run advances the solver cfg.Steps times. The context is checked between
// steps; a step in progress always completes. With ValidateState a
// non-finite step stops the run with a *fluid.StepError wrapping
// fluid.ErrUnstable; the partial result is returned alongside it.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	columns := append([]string(nil), Columns...)
	var samplers []Sampler
	for _, m := range s.metrics {
		m.Reset()
		if sm, ok := m.(Sampler); ok {
			samplers = append(samplers, sm)
			columns = append(columns, sm.Name())
		}
	}

	result := &Result{
		Solver:  s.solver.Name(),
		Columns: columns,
		Rows:    make([][]float64, 0, cfg.Steps+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	d := s.solver.Diagnostics()
	result.Backend = d.Backend
	result.Rows = append(result.Rows, row(d, samplers))

	start := time.Now()
	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		s.solver.Update(cfg.Dt)
		d = s.solver.Diagnostics()

		for _, m := range s.metrics {
			m.Observe(d, s.solver)
		}
		for _, obs := range s.observers {
			obs.OnStep(s.solver, d)
		}

		result.StepsTaken++
		result.Rows = append(result.Rows, row(d, samplers))

		if cfg.ValidateState && !d.Finite {
			runErr = &fluid.StepError{Step: d.Step, Time: d.Time, Wrapped: fluid.ErrUnstable}
			result.Errors = append(result.Errors, runErr)
			s.logger.Warn("simulation diverged", "solver", result.Solver, "step", d.Step)
			break
		}
	}
	result.Elapsed = time.Since(start)
	result.Backend = d.Backend

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if secs := result.Elapsed.Seconds(); secs > 0 {
		result.Metrics["steps_per_second"] = float64(result.StepsTaken) / secs
	}

	s.logger.Debug("run finished", "solver", result.Solver, "steps", result.StepsTaken, "elapsed", result.Elapsed)
	return result, runErr
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.solver == nil {
		return fmt.Errorf("%w: no solver", fluid.ErrInvalidConfig)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", fluid.ErrInvalidConfig, cfg.Steps)
	}
	if cfg.Dt < 0 {
		return fmt.Errorf("%w: dt must not be negative, got %f", fluid.ErrInvalidConfig, cfg.Dt)
	}
	return nil
}

// RunWithCallback steps until the callback returns false or the context
// ends. It records nothing; live viewers use it.
func (s *Simulator) RunWithCallback(ctx context.Context, dt float64, callback func(fluid.Diagnostics) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.solver.Update(dt)
		d := s.solver.Diagnostics()
		for _, obs := range s.observers {
			obs.OnStep(s.solver, d)
		}
		if !callback(d) {
			return nil
		}
	}
}

func row(d fluid.Diagnostics, samplers []Sampler) []float64 {
	r := make([]float64, 0, len(Columns)+len(samplers))
	r = append(r, d.Time, float64(d.Count), d.TotalMass, d.KineticEnergy, d.MaxSpeed, d.MeanDensity)
	for _, sm := range samplers {
		r = append(r, sm.Current())
	}
	return r
}
