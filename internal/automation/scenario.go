// Package automation scripts batches of runs: YAML scenarios executed in
// order, parameter sweeps, grid searches and seed ensembles executed in
// parallel.
package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/experiment"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs one preset with overrides. Params are applied through
// SetParam after the solver is built.
type ScenarioStep struct {
	Solver string             `yaml:"solver"`
	Preset string             `yaml:"preset"`
	Steps  int                `yaml:"steps"`
	Dt     float64            `yaml:"dt"`
	Seed   int64              `yaml:"seed"`
	Params map[string]float64 `yaml:"params"`
	SaveAs string             `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step. RunID is set when the
// step was stored.
type StepResult struct {
	Step   ScenarioStep
	Result *sim.Result
	RunID  string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q: no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the step into a run configuration.
func (st ScenarioStep) Config() (*config.Config, error) {
	var cfg *config.Config
	if st.Preset != "" {
		cfg = config.GetPreset(st.Solver, st.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", st.Solver, st.Preset)
		}
	} else {
		cfg = config.DefaultConfig()
		if st.Solver != "" {
			cfg.Solver = st.Solver
		}
	}
	if st.Steps > 0 {
		cfg.Steps = st.Steps
	}
	if st.Dt > 0 {
		cfg.Dt = st.Dt
	}
	if st.Seed != 0 {
		cfg.Seed = st.Seed
	}
	return cfg, nil
}

// Runner executes scenarios and sweeps. A nil Store skips persistence.
type Runner struct {
	Logger *log.Logger
	Store  *storage.Store
	// Limit caps concurrent runs in sweeps; zero means unbounded.
	Limit int
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// RunScenario executes the steps in order and stops at the first failure.
func (r *Runner) RunScenario(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for i, st := range sc.Steps {
		r.logger().Info("scenario step", "scenario", sc.Name, "step", i+1, "of", len(sc.Steps), "solver", st.Solver, "preset", st.Preset)

		cfg, err := st.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res, err := r.runOne(ctx, cfg, st.Params)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		out := StepResult{Step: st, Result: res}
		if st.SaveAs != "" && r.Store != nil {
			id, err := r.Store.Save(cfg, st.SaveAs, res, nil)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			out.RunID = id
		}
		results = append(results, out)
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, cfg *config.Config, params map[string]float64) (*sim.Result, error) {
	exp, err := setup(cfg, params, r.logger())
	if err != nil {
		return nil, err
	}
	defer exp.Close()
	return exp.Run(ctx)
}

// setup builds an experiment and applies params on top of its config.
func setup(cfg *config.Config, params map[string]float64, logger *log.Logger) (*experiment.Experiment, error) {
	exp := experiment.New(cfg, nil, logger)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	for k, v := range params {
		if err := exp.Solver().SetParam(k, v); err != nil {
			exp.Close()
			return nil, err
		}
	}
	return exp, nil
}
