package experiment

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/flip"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/lbm"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/sph"
)

// obstacleSolver is implemented by solvers with solid cells.
type obstacleSolver interface {
	AddObstacleCircle(cx, cy, r float64)
	AddObstacleRect(x0, y0, x1, y1 float64)
}

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    *log.Logger
	solver    Instance
	simulator *sim.Simulator
}

func New(cfg *config.Config, registry *Registry, logger *log.Logger) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Experiment{cfg: cfg, registry: registry, logger: logger}
}

// Setup validates the configuration, builds the solver, places the scene
// and attaches the default metrics plus any extra ones.
func (e *Experiment) Setup(extra ...sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	build, err := e.registry.Get(e.cfg.Solver)
	if err != nil {
		return err
	}
	solver, err := build(e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("initialize %s: %w", e.cfg.Solver, err)
	}
	placed := ApplyScene(solver, e.cfg.Scene)
	e.logger.Debug("scene placed", "solver", e.cfg.Solver, "added", placed)

	e.solver = solver
	e.simulator = sim.New(solver, e.logger)
	for _, m := range e.registry.DefaultMetrics(e.cfg) {
		e.simulator.AddMetric(m)
	}
	for _, m := range extra {
		e.simulator.AddMetric(m)
	}
	return nil
}

// ApplyScene adds volumes, emitters and, where supported, obstacles. It
// returns the number of particles or cells the volumes filled.
func ApplyScene(s Instance, scene config.Scene) int {
	if obs, ok := s.(obstacleSolver); ok {
		for _, o := range scene.Obstacles {
			switch o.Shape {
			case "circle":
				obs.AddObstacleCircle(o.Center.X, o.Center.Y, o.Radius)
			case "rect":
				obs.AddObstacleRect(o.Center.X-o.Size.X/2, o.Center.Y-o.Size.Y/2, o.Center.X+o.Size.X/2, o.Center.Y+o.Size.Y/2)
			}
		}
	}
	added := 0
	for _, v := range scene.Volumes {
		added += s.AddFluidVolume(v.Center, v.Size, v.Density)
	}
	for _, em := range scene.Emitters {
		s.AddEmitter(em)
	}
	return added
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, sim.Config{
		Steps:         e.cfg.Steps,
		Dt:            e.cfg.Dt,
		ValidateState: true,
	})
}

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Solver returns the built solver, nil before Setup.
func (e *Experiment) Solver() Instance { return e.solver }

// Close releases the solver's compute backend.
func (e *Experiment) Close() {
	if e.solver != nil {
		e.solver.Close()
	}
}

// Build is Setup without a simulator: it returns a solver with its scene
// placed, for viewers that drive Update themselves.
func Build(cfg *config.Config, logger *log.Logger) (Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, err := NewRegistry().Get(cfg.Solver)
	if err != nil {
		return nil, err
	}
	s, err := build(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize %s: %w", cfg.Solver, err)
	}
	ApplyScene(s, cfg.Scene)
	return s, nil
}

// Tunables returns the named scalar parameters cfg sets for its solver,
// keyed as the solver's GetParams keys them.
func Tunables(cfg *config.Config) (map[string]float64, error) {
	switch cfg.Solver {
	case "sph":
		s := sph.New(nil)
		s.SetParams(cfg.SPHParams())
		return s.GetParams(), nil
	case "flip":
		s := flip.New(nil)
		s.SetParams(cfg.FLIPParams())
		return s.GetParams(), nil
	case "lbm":
		s := lbm.New(nil)
		s.SetParams(cfg.LBMParams())
		return s.GetParams(), nil
	}
	return nil, fmt.Errorf("%w: %s", fluid.ErrUnknownSolver, cfg.Solver)
}

// Retune applies every tunable of cfg that differs from the solver's current
// value and returns the changed names in sorted order.
func Retune(s fluid.Configurable, cfg *config.Config) ([]string, error) {
	want, err := Tunables(cfg)
	if err != nil {
		return nil, err
	}
	have := s.GetParams()
	var changed []string
	for k, v := range want {
		if cur, ok := have[k]; ok && cur != v {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	for _, k := range changed {
		if err := s.SetParam(k, want[k]); err != nil {
			return changed, err
		}
	}
	return changed, nil
}
