package experiment

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/flip"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/lbm"
	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/sph"
	"gonum.org/v1/gonum/spatial/r3"
)

// Instance is an initialized solver plus the typed scene operations every
// solver in the registry supports.
type Instance interface {
	fluid.Solver
	AddFluidVolume(center, size r3.Vec, density float64) int
	AddEmitter(e fluid.Emitter)
	Close()
}

// Factory builds and initializes a solver from a run configuration.
type Factory func(cfg *config.Config, logger *log.Logger) (Instance, error)

type Registry struct {
	solvers map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{solvers: make(map[string]Factory)}

	r.solvers["sph"] = func(cfg *config.Config, logger *log.Logger) (Instance, error) {
		s := sph.New(logger)
		if err := s.Initialize(cfg.SPHParams()); err != nil {
			return nil, err
		}
		return s, nil
	}
	r.solvers["flip"] = func(cfg *config.Config, logger *log.Logger) (Instance, error) {
		s := flip.New(logger)
		if err := s.Initialize(cfg.FLIPParams()); err != nil {
			return nil, err
		}
		return s, nil
	}
	r.solvers["lbm"] = func(cfg *config.Config, logger *log.Logger) (Instance, error) {
		s := lbm.New(logger)
		if err := s.Initialize(cfg.LBMParams()); err != nil {
			return nil, err
		}
		return s, nil
	}

	return r
}

// Register adds or replaces a solver factory.
func (r *Registry) Register(name string, f Factory) {
	r.solvers[name] = f
}

func (r *Registry) Get(name string) (Factory, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fluid.ErrUnknownSolver, name)
	}
	return fn, nil
}

// ListSolvers returns the registered names in sorted order.
func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the standard run metrics plus one probe per scene
// probe point.
func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewMassDrift(),
		metrics.NewKineticEnergy(),
		metrics.NewPeakSpeed(),
		metrics.NewStability(stabilityLimit(cfg.Solver)),
	}
	for _, p := range cfg.Scene.Probes {
		ms = append(ms, metrics.NewProbe(p.Name, p.Position))
	}
	return ms
}

// stabilityLimit is the speed above which a step counts as unstable:
// lattice speeds must stay well below the lattice sound speed.
func stabilityLimit(solver string) float64 {
	if solver == "lbm" {
		return 0.3
	}
	return 50
}
