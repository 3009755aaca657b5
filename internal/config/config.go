package config

import (
	"fmt"
	"os"

	"github.com/san-kum/fluidsim/internal/flip"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/lbm"
	"github.com/san-kum/fluidsim/internal/sph"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSolver = "sph"
	DefaultSteps  = 600
	DefaultSeed   = 1
)

// Solvers lists the names accepted in Config.Solver.
var Solvers = []string{"sph", "flip", "lbm"}

type Config struct {
	Solver     string      `yaml:"solver"`
	Steps      int         `yaml:"steps"`
	Dt         float64     `yaml:"dt"`
	Seed       int64       `yaml:"seed"`
	Accelerate bool        `yaml:"accelerate"`
	SPH        sph.Params  `yaml:"sph"`
	FLIP       flip.Params `yaml:"flip"`
	LBM        lbm.Params  `yaml:"lbm"`
	Scene      Scene       `yaml:"scene"`
}

// Scene is what gets placed into a solver after Initialize.
type Scene struct {
	Volumes   []Volume        `yaml:"volumes"`
	Emitters  []fluid.Emitter `yaml:"emitters"`
	Obstacles []Obstacle      `yaml:"obstacles"`
	Probes    []Probe         `yaml:"probes"`
}

type Volume struct {
	Center  r3.Vec  `yaml:"center"`
	Size    r3.Vec  `yaml:"size"`
	Density float64 `yaml:"density"`
}

// Obstacle is a solid region. Only lattice solvers use them.
type Obstacle struct {
	Shape  string  `yaml:"shape"` // circle or rect
	Center r3.Vec  `yaml:"center"`
	Radius float64 `yaml:"radius"`
	Size   r3.Vec  `yaml:"size"`
}

// Probe names a point whose local state is recorded every step.
type Probe struct {
	Name     string `yaml:"name"`
	Position r3.Vec `yaml:"position"`
}

func DefaultConfig() *Config {
	return &Config{
		Solver: DefaultSolver,
		Steps:  DefaultSteps,
		Seed:   DefaultSeed,
		SPH:    sph.DefaultParams(),
		FLIP:   flip.DefaultParams(),
		LBM:    lbm.DefaultParams(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse unmarshals YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", fluid.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Scene.Volumes = append([]Volume(nil), c.Scene.Volumes...)
	out.Scene.Emitters = append([]fluid.Emitter(nil), c.Scene.Emitters...)
	out.Scene.Obstacles = append([]Obstacle(nil), c.Scene.Obstacles...)
	out.Scene.Probes = append([]Probe(nil), c.Scene.Probes...)
	return &out
}

// SPHParams returns the SPH section with the run-wide seed and
// acceleration flag applied.
func (c *Config) SPHParams() sph.Params {
	p := c.SPH
	p.Seed = c.Seed
	p.UseAcceleration = p.UseAcceleration || c.Accelerate
	if c.Dt > 0 {
		p.TimeStep = c.Dt
	}
	return p
}

func (c *Config) FLIPParams() flip.Params {
	p := c.FLIP
	p.Seed = c.Seed
	p.UseAcceleration = p.UseAcceleration || c.Accelerate
	if c.Dt > 0 {
		p.TimeStep = c.Dt
	}
	return p
}

func (c *Config) LBMParams() lbm.Params {
	p := c.LBM
	p.UseAcceleration = p.UseAcceleration || c.Accelerate
	return p
}

// TimeStep is the dt passed to Update.
func (c *Config) TimeStep() float64 {
	switch {
	case c.Dt > 0:
		return c.Dt
	case c.Solver == "flip":
		return c.FLIP.TimeStep
	case c.Solver == "lbm":
		return 1
	default:
		return c.SPH.TimeStep
	}
}

// Domain is the world box the configured solver renders into. Lattice
// cells span one unit each.
func (c *Config) Domain() fluid.Box {
	switch c.Solver {
	case "flip":
		return c.FLIP.Bounds()
	case "lbm":
		return fluid.Box{Max: r3.Vec{X: float64(c.LBM.Width), Y: float64(c.LBM.Height), Z: 1}}
	default:
		return c.SPH.Bounds
	}
}

// Validate rejects configurations no solver can run.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{fluid.ErrInvalidConfig}, args...)...)
	}

	if c.Steps < 0 {
		return invalid("steps must not be negative, got %d", c.Steps)
	}
	if c.Dt < 0 {
		return invalid("dt must not be negative, got %g", c.Dt)
	}

	switch c.Solver {
	case "sph":
		p := c.SPH
		switch {
		case p.SmoothingRadius <= 0:
			return invalid("sph smoothing_radius must be positive")
		case p.RestDensity <= 0:
			return invalid("sph rest_density must be positive")
		case p.ParticleMass <= 0:
			return invalid("sph particle_mass must be positive")
		case p.VelocityDamping <= 0 || p.VelocityDamping > 1:
			return invalid("sph velocity_damping must be in (0, 1], got %g", p.VelocityDamping)
		case p.Dimensions != 2 && p.Dimensions != 3:
			return invalid("sph dimensions must be 2 or 3, got %d", p.Dimensions)
		case p.MaxParticles < 0:
			return invalid("sph max_particles must not be negative")
		}
	case "flip":
		p := c.FLIP
		switch {
		case p.Resolution < 3:
			return invalid("flip resolution must be at least 3, got %d", p.Resolution)
		case p.GridSize <= 0:
			return invalid("flip grid_size must be positive")
		case p.PressureIterations < 0:
			return invalid("flip pressure_iterations must not be negative")
		case p.MaxParticles < 0:
			return invalid("flip max_particles must not be negative")
		}
	case "lbm":
		p := c.LBM
		switch {
		case p.Width <= 0 || p.Height <= 0:
			return invalid("lbm lattice must be non-empty, got %dx%d", p.Width, p.Height)
		case p.Tau <= 0.5:
			return invalid("lbm tau must exceed 0.5, got %g", p.Tau)
		}
	default:
		return fmt.Errorf("%w: %q", fluid.ErrUnknownSolver, c.Solver)
	}

	for i, o := range c.Scene.Obstacles {
		if o.Shape != "circle" && o.Shape != "rect" {
			return invalid("obstacle %d: unknown shape %q", i, o.Shape)
		}
	}
	return nil
}
