package flip

import (
	"fmt"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params configures a FLIP solver. The domain is the cube of edge GridSize
// centred on the origin, split into Resolution cells per axis.
type Params struct {
	TimeStep           float64 `yaml:"time_step"`
	GridSize           float64 `yaml:"grid_size"`
	Resolution         int     `yaml:"resolution"`
	PressureIterations int     `yaml:"pressure_iterations"`
	ParticleSpacing    float64 `yaml:"particle_spacing"`
	Gravity            r3.Vec  `yaml:"gravity"`
	Viscosity          float64 `yaml:"viscosity"`
	Restitution        float64 `yaml:"restitution"`
	ColorBy            string  `yaml:"color_by"`
	MaxParticles       int     `yaml:"max_particles"`
	UseAcceleration    bool    `yaml:"use_acceleration"`
	Seed               int64   `yaml:"seed"`
}

func DefaultParams() Params {
	return Params{
		TimeStep:           1.0 / 60,
		GridSize:           2,
		Resolution:         32,
		PressureIterations: 40,
		Gravity:            r3.Vec{Y: -9.81},
		Viscosity:          0.1,
		Restitution:        fluid.DefaultRestitution,
		ColorBy:            "speed",
		MaxParticles:       50000,
		Seed:               1,
	}
}

// CellSize is the grid spacing dx.
func (p Params) CellSize() float64 {
	if p.Resolution <= 0 {
		return 0
	}
	return p.GridSize / float64(p.Resolution)
}

func (p Params) spacing() float64 {
	if p.ParticleSpacing > 0 {
		return p.ParticleSpacing
	}
	return p.CellSize() / 2
}

// Bounds is the cube of half extent GridSize/2.
func (p Params) Bounds() fluid.Box {
	return fluid.CenteredBox(p.GridSize / 2)
}

func (s *Solver) GetParams() map[string]float64 {
	p := s.params
	return map[string]float64{
		"time_step":           p.TimeStep,
		"grid_size":           p.GridSize,
		"resolution":          float64(p.Resolution),
		"pressure_iterations": float64(p.PressureIterations),
		"gravity":             p.Gravity.Y,
		"viscosity":           p.Viscosity,
		"restitution":         p.Restitution,
	}
}

// SetParam changes one tunable. grid_size and resolution are recorded but
// only take effect on the next Initialize.
func (s *Solver) SetParam(name string, v float64) error {
	p := &s.params
	switch name {
	case "time_step":
		p.TimeStep = v
	case "grid_size":
		p.GridSize = v
	case "resolution":
		p.Resolution = int(v)
	case "pressure_iterations":
		p.PressureIterations = int(v)
	case "gravity":
		p.Gravity.Y = v
	case "viscosity":
		p.Viscosity = v
	case "restitution":
		p.Restitution = v
	default:
		return fmt.Errorf("%w: flip %q", fluid.ErrUnknownParam, name)
	}
	return nil
}
