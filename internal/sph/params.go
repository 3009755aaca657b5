package sph

import (
	"fmt"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params configures an SPH solver.
type Params struct {
	TimeStep           float64   `yaml:"time_step"`
	SmoothingRadius    float64   `yaml:"smoothing_radius"`
	ParticleSpacing    float64   `yaml:"particle_spacing"`
	ParticleMass       float64   `yaml:"particle_mass"`
	RestDensity        float64   `yaml:"rest_density"`
	GasConstant        float64   `yaml:"gas_constant"`
	Viscosity          float64   `yaml:"viscosity"`
	SurfaceTension     float64   `yaml:"surface_tension"`
	SurfaceThreshold   float64   `yaml:"surface_threshold"`
	Buoyancy           float64   `yaml:"buoyancy"`
	AmbientTemperature float64   `yaml:"ambient_temperature"`
	Gravity            r3.Vec    `yaml:"gravity"`
	VelocityDamping    float64   `yaml:"velocity_damping"`
	Restitution        float64   `yaml:"restitution"`
	Bounds             fluid.Box `yaml:"bounds"`
	Dimensions         int       `yaml:"dimensions"`
	ColorBy            string    `yaml:"color_by"`
	MaxParticles       int       `yaml:"max_particles"`
	UseAcceleration    bool      `yaml:"use_acceleration"`
	Seed               int64     `yaml:"seed"`
}

// DefaultParams returns a water-like setup in a 2 m cube.
func DefaultParams() Params {
	return Params{
		TimeStep:           1.0 / 120,
		SmoothingRadius:    0.1,
		ParticleSpacing:    0.05,
		ParticleMass:       0.125,
		RestDensity:        1000,
		GasConstant:        3,
		Viscosity:          3.5,
		SurfaceTension:     0.0728,
		SurfaceThreshold:   0.1,
		Buoyancy:           0,
		AmbientTemperature: 20,
		Gravity:            r3.Vec{Y: -9.81},
		VelocityDamping:    0.999,
		Restitution:        fluid.DefaultRestitution,
		Bounds:             fluid.CenteredBox(1),
		Dimensions:         3,
		ColorBy:            "density",
		MaxParticles:       20000,
		Seed:               1,
	}
}

func (p Params) spacing() float64 {
	if p.ParticleSpacing > 0 {
		return p.ParticleSpacing
	}
	return p.SmoothingRadius / 2
}

func (p Params) planar() bool { return p.Dimensions == 2 }

// GetParams exposes the scalar tunables.
func (s *Solver) GetParams() map[string]float64 {
	p := s.params
	return map[string]float64{
		"time_step":           p.TimeStep,
		"smoothing_radius":    p.SmoothingRadius,
		"particle_mass":       p.ParticleMass,
		"rest_density":        p.RestDensity,
		"gas_constant":        p.GasConstant,
		"viscosity":           p.Viscosity,
		"surface_tension":     p.SurfaceTension,
		"surface_threshold":   p.SurfaceThreshold,
		"buoyancy":            p.Buoyancy,
		"ambient_temperature": p.AmbientTemperature,
		"gravity":             p.Gravity.Y,
		"velocity_damping":    p.VelocityDamping,
		"restitution":         p.Restitution,
	}
}

// SetParam changes one tunable. Changing the smoothing radius rebuilds the
// kernel and the neighbor grid, or returns fluid.ErrAllocation when that
// grid would not fit.
func (s *Solver) SetParam(name string, v float64) error {
	p := &s.params
	switch name {
	case "time_step":
		p.TimeStep = v
	case "smoothing_radius":
		next := *p
		next.SmoothingRadius = v
		if err := checkGrid(next); err != nil {
			return fmt.Errorf("sph smoothing_radius %g: %w", v, err)
		}
		p.SmoothingRadius = v
		if s.state.Ready() {
			s.setupGrid()
		}
	case "particle_mass":
		p.ParticleMass = v
	case "rest_density":
		p.RestDensity = v
	case "gas_constant":
		p.GasConstant = v
	case "viscosity":
		p.Viscosity = v
	case "surface_tension":
		p.SurfaceTension = v
	case "surface_threshold":
		p.SurfaceThreshold = v
	case "buoyancy":
		p.Buoyancy = v
	case "ambient_temperature":
		p.AmbientTemperature = v
	case "gravity":
		p.Gravity.Y = v
	case "velocity_damping":
		p.VelocityDamping = v
	case "restitution":
		p.Restitution = v
	default:
		return fmt.Errorf("%w: sph %q", fluid.ErrUnknownParam, name)
	}
	return nil
}
