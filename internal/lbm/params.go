package lbm

import (
	"fmt"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// Params configures a lattice. Everything is in lattice units: one cell
// per unit length, one step per Update.
type Params struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	Tau             float64 `yaml:"tau"`
	InitialDensity  float64 `yaml:"initial_density"`
	ColorBy         string  `yaml:"color_by"`
	UseAcceleration bool    `yaml:"use_acceleration"`
}

func DefaultParams() Params {
	return Params{
		Width:          128,
		Height:         64,
		Tau:            0.6,
		InitialDensity: 1,
		ColorBy:        "speed",
	}
}

// Viscosity is the kinematic viscosity implied by Tau.
func (p Params) Viscosity() float64 {
	return (p.Tau - 0.5) / 3
}

func (s *Solver) GetParams() map[string]float64 {
	p := s.params
	return map[string]float64{
		"width":           float64(p.Width),
		"height":          float64(p.Height),
		"tau":             p.Tau,
		"viscosity":       p.Viscosity(),
		"initial_density": p.InitialDensity,
	}
}

// SetParam changes one tunable. Setting viscosity adjusts Tau. width and
// height apply on the next Initialize.
func (s *Solver) SetParam(name string, v float64) error {
	p := &s.params
	switch name {
	case "width":
		p.Width = int(v)
	case "height":
		p.Height = int(v)
	case "tau":
		p.Tau = v
	case "viscosity":
		p.Tau = 3*v + 0.5
	case "initial_density":
		p.InitialDensity = v
	default:
		return fmt.Errorf("%w: lbm %q", fluid.ErrUnknownParam, name)
	}
	return nil
}
