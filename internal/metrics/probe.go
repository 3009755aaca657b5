package metrics

import (
	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointSampler is implemented by solvers that can report local fluid state.
type PointSampler interface {
	SampleAt(pos r3.Vec) (density float64, velocity r3.Vec)
}

// Probe records the speed at a fixed point each step. Its value is the
// mean speed over the run.
type Probe struct {
	name    string
	pos     r3.Vec
	current float64
	density float64
	total   float64
	samples int
}

func NewProbe(name string, pos r3.Vec) *Probe {
	return &Probe{name: "probe_" + name, pos: pos}
}

func (p *Probe) Name() string { return p.name }

// Position is the sampled point.
func (p *Probe) Position() r3.Vec { return p.pos }

func (p *Probe) Observe(_ fluid.Diagnostics, s fluid.Solver) {
	ps, ok := s.(PointSampler)
	if !ok {
		return
	}
	rho, v := ps.SampleAt(p.pos)
	p.density = rho
	p.current = r3.Norm(v)
	p.total += p.current
	p.samples++
}

func (p *Probe) Current() float64 { return p.current }

// Density is the local density at the last observation.
func (p *Probe) Density() float64 { return p.density }

func (p *Probe) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.total / float64(p.samples)
}

func (p *Probe) Reset() {
	p.current = 0
	p.density = 0
	p.total = 0
	p.samples = 0
}
