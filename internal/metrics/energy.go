package metrics

import (
	"math"

	"github.com/san-kum/fluidsim/internal/fluid"
)

// KineticEnergy averages the total kinetic energy over a run.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
	current float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy_mean"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(d fluid.Diagnostics, _ fluid.Solver) {
	e.current = d.KineticEnergy
	e.total += d.KineticEnergy
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.current = 0
	e.samples = 0
}

// MassDrift tracks the largest relative change of total mass from the
// first observation. Emitters make mass grow, so drift is only meaningful
// for closed scenes.
type MassDrift struct {
	name     string
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(d fluid.Diagnostics, _ fluid.Solver) {
	if m.samples == 0 {
		m.initial = d.TotalMass
	}
	m.samples++
	m.current = 0
	if m.initial != 0 {
		m.current = math.Abs(d.TotalMass-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, m.current)
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Current() float64 { return m.current }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.current = 0
	m.maxDrift = 0
	m.samples = 0
}

// PeakSpeed is the largest particle or cell speed seen.
type PeakSpeed struct {
	peak float64
}

func NewPeakSpeed() *PeakSpeed { return &PeakSpeed{} }

func (p *PeakSpeed) Name() string { return "peak_speed" }

func (p *PeakSpeed) Observe(d fluid.Diagnostics, _ fluid.Solver) {
	p.peak = math.Max(p.peak, d.MaxSpeed)
}

func (p *PeakSpeed) Value() float64 { return p.peak }

func (p *PeakSpeed) Reset() { p.peak = 0 }
