package fluid

import "gonum.org/v1/gonum/spatial/r3"

// Emitter describes a continuous particle source. Lattice solvers read it
// as a velocity inlet: Position and Radius give the region, Rate is unused.
type Emitter struct {
	Position    r3.Vec  `yaml:"position"`
	Velocity    r3.Vec  `yaml:"velocity"`
	Rate        float64 `yaml:"rate"`
	Radius      float64 `yaml:"radius"`
	Spread      float64 `yaml:"spread"`
	Density     float64 `yaml:"density"`
	Temperature float64 `yaml:"temperature"`
	Color       float64 `yaml:"color"`
}

// Pending tracks fractional emission between steps.
type Pending struct {
	Emitter
	carry float64
}

// Due adds rate·dt and returns the whole number of particles to spawn.
func (p *Pending) Due(dt float64) int {
	if p.Rate <= 0 || dt <= 0 {
		return 0
	}
	p.carry += p.Rate * dt
	n := int(p.carry)
	p.carry -= float64(n)
	return n
}

// Reset drops any fractional particle.
func (p *Pending) Reset() { p.carry = 0 }
