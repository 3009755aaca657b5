package lbm

import (
	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
)

// Update runs collide, stream, bounce-back and macroscopic recovery once.
// The lattice has its own time unit, so dt is ignored.
func (s *Solver) Update(float64) {
	if !s.state.Ready() {
		return
	}
	s.state = fluid.Updating

	b := s.exec.Backend()
	cells := s.nx * s.ny
	omega := 1 / s.params.Tau

	if !s.stepAccelerated(b, omega) {
		b.Dispatch(cells, func(lo, hi int) { s.collide(lo, hi, omega) })
		b.Dispatch(cells, s.stream)
		s.f, s.tmp = s.tmp, s.f
	}
	b.Dispatch(cells, s.bounceBack)
	s.applyInlets()
	b.Dispatch(cells, s.macroscopic)
	s.step++
}

// stepAccelerated hands collide+stream to a native lattice backend. A
// failure demotes the executor and the step falls through to the CPU path.
func (s *Solver) stepAccelerated(b compute.Backend, omega float64) bool {
	ls, ok := b.(compute.LatticeStepper)
	if !ok {
		return false
	}
	if err := ls.CollideStream(s.f, s.solid, s.nx, s.ny, omega); err != nil {
		s.exec.Demote(err)
		return false
	}
	return true
}

// collide relaxes fluid cells toward equilibrium in place.
func (s *Solver) collide(lo, hi int, omega float64) {
	for c := lo; c < hi; c++ {
		if s.solid[c] {
			continue
		}
		f := s.f[c*Q : c*Q+Q]
		rho, ux, uy := moments(f)
		for q := range f {
			f[q] += omega * (Equilibrium(q, rho, ux, uy) - f[q])
		}
	}
}

// stream pulls each direction from the upwind cell, wrapping at the edges.
func (s *Solver) stream(lo, hi int) {
	for c := lo; c < hi; c++ {
		x, y := c%s.nx, c/s.nx
		for q := 0; q < Q; q++ {
			src := s.rho.Wrap(x-CX[q], y-CY[q])
			s.tmp[c*Q+q] = s.f[src*Q+q]
		}
	}
}

// bounceBack reverses every distribution that streamed into a solid cell.
func (s *Solver) bounceBack(lo, hi int) {
	for c := lo; c < hi; c++ {
		if !s.solid[c] {
			continue
		}
		f := s.f[c*Q : c*Q+Q]
		for q := 1; q < Q; q++ {
			if o := Opposite[q]; q < o {
				f[q], f[o] = f[o], f[q]
			}
		}
	}
}

func (s *Solver) applyInlets() {
	for _, in := range s.inlets {
		rho := in.Density
		if rho <= 0 {
			rho = s.params.InitialDensity
		}
		r := in.Radius
		if r <= 0 {
			r = 0.5
		}
		s.eachCell(in.Position.X-r, in.Position.Y-r, in.Position.X+r, in.Position.Y+r, func(x, y int) {
			c := s.rho.Index(x, y)
			dx, dy := float64(x)+0.5-in.Position.X, float64(y)+0.5-in.Position.Y
			if s.solid[c] || dx*dx+dy*dy > r*r {
				return
			}
			s.equilibrate(c, rho, in.Velocity.X, in.Velocity.Y)
		})
	}
}

// macroscopic recomputes density and velocity at every cell, obstacles
// included. An obstacle's velocity is that of its bounced populations, not
// a wall velocity; Vorticity treats obstacle cells as still.
func (s *Solver) macroscopic(lo, hi int) {
	for c := lo; c < hi; c++ {
		rho, ux, uy := moments(s.f[c*Q : c*Q+Q])
		s.rho.Data[c] = rho
		s.ux.Data[c] = ux
		s.uy.Data[c] = uy
	}
}
