package flip

import (
	"math"

	"github.com/san-kum/fluidsim/internal/field"
	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Update advances one step: particles to grid, divergence, pressure solve,
// grid to particles, advection, boundary. dt <= 0 uses Params.TimeStep.
func (s *Solver) Update(dt float64) {
	if !s.state.Ready() {
		return
	}
	if dt <= 0 {
		dt = s.params.TimeStep
	}
	s.state = fluid.Updating
	s.emit(dt)

	s.project()

	b := s.exec.Backend()
	b.Dispatch(len(s.particles), func(lo, hi int) { s.advect(lo, hi, dt) })
	b.Dispatch(len(s.particles), s.boundary)

	s.step++
	s.time += dt
}

// project runs the grid half of a step and leaves the particle velocities
// with the pressure gradient removed.
func (s *Solver) project() {
	b := s.exec.Backend()
	s.particlesToGrid()
	b.Dispatch(s.div.Len(), s.divergence)
	s.residual = maxAbs(s.div.Data)
	s.solvePressure()
	b.Dispatch(len(s.particles), s.gridToParticles)
}

func (s *Solver) emit(dt float64) {
	for e := range s.emitters {
		em := &s.emitters[e]
		due := em.Due(dt)
		density := em.Density
		if density <= 0 {
			density = 1
		}
		for k := 0; k < due; k++ {
			p := Particle{
				Position: r3.Add(em.Position, s.jitter(em.Radius)),
				Velocity: r3.Add(em.Velocity, s.jitter(em.Spread)),
				Density:  density,
				Color:    em.Color,
			}
			if !s.AddParticle(p) {
				em.Reset()
				break
			}
		}
	}
}

func (s *Solver) jitter(r float64) r3.Vec {
	if r <= 0 {
		return r3.Vec{}
	}
	for {
		v := r3.Vec{X: 2*s.rng.Float64() - 1, Y: 2*s.rng.Float64() - 1, Z: 2*s.rng.Float64() - 1}
		if r3.Norm2(v) <= 1 {
			return r3.Scale(r, v)
		}
	}
}

// cellOf returns the enclosing cell, clamped onto the grid.
func (s *Solver) cellOf(p r3.Vec) (int, int, int) {
	at := func(x, o float64) int {
		c := int(math.Floor((x - o) / s.dx))
		return min(max(c, 0), s.n-1)
	}
	return at(p.X, s.origin.X), at(p.Y, s.origin.Y), at(p.Z, s.origin.Z)
}

// particlesToGrid splats serially: neighbouring particles share faces, so
// the scatter cannot be split by particle range.
func (s *Solver) particlesToGrid() {
	for _, g := range []*field.Grid3{s.u, s.v, s.w, s.uw, s.vw, s.ww, s.density, s.count} {
		g.Zero()
	}
	for idx := range s.particles {
		p := &s.particles[idx]
		i, j, k := s.cellOf(p.Position)
		s.cell[idx] = s.count.Index(i, j, k)

		s.u.Add(i, j, k, p.Velocity.X)
		s.u.Add(i+1, j, k, p.Velocity.X)
		s.uw.Add(i, j, k, 1)
		s.uw.Add(i+1, j, k, 1)

		s.v.Add(i, j, k, p.Velocity.Y)
		s.v.Add(i, j+1, k, p.Velocity.Y)
		s.vw.Add(i, j, k, 1)
		s.vw.Add(i, j+1, k, 1)

		s.w.Add(i, j, k, p.Velocity.Z)
		s.w.Add(i, j, k+1, p.Velocity.Z)
		s.ww.Add(i, j, k, 1)
		s.ww.Add(i, j, k+1, 1)

		s.density.Add(i, j, k, p.Density)
		s.count.Add(i, j, k, 1)
	}

	b := s.exec.Backend()
	normalize := func(g, weight *field.Grid3) {
		b.Dispatch(g.Len(), func(lo, hi int) {
			for c := lo; c < hi; c++ {
				if w := weight.Data[c]; w > 0 {
					g.Data[c] /= w
				}
			}
		})
	}
	normalize(s.u, s.uw)
	normalize(s.v, s.vw)
	normalize(s.w, s.ww)
	normalize(s.density, s.count)
}

func (s *Solver) coords(c int) (int, int, int) {
	n := s.n
	return c % n, (c / n) % n, c / (n * n)
}

func (s *Solver) interior(i, j, k int) bool {
	last := s.n - 1
	return i > 0 && j > 0 && k > 0 && i < last && j < last && k < last
}

func (s *Solver) divergence(lo, hi int) {
	for c := lo; c < hi; c++ {
		i, j, k := s.coords(c)
		if !s.interior(i, j, k) {
			s.div.Data[c] = 0
			continue
		}
		du := s.u.At(i+1, j, k) - s.u.At(i, j, k)
		dv := s.v.At(i, j+1, k) - s.v.At(i, j, k)
		dw := s.w.At(i, j, k+1) - s.w.At(i, j, k)
		s.div.Data[c] = (du + dv + dw) / s.dx
	}
}

// solvePressure runs exactly PressureIterations Jacobi sweeps of
// ∇²p = div from a zero guess. The boundary ring stays at zero.
func (s *Solver) solvePressure() {
	s.pressure.Zero()
	s.scratch.Zero()
	b := s.exec.Backend()
	for it := 0; it < s.params.PressureIterations; it++ {
		b.Dispatch(s.pressure.Len(), s.jacobi)
		s.pressure, s.scratch = s.scratch, s.pressure
	}
}

func (s *Solver) jacobi(lo, hi int) {
	n := s.n
	nn := n * n
	p := s.pressure.Data
	dx2 := s.dx * s.dx
	for c := lo; c < hi; c++ {
		i, j, k := s.coords(c)
		if !s.interior(i, j, k) {
			s.scratch.Data[c] = 0
			continue
		}
		sum := p[c-1] + p[c+1] + p[c-n] + p[c+n] + p[c-nn] + p[c+nn]
		s.scratch.Data[c] = (sum - dx2*s.div.Data[c]) / 6
	}
}

func (s *Solver) gridToParticles(lo, hi int) {
	for idx := lo; idx < hi; idx++ {
		i, j, k := s.coords(s.cell[idx])
		g := r3.Vec{
			X: s.gradient(i, s.n, func(a int) float64 { return s.pressure.At(a, j, k) }),
			Y: s.gradient(j, s.n, func(a int) float64 { return s.pressure.At(i, a, k) }),
			Z: s.gradient(k, s.n, func(a int) float64 { return s.pressure.At(i, j, a) }),
		}
		p := &s.particles[idx]
		p.Velocity = r3.Sub(p.Velocity, g)
	}
}

// gradient is a central difference along one axis, one-sided at the edges.
func (s *Solver) gradient(a, n int, at func(int) float64) float64 {
	switch {
	case a == 0:
		return (at(1) - at(0)) / s.dx
	case a == n-1:
		return (at(a) - at(a-1)) / s.dx
	default:
		return (at(a+1) - at(a-1)) / (2 * s.dx)
	}
}

func (s *Solver) advect(lo, hi int, dt float64) {
	damp := math.Max(0, 1-s.params.Viscosity*dt)
	for i := lo; i < hi; i++ {
		p := &s.particles[i]
		p.Velocity = r3.Scale(damp, r3.Add(p.Velocity, r3.Scale(dt, s.params.Gravity)))
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
		p.Age += dt
	}
}

func (s *Solver) boundary(lo, hi int) {
	box := fluid.CenteredBox(float64(s.n) * s.dx / 2)
	for i := lo; i < hi; i++ {
		p := &s.particles[i]
		box.Reflect(&p.Position, &p.Velocity, s.params.Restitution)
	}
}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > m || math.IsNaN(x) {
			m = a
		}
	}
	return m
}
