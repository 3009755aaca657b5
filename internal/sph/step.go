package sph

import (
	"math"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Update advances one step. dt <= 0 uses Params.TimeStep. The phases run in
// fixed order: grid, neighbors, density, pressure, viscosity, surface
// tension, integration, boundary.
func (s *Solver) Update(dt float64) {
	if !s.state.Ready() {
		return
	}
	if dt <= 0 {
		dt = s.params.TimeStep
	}
	s.state = fluid.Updating
	s.emit(dt)

	n := len(s.particles)
	b := s.exec.Backend()

	s.syncPositions()
	s.grid.Rebuild(s.positions)

	b.Dispatch(n, s.findNeighbors)
	b.Dispatch(n, s.computeDensity)
	b.Dispatch(n, s.pressureForce)
	b.Dispatch(n, s.viscosityForce)
	b.Dispatch(n, s.surfaceTension)
	b.Dispatch(n, func(lo, hi int) { s.integrate(lo, hi, dt) })
	b.Dispatch(n, s.boundary)

	s.step++
	s.time += dt
}

func (s *Solver) syncPositions() {
	s.positions = s.positions[:len(s.particles)]
	for i := range s.particles {
		s.positions[i] = s.particles[i].Position
	}
}

func (s *Solver) emit(dt float64) {
	for e := range s.emitters {
		em := &s.emitters[e]
		due := em.Due(dt)
		mass := s.params.ParticleMass
		if em.Density > 0 {
			d := s.params.spacing()
			mass = em.Density * d * d * d
		}
		for k := 0; k < due; k++ {
			p := Particle{
				Position:    r3.Add(em.Position, s.jitter(em.Radius)),
				Velocity:    r3.Add(em.Velocity, s.jitter(em.Spread)),
				Mass:        mass,
				Density:     em.Density,
				Temperature: em.Temperature,
				Color:       em.Color,
			}
			if !s.AddParticle(p) {
				em.Reset()
				break
			}
		}
	}
}

// jitter returns a uniform sample from the ball of radius r.
func (s *Solver) jitter(r float64) r3.Vec {
	if r <= 0 {
		return r3.Vec{}
	}
	for {
		v := r3.Vec{X: 2*s.rng.Float64() - 1, Y: 2*s.rng.Float64() - 1, Z: 2*s.rng.Float64() - 1}
		if s.params.planar() {
			v.Z = 0
		}
		if r3.Norm2(v) <= 1 {
			return r3.Scale(r, v)
		}
	}
}

func (s *Solver) findNeighbors(lo, hi int) {
	h := s.params.SmoothingRadius
	for i := lo; i < hi; i++ {
		s.neighbors[i] = s.grid.NeighborsOf(i, h, s.neighbors[i])
	}
}

// density & pressure
func (s *Solver) computeDensity(lo, hi int) {
	k := s.kern
	for i := lo; i < hi; i++ {
		pi := &s.particles[i]
		rho := pi.Mass * k.Poly6(0)
		for _, j := range s.neighbors[i] {
			pj := &s.particles[j]
			rho += pj.Mass * k.Poly6(r3.Norm(r3.Sub(pi.Position, pj.Position)))
		}
		pi.Density = rho
		pi.Pressure = s.params.GasConstant * (rho - s.params.RestDensity)
	}
}

// volume converts a force density into the force on particle i.
func volume(p *Particle) float64 {
	if p.Density <= 0 {
		return 0
	}
	return p.Mass / p.Density
}

func (s *Solver) pressureForce(lo, hi int) {
	k := s.kern
	for i := lo; i < hi; i++ {
		pi := &s.particles[i]
		var f r3.Vec
		for _, j := range s.neighbors[i] {
			pj := &s.particles[j]
			if pj.Density <= 0 {
				continue
			}
			rv := r3.Sub(pi.Position, pj.Position)
			grad := k.SpikyGradient(rv, r3.Norm(rv))
			f = r3.Add(f, r3.Scale(-pj.Mass*(pi.Pressure+pj.Pressure)/(2*pj.Density), grad))
		}
		s.force[i] = r3.Scale(volume(pi), f)
	}
}

func (s *Solver) viscosityForce(lo, hi int) {
	if s.params.Viscosity == 0 {
		return
	}
	k := s.kern
	for i := lo; i < hi; i++ {
		pi := &s.particles[i]
		var f r3.Vec
		for _, j := range s.neighbors[i] {
			pj := &s.particles[j]
			if pj.Density <= 0 {
				continue
			}
			lap := math.Abs(k.ViscosityLaplacian(r3.Norm(r3.Sub(pi.Position, pj.Position))))
			f = r3.Add(f, r3.Scale(pj.Mass/pj.Density*lap, r3.Sub(pj.Velocity, pi.Velocity)))
		}
		s.force[i] = r3.Add(s.force[i], r3.Scale(s.params.Viscosity*volume(pi), f))
	}
}

// surface tension from the colour field: only particles whose gradient
// exceeds the threshold are on the surface
func (s *Solver) surfaceTension(lo, hi int) {
	if s.params.SurfaceTension == 0 {
		return
	}
	k := s.kern
	for i := lo; i < hi; i++ {
		pi := &s.particles[i]
		var normal r3.Vec
		curvature := 0.0
		for _, j := range s.neighbors[i] {
			pj := &s.particles[j]
			if pj.Density <= 0 {
				continue
			}
			rv := r3.Sub(pi.Position, pj.Position)
			r := r3.Norm(rv)
			w := pj.Mass / pj.Density
			normal = r3.Add(normal, r3.Scale(w, k.Poly6Gradient(rv, r)))
			curvature += w * k.Poly6Laplacian(r)
		}
		mag := r3.Norm(normal)
		if mag <= s.params.SurfaceThreshold {
			continue
		}
		f := r3.Scale(-s.params.SurfaceTension*curvature/mag, normal)
		s.force[i] = r3.Add(s.force[i], r3.Scale(volume(pi), f))
	}
}

// semi-implicit euler
func (s *Solver) integrate(lo, hi int, dt float64) {
	g := s.params.Gravity
	var up r3.Vec
	if gn := r3.Norm(g); gn > 0 {
		up = r3.Scale(-1/gn, g)
	}
	for i := lo; i < hi; i++ {
		p := &s.particles[i]
		acc := g
		if s.params.Buoyancy != 0 {
			acc = r3.Add(acc, r3.Scale(s.params.Buoyancy*(p.Temperature-s.params.AmbientTemperature), up))
		}
		if p.Mass > 0 {
			acc = r3.Add(acc, r3.Scale(1/p.Mass, s.force[i]))
		}
		p.Acceleration = acc
		p.Velocity = r3.Scale(s.params.VelocityDamping, r3.Add(p.Velocity, r3.Scale(dt, acc)))
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
		if s.params.planar() {
			p.Position.Z, p.Velocity.Z, p.Acceleration.Z = 0, 0, 0
		}
		p.Age += dt
	}
}

func (s *Solver) boundary(lo, hi int) {
	for i := lo; i < hi; i++ {
		p := &s.particles[i]
		s.params.Bounds.Reflect(&p.Position, &p.Velocity, s.params.Restitution)
	}
}
