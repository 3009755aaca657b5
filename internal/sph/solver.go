// Package sph implements a compressible Smoothed Particle Hydrodynamics
// solver with a uniform-grid neighbor search.
package sph

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/kernel"
	"github.com/san-kum/fluidsim/internal/palette"
	"github.com/san-kum/fluidsim/internal/spatial"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is one SPH sample. Density and Pressure are recomputed every step.
type Particle struct {
	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec
	Density      float64
	Pressure     float64
	Mass         float64
	Temperature  float64
	Color        float64
	Age          float64
}

// Solver is not safe for concurrent use.
type Solver struct {
	params Params
	state  fluid.State
	logger *log.Logger

	kern kernel.Kernel
	grid *spatial.Grid
	exec *compute.Executor
	rng  *rand.Rand
	pal  *palette.Palette

	particles []Particle
	positions []r3.Vec
	neighbors [][]int
	force     []r3.Vec
	emitters  []fluid.Pending
	query     []int

	step int
	time float64
}

// New creates an uninitialized solver. A nil logger uses log.Default.
func New(logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.Default()
	}
	return &Solver{logger: logger, pal: palette.Default()}
}

func (s *Solver) Name() string { return "sph" }

// Initialize reserves storage for MaxParticles and the neighbor grid.
// Calling it again discards all particles.
func (s *Solver) Initialize(p Params) error {
	if p.Dimensions == 0 {
		p.Dimensions = 3
	}
	if _, err := fluid.CheckAllocation(p.MaxParticles); err != nil {
		return err
	}
	if err := checkGrid(p); err != nil {
		return err
	}

	if s.exec != nil {
		s.exec.Close()
	}
	s.params = p
	s.particles = make([]Particle, 0, p.MaxParticles)
	s.positions = make([]r3.Vec, 0, p.MaxParticles)
	s.force = make([]r3.Vec, 0, p.MaxParticles)
	s.neighbors = make([][]int, 0, p.MaxParticles)
	s.emitters = s.emitters[:0]
	s.exec = compute.NewExecutor(p.UseAcceleration, compute.WithLogger(s.logger))
	s.rng = rand.New(rand.NewSource(p.Seed))
	s.setupGrid()
	s.step, s.time = 0, 0
	s.state = fluid.Initialized
	return nil
}

// checkGrid reports ErrAllocation when the neighbor grid for p's bounds and
// smoothing radius would exceed the cell limit.
func checkGrid(p Params) error {
	size := p.Bounds.Size()
	cells := func(span float64) int {
		if p.SmoothingRadius <= 0 || math.IsNaN(p.SmoothingRadius) {
			return -1
		}
		n := math.Ceil(span/p.SmoothingRadius) + 1
		if n > float64(fluid.MaxCells) {
			return -1
		}
		return int(n)
	}
	_, err := fluid.CheckAllocation(cells(size.X), cells(size.Y), cells(size.Z))
	return err
}

func (s *Solver) setupGrid() {
	h := s.params.SmoothingRadius
	s.kern = kernel.New(h)
	// one spare layer so particles resting on the max planes stay searchable
	hi := r3.Add(s.params.Bounds.Max, r3.Vec{X: h, Y: h, Z: h})
	s.grid = spatial.Covering(s.params.Bounds.Min, hi, h, s.params.planar())
}

// Params returns the active parameters.
func (s *Solver) Params() Params { return s.params }

// SetParams replaces the parameters without touching particles. Changes to
// the bounds or capacity take effect on the next Initialize. A radius whose
// grid would not fit is ignored.
func (s *Solver) SetParams(p Params) {
	h := s.params.SmoothingRadius
	if s.state.Ready() && p.SmoothingRadius != h {
		if err := checkGrid(Params{Bounds: s.params.Bounds, SmoothingRadius: p.SmoothingRadius}); err != nil {
			s.logger.Warn("smoothing radius ignored", "radius", p.SmoothingRadius, "err", err)
			p.SmoothingRadius = h
		}
	}
	s.params = p
	if s.state.Ready() && p.SmoothingRadius != h {
		s.setupGrid()
	}
}

// State returns the lifecycle state.
func (s *Solver) State() fluid.State { return s.state }

// Count returns the number of live particles.
func (s *Solver) Count() int { return len(s.particles) }

// Particles exposes the particle storage. Callers must not retain it across
// Update calls.
func (s *Solver) Particles() []Particle { return s.particles }

// AddParticle appends one particle, reporting false at capacity.
func (s *Solver) AddParticle(p Particle) bool {
	if !s.state.Ready() || len(s.particles) >= s.params.MaxParticles {
		return false
	}
	if p.Mass <= 0 {
		p.Mass = s.params.ParticleMass
	}
	if s.params.planar() {
		p.Position.Z, p.Velocity.Z = 0, 0
	}
	s.particles = append(s.particles, p)
	s.positions = append(s.positions, p.Position)
	s.force = append(s.force, r3.Vec{})
	if len(s.neighbors) < len(s.particles) {
		s.neighbors = append(s.neighbors, make([]int, 0, 32))
	}
	return true
}

// AddFluidVolume fills a box with particles on a lattice of the configured
// spacing. Each particle carries density·spacing³ of mass so the block
// starts near the requested density. It returns how many were added before
// the capacity cap.
func (s *Solver) AddFluidVolume(center, size r3.Vec, density float64) int {
	if !s.state.Ready() {
		return 0
	}
	d := s.params.spacing()
	mass := s.params.ParticleMass
	if density > 0 {
		mass = density * d * d * d
	}
	nx, ny, nz := latticeCount(size.X, d), latticeCount(size.Y, d), latticeCount(size.Z, d)
	if s.params.planar() {
		nz = 1
	}
	start := r3.Sub(center, r3.Scale(0.5, size))

	added := 0
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				pos := r3.Add(start, r3.Vec{
					X: (float64(i) + 0.5) * d,
					Y: (float64(j) + 0.5) * d,
					Z: (float64(k) + 0.5) * d,
				})
				if s.params.planar() {
					pos.Z = center.Z
				}
				if !s.AddParticle(Particle{
					Position:    pos,
					Mass:        mass,
					Density:     density,
					Temperature: s.params.AmbientTemperature,
					Color:       0.5,
				}) {
					return added
				}
				added++
			}
		}
	}
	return added
}

func latticeCount(extent, spacing float64) int {
	n := int(extent/spacing + 1e-9)
	if n < 1 {
		n = 1
	}
	return n
}

// AddEmitter registers a continuous source drained during Update.
func (s *Solver) AddEmitter(e fluid.Emitter) {
	s.emitters = append(s.emitters, fluid.Pending{Emitter: e})
}

// ApplyForce adds force·(1−d/r)² to the velocity of particles within radius.
func (s *Solver) ApplyForce(pos, force r3.Vec, radius float64) {
	if !s.state.Ready() || radius <= 0 {
		return
	}
	s.syncPositions()
	s.grid.Rebuild(s.positions)
	s.query = s.grid.Query(pos, radius, s.query)
	for _, i := range s.query {
		p := &s.particles[i]
		w := fluid.Falloff(r3.Norm(r3.Sub(p.Position, pos)), radius)
		p.Velocity = r3.Add(p.Velocity, r3.Scale(w, force))
	}
}

// Clear removes every particle and emitter while keeping allocations.
func (s *Solver) Clear() {
	s.particles = s.particles[:0]
	s.positions = s.positions[:0]
	s.force = s.force[:0]
	for i := range s.neighbors {
		s.neighbors[i] = s.neighbors[i][:0]
	}
	s.emitters = s.emitters[:0]
	if s.grid != nil {
		s.grid.Rebuild(nil)
	}
	s.step, s.time = 0, 0
	if s.state.Ready() {
		s.state = fluid.Cleared
	}
}

// Render emits one call per particle.
func (s *Solver) Render(r fluid.Renderer) {
	size := s.params.SmoothingRadius * 0.5
	for i := range s.particles {
		p := &s.particles[i]
		r.RenderParticle(p.Position, size, s.colorOf(p))
	}
}

func (s *Solver) colorOf(p *Particle) color.RGBA {
	switch s.params.ColorBy {
	case "speed":
		return s.pal.Scaled(r3.Norm(p.Velocity), 0, 3)
	case "temperature":
		return s.pal.Scaled(p.Temperature, s.params.AmbientTemperature-50, s.params.AmbientTemperature+50)
	case "tint":
		return s.pal.At(p.Color)
	default:
		return s.pal.Scaled(p.Density, 0, 2*s.params.RestDensity)
	}
}

// Diagnostics summarizes the particle set.
func (s *Solver) Diagnostics() fluid.Diagnostics {
	n := len(s.particles)
	d := fluid.Diagnostics{
		Step:   s.step,
		Time:   s.time,
		Count:  n,
		Finite: true,
	}
	if s.exec != nil {
		d.Backend = s.exec.Backend().Name()
	}
	if n == 0 {
		return d
	}

	mass := make([]float64, n)
	speed := make([]float64, n)
	dens := make([]float64, n)
	ke := make([]float64, n)
	for i := range s.particles {
		p := &s.particles[i]
		mass[i] = p.Mass
		speed[i] = r3.Norm(p.Velocity)
		dens[i] = p.Density
		ke[i] = 0.5 * p.Mass * speed[i] * speed[i]
		if !fluid.IsFinite(p.Position) || !fluid.IsFinite(p.Velocity) {
			d.Finite = false
		}
	}
	d.TotalMass = floats.Sum(mass)
	d.KineticEnergy = floats.Sum(ke)
	d.MaxSpeed = floats.Max(speed)
	d.MeanDensity = floats.Sum(dens) / float64(n)
	return d
}

// Close releases the compute backend.
func (s *Solver) Close() {
	if s.exec != nil {
		s.exec.Close()
	}
}

// SetPalette changes the colour ramp used by Render.
func (s *Solver) SetPalette(p *palette.Palette) {
	if p != nil {
		s.pal = p
	}
}

// SampleAt returns the kernel-weighted density and velocity of the
// particles within one smoothing radius of pos.
func (s *Solver) SampleAt(pos r3.Vec) (float64, r3.Vec) {
	if !s.state.Ready() || len(s.particles) == 0 {
		return 0, r3.Vec{}
	}
	s.syncPositions()
	s.grid.Rebuild(s.positions)
	s.query = s.grid.Query(pos, s.params.SmoothingRadius, s.query)

	var wsum, rho float64
	var vel r3.Vec
	for _, i := range s.query {
		p := &s.particles[i]
		w := s.kern.Poly6(r3.Norm(r3.Sub(p.Position, pos)))
		wsum += w
		rho += w * p.Density
		vel = r3.Add(vel, r3.Scale(w, p.Velocity))
	}
	if wsum == 0 {
		return 0, r3.Vec{}
	}
	return rho / wsum, r3.Scale(1/wsum, vel)
}
