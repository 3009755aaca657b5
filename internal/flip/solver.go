// Package flip implements an incompressible hybrid particle/grid solver:
// particle velocities are splatted onto a staggered grid, made
// divergence-free with a Jacobi pressure solve, and read back.
package flip

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/field"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/palette"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Particle carries velocity between grid passes. Mass is implicit in cell
// occupancy.
type Particle struct {
	Position r3.Vec
	Velocity r3.Vec
	Density  float64
	Color    float64
	Age      float64
}

type Solver struct {
	params Params
	state  fluid.State
	logger *log.Logger
	exec   *compute.Executor
	rng    *rand.Rand
	pal    *palette.Palette

	// fixed at Initialize
	n      int
	dx     float64
	origin r3.Vec

	u, v, w    *field.Grid3 // staggered face velocities
	uw, vw, ww *field.Grid3 // face weights
	pressure   *field.Grid3
	scratch    *field.Grid3
	div        *field.Grid3
	density    *field.Grid3
	count      *field.Grid3

	particles []Particle
	cell      []int
	emitters  []fluid.Pending

	step     int
	time     float64
	residual float64
}

// New creates an uninitialized solver. A nil logger uses log.Default.
func New(logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.Default()
	}
	return &Solver{logger: logger, pal: palette.Default()}
}

func (s *Solver) Name() string { return "flip" }

// Initialize allocates every grid field and the particle storage.
func (s *Solver) Initialize(p Params) error {
	n := p.Resolution
	if n < 3 || p.GridSize <= 0 {
		return fluid.ErrAllocation
	}
	if _, err := fluid.CheckAllocation(n+1, n, n); err != nil {
		return err
	}
	if _, err := fluid.CheckAllocation(p.MaxParticles); err != nil {
		return err
	}

	if s.exec != nil {
		s.exec.Close()
	}
	s.params = p
	s.n = n
	s.dx = p.CellSize()
	half := p.GridSize / 2
	s.origin = r3.Vec{X: -half, Y: -half, Z: -half}

	s.u, s.uw = field.NewGrid3(n+1, n, n), field.NewGrid3(n+1, n, n)
	s.v, s.vw = field.NewGrid3(n, n+1, n), field.NewGrid3(n, n+1, n)
	s.w, s.ww = field.NewGrid3(n, n, n+1), field.NewGrid3(n, n, n+1)
	s.pressure = field.NewGrid3(n, n, n)
	s.scratch = field.NewGrid3(n, n, n)
	s.div = field.NewGrid3(n, n, n)
	s.density = field.NewGrid3(n, n, n)
	s.count = field.NewGrid3(n, n, n)

	s.particles = make([]Particle, 0, p.MaxParticles)
	s.cell = make([]int, 0, p.MaxParticles)
	s.emitters = s.emitters[:0]
	s.exec = compute.NewExecutor(p.UseAcceleration, compute.WithLogger(s.logger))
	s.rng = rand.New(rand.NewSource(p.Seed))
	s.step, s.time, s.residual = 0, 0, 0
	s.state = fluid.Initialized
	return nil
}

func (s *Solver) Params() Params { return s.params }

// SetParams replaces the parameters. Grid dimensions keep their
// Initialize values.
func (s *Solver) SetParams(p Params) { s.params = p }

func (s *Solver) State() fluid.State { return s.state }

func (s *Solver) Count() int { return len(s.particles) }

// Particles exposes the particle storage.
func (s *Solver) Particles() []Particle { return s.particles }

// Resolution returns the cell count per axis fixed at Initialize.
func (s *Solver) Resolution() int { return s.n }

// Pressure returns the pressure field of the last step.
func (s *Solver) Pressure() *field.Grid3 { return s.pressure }

// Divergence returns the divergence field of the last step.
func (s *Solver) Divergence() *field.Grid3 { return s.div }

// AddParticle appends one particle, reporting false at capacity.
func (s *Solver) AddParticle(p Particle) bool {
	if !s.state.Ready() || len(s.particles) >= s.params.MaxParticles {
		return false
	}
	s.particles = append(s.particles, p)
	s.cell = append(s.cell, 0)
	return true
}

// AddFluidVolume seeds a box of particles at the particle spacing. Each
// particle carries density; it returns the number added.
func (s *Solver) AddFluidVolume(center, size r3.Vec, density float64) int {
	if !s.state.Ready() {
		return 0
	}
	if density <= 0 {
		density = 1
	}
	d := s.params.spacing()
	nx, ny, nz := latticeCount(size.X, d), latticeCount(size.Y, d), latticeCount(size.Z, d)
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
				if !s.AddParticle(Particle{Position: pos, Density: density, Color: 0.5}) {
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
	r2 := radius * radius
	for i := range s.particles {
		p := &s.particles[i]
		d := r3.Sub(p.Position, pos)
		if r3.Norm2(d) >= r2 {
			continue
		}
		p.Velocity = r3.Add(p.Velocity, r3.Scale(fluid.Falloff(r3.Norm(d), radius), force))
	}
}

// Clear drops every particle and zeroes the grids in place.
func (s *Solver) Clear() {
	s.particles = s.particles[:0]
	s.cell = s.cell[:0]
	s.emitters = s.emitters[:0]
	for _, g := range s.grids() {
		g.Zero()
	}
	s.step, s.time, s.residual = 0, 0, 0
	if s.state.Ready() {
		s.state = fluid.Cleared
	}
}

func (s *Solver) grids() []*field.Grid3 {
	if s.u == nil {
		return nil
	}
	return []*field.Grid3{s.u, s.v, s.w, s.uw, s.vw, s.ww, s.pressure, s.scratch, s.div, s.density, s.count}
}

func (s *Solver) Render(r fluid.Renderer) {
	size := s.dx * 0.5
	for i := range s.particles {
		p := &s.particles[i]
		r.RenderParticle(p.Position, size, s.colorOf(p))
	}
}

func (s *Solver) SetPalette(p *palette.Palette) {
	if p != nil {
		s.pal = p
	}
}

func (s *Solver) colorOf(p *Particle) color.RGBA {
	switch s.params.ColorBy {
	case "density":
		return s.pal.Scaled(p.Density, 0, 2)
	case "tint":
		return s.pal.At(p.Color)
	default:
		return s.pal.Scaled(r3.Norm(p.Velocity), 0, 4)
	}
}

// Diagnostics treats every particle as unit mass.
func (s *Solver) Diagnostics() fluid.Diagnostics {
	n := len(s.particles)
	d := fluid.Diagnostics{
		Step:      s.step,
		Time:      s.time,
		Count:     n,
		TotalMass: float64(n),
		Finite:    true,
	}
	if s.exec != nil {
		d.Backend = s.exec.Backend().Name()
	}
	if n == 0 {
		return d
	}
	speed := make([]float64, n)
	dens := make([]float64, n)
	ke := 0.0
	for i := range s.particles {
		p := &s.particles[i]
		speed[i] = r3.Norm(p.Velocity)
		dens[i] = p.Density
		ke += 0.5 * speed[i] * speed[i]
		if !fluid.IsFinite(p.Position) || !fluid.IsFinite(p.Velocity) {
			d.Finite = false
		}
	}
	d.KineticEnergy = ke
	d.MaxSpeed = floats.Max(speed)
	d.MeanDensity = floats.Sum(dens) / float64(n)
	if math.IsNaN(s.residual) {
		d.Finite = false
	}
	return d
}

// Residual returns the largest interior divergence seen before the last
// pressure solve.
func (s *Solver) Residual() float64 { return s.residual }

func (s *Solver) Close() {
	if s.exec != nil {
		s.exec.Close()
	}
}

// SampleAt reads the enclosing cell of the last particle-to-grid transfer.
// Velocity averages the two faces on each axis.
func (s *Solver) SampleAt(pos r3.Vec) (float64, r3.Vec) {
	if !s.state.Ready() {
		return 0, r3.Vec{}
	}
	i, j, k := s.cellOf(pos)
	v := r3.Vec{
		X: (s.u.At(i, j, k) + s.u.At(i+1, j, k)) / 2,
		Y: (s.v.At(i, j, k) + s.v.At(i, j+1, k)) / 2,
		Z: (s.w.At(i, j, k) + s.w.At(i, j, k+1)) / 2,
	}
	return s.density.At(i, j, k), v
}
