// Package lbm implements a D2Q9 lattice Boltzmann solver with BGK
// collision, periodic streaming and bounce-back obstacles.
package lbm

import (
	"image/color"
	"math"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/field"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/palette"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Solver holds nine distributions per cell, cell-major.
type Solver struct {
	params Params
	state  fluid.State
	logger *log.Logger
	exec   *compute.Executor
	pal    *palette.Palette

	nx, ny int
	f, tmp []float64
	solid  []bool
	rho    *field.Grid2
	ux, uy *field.Grid2
	inlets []fluid.Emitter

	step int
}

// New creates an uninitialized solver. A nil logger uses log.Default.
func New(logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.Default()
	}
	return &Solver{logger: logger, pal: palette.Default()}
}

func (s *Solver) Name() string { return "lbm" }

// Initialize allocates the lattice and fills it with fluid at rest at
// InitialDensity.
func (s *Solver) Initialize(p Params) error {
	if p.Width <= 0 || p.Height <= 0 {
		return fluid.ErrAllocation
	}
	if _, err := fluid.CheckAllocation(p.Width, p.Height, Q); err != nil {
		return err
	}
	if s.exec != nil {
		s.exec.Close()
	}
	s.params = p
	s.nx, s.ny = p.Width, p.Height
	cells := s.nx * s.ny
	s.f = make([]float64, cells*Q)
	s.tmp = make([]float64, cells*Q)
	s.solid = make([]bool, cells)
	s.rho = field.NewGrid2(s.nx, s.ny)
	s.ux = field.NewGrid2(s.nx, s.ny)
	s.uy = field.NewGrid2(s.nx, s.ny)
	s.inlets = s.inlets[:0]
	s.exec = compute.NewExecutor(p.UseAcceleration, compute.WithLogger(s.logger))
	s.step = 0

	for c := 0; c < cells; c++ {
		s.equilibrate(c, p.InitialDensity, 0, 0)
	}
	s.macroscopic(0, cells)
	s.state = fluid.Initialized
	return nil
}

func (s *Solver) Params() Params { return s.params }

// SetParams replaces the parameters. The lattice size keeps its
// Initialize value.
func (s *Solver) SetParams(p Params) { s.params = p }

func (s *Solver) State() fluid.State { return s.state }

// Size returns the lattice dimensions.
func (s *Solver) Size() (int, int) { return s.nx, s.ny }

// Distributions exposes the raw lattice, nine values per cell.
func (s *Solver) Distributions() []float64 { return s.f }

func (s *Solver) equilibrate(c int, rho, ux, uy float64) {
	f := s.f[c*Q : c*Q+Q]
	for q := range f {
		f[q] = Equilibrium(q, rho, ux, uy)
	}
}

func (s *Solver) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.nx && y < s.ny
}

// SetObstacle marks or clears one cell.
func (s *Solver) SetObstacle(x, y int, solid bool) {
	if !s.state.Ready() || !s.contains(x, y) {
		return
	}
	s.solid[s.rho.Index(x, y)] = solid
}

// IsObstacle reports whether (x, y) is solid.
func (s *Solver) IsObstacle(x, y int) bool {
	return s.contains(x, y) && s.solid[s.rho.Index(x, y)]
}

// AddObstacleCircle marks every cell whose centre lies within r of (cx, cy).
func (s *Solver) AddObstacleCircle(cx, cy, r float64) {
	s.eachCell(cx-r, cy-r, cx+r, cy+r, func(x, y int) {
		dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
		if dx*dx+dy*dy <= r*r {
			s.SetObstacle(x, y, true)
		}
	})
}

// AddObstacleRect marks the cells with centres inside [x0,x1]×[y0,y1].
func (s *Solver) AddObstacleRect(x0, y0, x1, y1 float64) {
	s.eachCell(x0, y0, x1, y1, func(x, y int) { s.SetObstacle(x, y, true) })
}

// eachCell visits in-bounds cells whose centres fall in the rectangle.
func (s *Solver) eachCell(x0, y0, x1, y1 float64, fn func(x, y int)) {
	if !s.state.Ready() {
		return
	}
	lx := max(int(math.Ceil(x0-0.5)), 0)
	hx := min(int(math.Floor(x1-0.5)), s.nx-1)
	ly := max(int(math.Ceil(y0-0.5)), 0)
	hy := min(int(math.Floor(y1-0.5)), s.ny-1)
	for y := ly; y <= hy; y++ {
		for x := lx; x <= hx; x++ {
			fn(x, y)
		}
	}
}

// AddFluidVolume resets the fluid cells of a region to rest at density and
// returns how many cells changed. Z is ignored.
func (s *Solver) AddFluidVolume(center, size r3.Vec, density float64) int {
	n := 0
	s.eachCell(center.X-size.X/2, center.Y-size.Y/2, center.X+size.X/2, center.Y+size.Y/2, func(x, y int) {
		c := s.rho.Index(x, y)
		if s.solid[c] {
			return
		}
		s.equilibrate(c, density, 0, 0)
		n++
	})
	if n > 0 {
		s.macroscopic(0, len(s.solid))
	}
	return n
}

// AddEmitter registers a velocity inlet: after every stream the fluid cells
// within Radius of Position are reset to equilibrium at the emitter's
// velocity and density (InitialDensity when zero).
func (s *Solver) AddEmitter(e fluid.Emitter) {
	s.inlets = append(s.inlets, e)
}

// ApplyForce adds momentum ρ·force·(1−d/r)² to fluid cells within radius
// without changing their mass.
func (s *Solver) ApplyForce(pos, force r3.Vec, radius float64) {
	if radius <= 0 {
		return
	}
	s.eachCell(pos.X-radius, pos.Y-radius, pos.X+radius, pos.Y+radius, func(x, y int) {
		c := s.rho.Index(x, y)
		if s.solid[c] {
			return
		}
		d := math.Hypot(float64(x)+0.5-pos.X, float64(y)+0.5-pos.Y)
		w := fluid.Falloff(d, radius)
		if w == 0 {
			return
		}
		rho := s.rho.Data[c]
		f := s.f[c*Q : c*Q+Q]
		for q := range f {
			f[q] += 3 * Weights[q] * rho * w * (float64(CX[q])*force.X + float64(CY[q])*force.Y)
		}
	})
}

// Clear zeroes every distribution, obstacle and inlet. The lattice stays
// allocated; AddFluidVolume refills it.
func (s *Solver) Clear() {
	clear(s.f)
	clear(s.tmp)
	clear(s.solid)
	if s.rho != nil {
		s.rho.Zero()
		s.ux.Zero()
		s.uy.Zero()
	}
	s.inlets = s.inlets[:0]
	s.step = 0
	if s.state.Ready() {
		s.state = fluid.Cleared
	}
}

// DensityAt returns ρ at a cell, zero outside the lattice.
func (s *Solver) DensityAt(x, y int) float64 {
	if !s.contains(x, y) {
		return 0
	}
	return s.rho.At(x, y)
}

// VelocityAt returns u at a cell, zero outside the lattice.
func (s *Solver) VelocityAt(x, y int) (float64, float64) {
	if !s.contains(x, y) {
		return 0, 0
	}
	return s.ux.At(x, y), s.uy.At(x, y)
}

// Vorticity is ∂uy/∂x − ∂ux/∂y by central differences on the torus, with
// obstacle cells read as no-slip walls.
func (s *Solver) Vorticity(x, y int) float64 {
	if !s.contains(x, y) {
		return 0
	}
	duy := s.fluidValue(s.uy, s.uy.Wrap(x+1, y)) - s.fluidValue(s.uy, s.uy.Wrap(x-1, y))
	dux := s.fluidValue(s.ux, s.ux.Wrap(x, y+1)) - s.fluidValue(s.ux, s.ux.Wrap(x, y-1))
	return (duy - dux) / 2
}

func (s *Solver) fluidValue(g *field.Grid2, c int) float64 {
	if s.solid[c] {
		return 0
	}
	return g.Data[c]
}

// Render emits one unit-sized call per cell at its centre.
func (s *Solver) Render(r fluid.Renderer) {
	for y := 0; y < s.ny; y++ {
		for x := 0; x < s.nx; x++ {
			r.RenderParticle(r3.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}, 1, s.colorOf(x, y))
		}
	}
}

func (s *Solver) SetPalette(p *palette.Palette) {
	if p != nil {
		s.pal = p
	}
}

func (s *Solver) colorOf(x, y int) color.RGBA {
	c := s.rho.Index(x, y)
	if s.solid[c] {
		return palette.Obstacle
	}
	switch s.params.ColorBy {
	case "density":
		rho0 := s.params.InitialDensity
		return s.pal.Scaled(s.rho.Data[c], 0.9*rho0, 1.1*rho0)
	case "vorticity":
		return s.pal.Scaled(s.Vorticity(x, y), -0.05, 0.05)
	default:
		return s.pal.Scaled(math.Hypot(s.ux.Data[c], s.uy.Data[c]), 0, 0.2)
	}
}

// Diagnostics counts cells as the population. TotalMass is Σf over the
// whole lattice.
func (s *Solver) Diagnostics() fluid.Diagnostics {
	cells := s.nx * s.ny
	d := fluid.Diagnostics{
		Step:   s.step,
		Time:   float64(s.step),
		Count:  cells,
		Finite: true,
	}
	if s.exec != nil {
		d.Backend = s.exec.Backend().Name()
	}
	if cells == 0 {
		return d
	}
	d.TotalMass = floats.Sum(s.f)
	fluidCells := 0
	for c := 0; c < cells; c++ {
		rho := s.rho.Data[c]
		if math.IsNaN(rho) || math.IsInf(rho, 0) {
			d.Finite = false
		}
		if s.solid[c] {
			continue
		}
		fluidCells++
		u2 := s.ux.Data[c]*s.ux.Data[c] + s.uy.Data[c]*s.uy.Data[c]
		d.KineticEnergy += 0.5 * rho * u2
		d.MaxSpeed = math.Max(d.MaxSpeed, math.Sqrt(u2))
		d.MeanDensity += rho
	}
	if fluidCells > 0 {
		d.MeanDensity /= float64(fluidCells)
	}
	return d
}

func (s *Solver) Close() {
	if s.exec != nil {
		s.exec.Close()
	}
}

// SampleAt reads the cell containing pos. Z is ignored.
func (s *Solver) SampleAt(pos r3.Vec) (float64, r3.Vec) {
	x, y := int(math.Floor(pos.X)), int(math.Floor(pos.Y))
	ux, uy := s.VelocityAt(x, y)
	return s.DensityAt(x, y), r3.Vec{X: ux, Y: uy}
}
