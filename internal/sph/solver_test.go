package sph

import (
	"errors"
	"image/color"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newSolver(t *testing.T, p Params) *Solver {
	t.Helper()
	s := New(log.New(io.Discard))
	require.NoError(t, s.Initialize(p))
	t.Cleanup(s.Close)
	return s
}

func TestDamBreakKeepsParticles(t *testing.T) {
	s := newSolver(t, DefaultParams())
	added := s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 1000)
	require.Equal(t, 8000, added)

	for i := 0; i < 10; i++ {
		s.Update(1.0 / 120)
	}

	d := s.Diagnostics()
	assert.Equal(t, 8000, d.Count)
	assert.Equal(t, 10, d.Step)
	assert.InDelta(t, 10.0/120, d.Time, 1e-12)
	assert.True(t, d.Finite)
	for _, p := range s.Particles() {
		require.Greater(t, p.Mass, 0.0)
		require.True(t, fluid.IsFinite(p.Position))
		require.True(t, fluid.IsFinite(p.Velocity))
	}
}

func TestBoundaryHalvesVelocity(t *testing.T) {
	p := DefaultParams()
	p.Gravity = r3.Vec{}
	p.VelocityDamping = 1
	s := newSolver(t, p)
	require.True(t, s.AddParticle(Particle{Position: r3.Vec{X: 1.01}, Velocity: r3.Vec{X: 1}, Mass: 0.1}))

	s.Update(0.01)

	got := s.Particles()[0]
	assert.InDelta(t, 1.0, got.Position.X, 1e-12)
	assert.InDelta(t, -0.5, got.Velocity.X, 1e-12)
}

func TestCapacityCap(t *testing.T) {
	p := DefaultParams()
	p.MaxParticles = 100
	s := newSolver(t, p)

	added := s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 1000)
	assert.Equal(t, 100, added)
	assert.Equal(t, 100, s.Count())
	assert.False(t, s.AddParticle(Particle{}))

	s.AddEmitter(fluid.Emitter{Rate: 1000})
	s.Update(0)
	assert.Equal(t, 100, s.Count())
}

func TestUninitializedIsInert(t *testing.T) {
	s := New(log.New(io.Discard))
	assert.Equal(t, 0, s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 1000))
	s.Update(0.01)
	s.ApplyForce(r3.Vec{}, r3.Vec{X: 1}, 1)
	assert.Equal(t, fluid.Uninitialized, s.State())
	assert.Equal(t, 0, s.Diagnostics().Step)
}

func TestApplyForceFalloff(t *testing.T) {
	p := DefaultParams()
	p.Gravity = r3.Vec{}
	s := newSolver(t, p)
	s.AddParticle(Particle{Position: r3.Vec{}})
	s.AddParticle(Particle{Position: r3.Vec{X: 0.5}})
	s.AddParticle(Particle{Position: r3.Vec{X: 0.9}})

	s.ApplyForce(r3.Vec{}, r3.Vec{Y: 4}, 1)

	ps := s.Particles()
	assert.InDelta(t, 4.0, ps[0].Velocity.Y, 1e-12)
	assert.InDelta(t, 1.0, ps[1].Velocity.Y, 1e-12)
	assert.InDelta(t, 4*0.01, ps[2].Velocity.Y, 1e-12)

	s.ApplyForce(r3.Vec{}, r3.Vec{Y: 4}, 0)
	assert.InDelta(t, 4.0, s.Particles()[0].Velocity.Y, 1e-12)
}

func TestClearKeepsCapacity(t *testing.T) {
	s := newSolver(t, DefaultParams())
	s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1000)
	s.Update(0)
	before := cap(s.particles)

	s.Clear()

	assert.Equal(t, 0, s.Count())
	assert.Equal(t, before, cap(s.particles))
	assert.Equal(t, fluid.Cleared, s.State())
	assert.Equal(t, 0, s.Diagnostics().Step)

	s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, 1000)
	s.Update(0)
	assert.Equal(t, 64, s.Count())
}

func TestSetParam(t *testing.T) {
	s := newSolver(t, DefaultParams())

	require.NoError(t, s.SetParam("viscosity", 1.5))
	assert.Equal(t, 1.5, s.GetParams()["viscosity"])

	require.NoError(t, s.SetParam("smoothing_radius", 0.2))
	assert.Equal(t, 0.2, s.kern.H)
	assert.Equal(t, 0.2, s.grid.CellSize())

	err := s.SetParam("warp_factor", 9)
	assert.True(t, errors.Is(err, fluid.ErrUnknownParam))
}

func TestInitializeRejectsHugeGrid(t *testing.T) {
	p := DefaultParams()
	p.SmoothingRadius = 1e-5
	s := New(log.New(io.Discard))
	err := s.Initialize(p)
	assert.ErrorIs(t, err, fluid.ErrAllocation)
	assert.Equal(t, fluid.Uninitialized, s.State())
}

func TestBackendsAgree(t *testing.T) {
	run := func(accel bool) []Particle {
		p := DefaultParams()
		p.UseAcceleration = accel
		s := newSolver(t, p)
		s.AddFluidVolume(r3.Vec{Y: -0.5}, r3.Vec{X: 0.6, Y: 0.6, Z: 0.6}, 1000)
		for i := 0; i < 5; i++ {
			s.Update(0)
		}
		return append([]Particle(nil), s.Particles()...)
	}

	cpu, accel := run(false), run(true)
	require.Len(t, accel, len(cpu))
	for i := range cpu {
		assert.Equal(t, cpu[i].Position, accel[i].Position, "particle %d", i)
	}
}

func TestPlanarMode(t *testing.T) {
	p := DefaultParams()
	p.Dimensions = 2
	s := newSolver(t, p)

	added := s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1000)
	assert.Equal(t, 100, added)
	for i := 0; i < 5; i++ {
		s.Update(0)
	}
	for _, p := range s.Particles() {
		assert.Zero(t, p.Position.Z)
		assert.Zero(t, p.Velocity.Z)
	}
}

func TestEmitterRate(t *testing.T) {
	p := DefaultParams()
	p.Gravity = r3.Vec{}
	s := newSolver(t, p)
	s.AddEmitter(fluid.Emitter{
		Position: r3.Vec{Y: 0.5},
		Velocity: r3.Vec{Y: -1},
		Rate:     60,
		Radius:   0.05,
		Density:  1000,
	})

	for i := 0; i < 12; i++ {
		s.Update(1.0 / 120)
	}
	assert.Equal(t, 6, s.Count())
	for _, p := range s.Particles() {
		assert.InDelta(t, 0.125, p.Mass, 1e-12)
	}
}

func TestRenderVisitsEveryParticle(t *testing.T) {
	s := newSolver(t, DefaultParams())
	s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, 1000)

	calls := 0
	s.Render(fluid.RendererFunc(func(pos r3.Vec, size float64, c color.RGBA) {
		calls++
		assert.Equal(t, 0.05, size)
		assert.Equal(t, uint8(255), c.A)
	}))
	assert.Equal(t, 64, calls)
}

func TestSetParamRejectsOversizedGrid(t *testing.T) {
	s := newSolver(t, DefaultParams())

	for _, h := range []float64{1e-5, 0, -0.1} {
		err := s.SetParam("smoothing_radius", h)
		assert.ErrorIs(t, err, fluid.ErrAllocation, "radius %g", h)
	}
	assert.Equal(t, 0.1, s.Params().SmoothingRadius)
	assert.Equal(t, 0.1, s.grid.CellSize())

	p := s.Params()
	p.SmoothingRadius = 1e-5
	s.SetParams(p)
	assert.Equal(t, 0.1, s.Params().SmoothingRadius)

	s.AddFluidVolume(r3.Vec{}, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, 1000)
	s.Update(0)
	assert.True(t, s.Diagnostics().Finite)
}

// forceSolver places particles and runs the passes up to density so the
// force passes can be called one at a time.
func forceSolver(t *testing.T, p Params, particles ...Particle) *Solver {
	t.Helper()
	p.Gravity = r3.Vec{}
	s := newSolver(t, p)
	for _, pt := range particles {
		require.True(t, s.AddParticle(pt))
	}
	n := s.Count()
	s.syncPositions()
	s.grid.Rebuild(s.positions)
	s.findNeighbors(0, n)
	s.computeDensity(0, n)
	clear(s.force)
	return s
}

func TestDensityIncludesSelf(t *testing.T) {
	tests := []struct {
		name string
		gap  float64
	}{
		{"isolated", 0.5},
		{"pair", 0.05},
		{"at radius", 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := forceSolver(t, DefaultParams(),
				Particle{Mass: 0.125},
				Particle{Position: r3.Vec{X: tt.gap}, Mass: 0.25})
			k := s.kern
			want := 0.125*k.Poly6(0) + 0.25*k.Poly6(tt.gap)
			got := s.Particles()[0]
			assert.InDelta(t, want, got.Density, 1e-9)
			assert.InDelta(t, 3*(want-1000), got.Pressure, 1e-6)
		})
	}
}

func TestPressureForceRepels(t *testing.T) {
	p := DefaultParams()
	p.RestDensity = 0
	s := forceSolver(t, p,
		Particle{Position: r3.Vec{X: -0.025}, Mass: 0.125},
		Particle{Position: r3.Vec{X: 0.025}, Mass: 0.125})
	s.pressureForce(0, 2)

	a, b := s.Particles()[0], s.Particles()[1]
	require.Greater(t, a.Pressure, 0.0)
	grad := s.kern.SpikyGradient(r3.Sub(a.Position, b.Position), 0.05)
	want := r3.Scale(a.Mass/a.Density*-b.Mass*(a.Pressure+b.Pressure)/(2*b.Density), grad)

	assert.InDelta(t, want.X, s.force[0].X, 1e-9)
	assert.Less(t, s.force[0].X, 0.0)
	assert.InDelta(t, -s.force[0].X, s.force[1].X, 1e-9)
	assert.Zero(t, s.force[0].Y)
	assert.Zero(t, s.force[0].Z)
}

func TestPressureForceAttractsBelowRest(t *testing.T) {
	s := forceSolver(t, DefaultParams(),
		Particle{Position: r3.Vec{X: -0.025}, Mass: 0.125},
		Particle{Position: r3.Vec{X: 0.025}, Mass: 0.125})
	s.pressureForce(0, 2)

	require.Less(t, s.Particles()[0].Pressure, 0.0)
	assert.Greater(t, s.force[0].X, 0.0)
	assert.Less(t, s.force[1].X, 0.0)
}

func TestViscosityPullsTowardNeighbor(t *testing.T) {
	p := DefaultParams()
	p.GasConstant = 0
	s := forceSolver(t, p,
		Particle{Mass: 0.125},
		Particle{Position: r3.Vec{X: 0.05}, Velocity: r3.Vec{Y: 2}, Mass: 0.125})
	s.pressureForce(0, 2)
	s.viscosityForce(0, 2)

	a, b := s.Particles()[0], s.Particles()[1]
	lap := s.kern.ViscosityLaplacian(0.05)
	want := p.Viscosity * a.Mass / a.Density * b.Mass / b.Density * lap * 2
	assert.InDelta(t, want, s.force[0].Y, 1e-9)
	assert.Greater(t, s.force[0].Y, 0.0)
	assert.InDelta(t, -s.force[0].Y, s.force[1].Y, 1e-9)
	assert.Zero(t, s.force[0].X)
}

func TestSurfaceTensionGate(t *testing.T) {
	line := []Particle{
		{Position: r3.Vec{X: -0.05}, Mass: 0.125},
		{Mass: 0.125},
		{Position: r3.Vec{X: 0.05}, Mass: 0.125},
	}
	tests := []struct {
		name      string
		threshold float64
		edge      bool
	}{
		{"surface particles pulled in", 0.1, true},
		{"threshold above every normal", 1e9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.SurfaceThreshold = tt.threshold
			s := forceSolver(t, p, line...)
			s.surfaceTension(0, 3)

			// the middle particle sees a symmetric neighborhood, so n = 0
			assert.Equal(t, r3.Vec{}, s.force[1])
			if !tt.edge {
				assert.Equal(t, r3.Vec{}, s.force[0])
				assert.Equal(t, r3.Vec{}, s.force[2])
				return
			}

			ps := s.Particles()
			k := s.kern
			var normal r3.Vec
			curvature := 0.0
			for _, j := range []int{1, 2} {
				rv := r3.Sub(ps[0].Position, ps[j].Position)
				w := ps[j].Mass / ps[j].Density
				normal = r3.Add(normal, r3.Scale(w, k.Poly6Gradient(rv, r3.Norm(rv))))
				curvature += w * k.Poly6Laplacian(r3.Norm(rv))
			}
			require.Greater(t, r3.Norm(normal), p.SurfaceThreshold)
			unit := r3.Unit(normal)
			want := r3.Scale(-p.SurfaceTension*curvature*ps[0].Mass/ps[0].Density, unit)

			assert.InDelta(t, want.X, s.force[0].X, 1e-9)
			assert.InDelta(t, -s.force[0].X, s.force[2].X, 1e-9)
			// cohesion: the left end is pulled toward the line's centre
			assert.Greater(t, s.force[0].X, 0.0)
		})
	}
}
