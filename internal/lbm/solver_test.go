package lbm

import (
	"errors"
	"image/color"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/compute"
	"github.com/san-kum/fluidsim/internal/fluid"
	"github.com/san-kum/fluidsim/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

func quiet() *log.Logger { return log.New(io.Discard) }

func newSolver(t *testing.T, w, h int) *Solver {
	t.Helper()
	p := DefaultParams()
	p.Width, p.Height = w, h
	s := New(quiet())
	require.NoError(t, s.Initialize(p))
	t.Cleanup(s.Close)
	return s
}

func TestUniformFluidStaysAtRest(t *testing.T) {
	s := newSolver(t, 32, 16)

	for i := 0; i < 100; i++ {
		s.Update(0)
	}

	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			require.InDelta(t, 1.0, s.DensityAt(x, y), 1e-4, "cell %d,%d", x, y)
			ux, uy := s.VelocityAt(x, y)
			require.InDelta(t, 0, math.Hypot(ux, uy), 1e-9)
		}
	}
	assert.Equal(t, 100, s.Diagnostics().Step)
}

func perturb(s *Solver, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range s.f {
		s.f[i] *= 1 + 0.2*(rng.Float64()-0.5)
	}
}

func TestMassConserved(t *testing.T) {
	tests := []struct {
		name     string
		obstacle bool
	}{
		{"periodic", false},
		{"with obstacle", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSolver(t, 24, 24)
			if tt.obstacle {
				s.AddObstacleCircle(12, 12, 4)
			}
			perturb(s, 7)
			before := floats.Sum(s.f)

			for i := 0; i < 50; i++ {
				s.Update(0)
			}

			assert.InDelta(t, before, floats.Sum(s.f), 1e-9*before)
			assert.InDelta(t, before, s.Diagnostics().TotalMass, 1e-9*before)
		})
	}
}

func TestStreamWrapsAround(t *testing.T) {
	s := newSolver(t, 4, 3)
	clear(s.f)
	src := s.rho.Index(3, 2)
	s.f[src*Q+5] = 1 // (+1, +1)

	s.stream(0, 12)

	dst := s.rho.Index(0, 0)
	assert.Equal(t, 1.0, s.tmp[dst*Q+5])
	assert.Equal(t, 1.0, floats.Sum(s.tmp))
}

func TestBounceBackReversesDirections(t *testing.T) {
	s := newSolver(t, 4, 4)
	s.SetObstacle(1, 1, true)
	c := s.rho.Index(1, 1)
	f := s.f[c*Q : c*Q+Q]
	clear(f)
	f[1], f[5], f[0] = 2, 3, 7

	s.bounceBack(0, 16)

	assert.Equal(t, []float64{7, 0, 0, 2, 0, 0, 0, 3, 0}, f)
}

func TestMacroscopicZeroDensity(t *testing.T) {
	s := newSolver(t, 4, 4)
	s.Clear()
	s.macroscopic(0, 16)
	for c := 0; c < 16; c++ {
		require.Zero(t, s.rho.Data[c])
		require.Zero(t, s.ux.Data[c])
		require.Zero(t, s.uy.Data[c])
	}
}

func TestObstacleMoments(t *testing.T) {
	s := newSolver(t, 4, 4)
	s.SetObstacle(2, 1, true)
	c := s.rho.Index(2, 1)
	f := s.f[c*Q : c*Q+Q]
	clear(f)
	f[0], f[2] = 1, 3

	s.macroscopic(0, 16)

	ux, uy := s.VelocityAt(2, 1)
	assert.Equal(t, 4.0, s.DensityAt(2, 1))
	assert.Zero(t, ux)
	assert.InDelta(t, 0.75, uy, 1e-12)
	// the wall's populations do not count as fluid rotation next to it
	assert.InDelta(t, 0, s.Vorticity(1, 1), 1e-12)
	assert.InDelta(t, 0, s.Vorticity(3, 1), 1e-12)
}

func TestApplyForceAddsMomentumOnly(t *testing.T) {
	s := newSolver(t, 16, 16)
	before := floats.Sum(s.f)

	s.ApplyForce(r3.Vec{X: 8.5, Y: 8.5}, r3.Vec{X: 0.01, Y: -0.02}, 3)

	assert.InDelta(t, before, floats.Sum(s.f), 1e-12)
	c := s.rho.Index(8, 8)
	rho, ux, uy := moments(s.f[c*Q : c*Q+Q])
	assert.InDelta(t, 1.0, rho, 1e-12)
	assert.InDelta(t, 0.01, ux, 1e-12)
	assert.InDelta(t, -0.02, uy, 1e-12)

	far := s.rho.Index(0, 0)
	_, ux, _ = moments(s.f[far*Q : far*Q+Q])
	assert.Zero(t, ux)
}

func TestFluidVolumeAndObstacles(t *testing.T) {
	s := newSolver(t, 20, 10)
	s.AddObstacleRect(0, 0, 20, 2)
	assert.True(t, s.IsObstacle(5, 1))
	assert.False(t, s.IsObstacle(5, 2))

	n := s.AddFluidVolume(r3.Vec{X: 10, Y: 5}, r3.Vec{X: 4, Y: 10}, 1.5)
	assert.Equal(t, 4*8, n)
	assert.InDelta(t, 1.5, s.DensityAt(10, 5), 1e-12)
	assert.InDelta(t, 1.0, s.DensityAt(2, 5), 1e-12)
}

func TestInletImposesVelocity(t *testing.T) {
	s := newSolver(t, 32, 16)
	s.AddEmitter(fluid.Emitter{Position: r3.Vec{X: 2, Y: 8}, Velocity: r3.Vec{X: 0.05}, Radius: 2})

	for i := 0; i < 20; i++ {
		s.Update(0)
	}

	ux, _ := s.VelocityAt(2, 8)
	assert.InDelta(t, 0.05, ux, 1e-12)
	dux, _ := s.VelocityAt(5, 8)
	assert.Greater(t, dux, 0.0)
}

func TestRenderOnePerCell(t *testing.T) {
	s := newSolver(t, 6, 5)
	s.SetObstacle(0, 0, true)

	calls, solid := 0, 0
	s.Render(fluid.RendererFunc(func(pos r3.Vec, size float64, c color.RGBA) {
		calls++
		assert.Equal(t, 1.0, size)
		if c == palette.Obstacle {
			solid++
		}
	}))
	assert.Equal(t, 30, calls)
	assert.Equal(t, 1, solid)
}

func TestClearZeroes(t *testing.T) {
	s := newSolver(t, 8, 8)
	s.AddObstacleCircle(4, 4, 2)
	s.Update(0)

	s.Clear()

	assert.Zero(t, floats.Sum(s.f))
	assert.False(t, s.IsObstacle(4, 4))
	assert.Equal(t, fluid.Cleared, s.State())
	assert.Len(t, s.f, 64*Q)

	s.Update(0)
	assert.True(t, s.Diagnostics().Finite)
}

func TestSetParam(t *testing.T) {
	s := newSolver(t, 8, 8)
	require.NoError(t, s.SetParam("viscosity", 0.1))
	assert.InDelta(t, 0.8, s.Params().Tau, 1e-12)
	assert.True(t, errors.Is(s.SetParam("gamma", 1), fluid.ErrUnknownParam))
}

func TestInitializeRejectsEmptyLattice(t *testing.T) {
	p := DefaultParams()
	p.Width = 0
	s := New(quiet())
	assert.ErrorIs(t, s.Initialize(p), fluid.ErrAllocation)
	s.Update(0)
	assert.Equal(t, fluid.Uninitialized, s.State())
}

type brokenLattice struct {
	calls int
}

func (b *brokenLattice) Name() string                        { return "broken" }
func (b *brokenLattice) Available() bool                     { return true }
func (b *brokenLattice) Dispatch(n int, fn func(lo, hi int)) { fn(0, n) }
func (b *brokenLattice) Cleanup()                            {}

func (b *brokenLattice) CollideStream([]float64, []bool, int, int, float64) error {
	b.calls++
	return errors.New("device lost")
}

func TestLatticeFailureFallsBackToCPU(t *testing.T) {
	s := newSolver(t, 16, 8)
	broken := &brokenLattice{}
	s.exec = compute.NewExecutor(true,
		compute.WithLogger(quiet()),
		compute.WithFactory(func() (compute.Backend, error) { return broken, nil }),
	)

	for i := 0; i < 10; i++ {
		s.Update(0)
	}

	assert.Equal(t, 1, broken.calls)
	assert.True(t, s.exec.Downgraded())
	assert.Equal(t, "cpu", s.Diagnostics().Backend)
	assert.InDelta(t, 1.0, s.DensityAt(3, 3), 1e-9)
}
