package fluid

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer is the external draw primitive. Solvers perform no culling.
type Renderer interface {
	RenderParticle(pos r3.Vec, size float64, c color.RGBA)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(pos r3.Vec, size float64, c color.RGBA)

func (f RendererFunc) RenderParticle(pos r3.Vec, size float64, c color.RGBA) {
	f(pos, size, c)
}

// Configurable exposes scalar tunables by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Solver is the surface shared by the SPH, FLIP and LBM solvers once they
// have been initialized with their typed parameters.
type Solver interface {
	Configurable
	Name() string
	Update(dt float64)
	Render(r Renderer)
	ApplyForce(pos, force r3.Vec, radius float64)
	Clear()
	Diagnostics() Diagnostics
}

// Diagnostics summarizes solver state after a step.
type Diagnostics struct {
	Step          int
	Time          float64
	Count         int
	TotalMass     float64
	KineticEnergy float64
	MaxSpeed      float64
	MeanDensity   float64
	Finite        bool
	Backend       string
}

// State is the solver lifecycle.
type State int

const (
	Uninitialized State = iota
	Initialized
	Updating
	Cleared
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Updating:
		return "updating"
	case Cleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Ready reports whether Update may advance the simulation.
func (s State) Ready() bool {
	return s != Uninitialized
}

// MaxCells bounds any single allocation a solver makes at initialization.
const MaxCells = 1 << 27

// CheckAllocation multiplies dims and fails with ErrAllocation when any is
// negative or the product exceeds MaxCells.
func CheckAllocation(dims ...int) (int, error) {
	n := 1
	for _, d := range dims {
		if d < 0 {
			return 0, ErrAllocation
		}
		if d != 0 && n > MaxCells/d {
			return 0, ErrAllocation
		}
		n *= d
	}
	if n > MaxCells {
		return 0, ErrAllocation
	}
	return n, nil
}

// Falloff is the (1 - d/r)^2 weight used by ApplyForce, zero for d >= r.
func Falloff(d, radius float64) float64 {
	if radius <= 0 || d >= radius {
		return 0
	}
	w := 1 - d/radius
	return w * w
}

// IsFinite reports whether every component of v is a real number.
func IsFinite(v r3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
