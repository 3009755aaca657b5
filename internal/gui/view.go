// Package gui is a desktop window for a running solver. The window itself
// needs the gui build tag; the projection and input mapping here are shared.
package gui

import (
	"errors"
	"math"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
	margin       = 40
)

var ErrUnavailable = errors.New("gui: built without the gui tag")

// View maps the solver domain onto the window. Yaw turns the domain about
// the vertical axis for 3D runs.
type View struct {
	Domain        fluid.Box
	Width, Height int
	Yaw           float64
}

func NewView(domain fluid.Box) *View {
	return &View{Domain: domain, Width: ScreenWidth, Height: ScreenHeight}
}

// Scale is pixels per world unit.
func (v *View) Scale() float64 {
	size := v.Domain.Size()
	w := float64(v.Width - 2*margin)
	h := float64(v.Height - 2*margin)
	return math.Min(w/math.Max(size.X, 1e-9), h/math.Max(size.Y, 1e-9))
}

func (v *View) centre() r3.Vec {
	return r3.Scale(0.5, r3.Add(v.Domain.Min, v.Domain.Max))
}

// ToScreen projects a world position to pixels with y pointing down.
func (v *View) ToScreen(p r3.Vec) (float32, float32) {
	rel := r3.Sub(p, v.centre())
	if v.Yaw != 0 {
		c, s := math.Cos(v.Yaw), math.Sin(v.Yaw)
		rel.X = rel.X*c + rel.Z*s
	}
	k := v.Scale()
	return float32(float64(v.Width)/2 + rel.X*k), float32(float64(v.Height)/2 - rel.Y*k)
}

// ToWorld inverts ToScreen on the plane through the domain centre facing
// the viewer.
func (v *View) ToWorld(x, y int) r3.Vec {
	k := v.Scale()
	rel := r3.Vec{
		X: (float64(x) - float64(v.Width)/2) / k,
		Y: (float64(v.Height)/2 - float64(y)) / k,
	}
	if v.Yaw != 0 {
		c, s := math.Cos(v.Yaw), math.Sin(v.Yaw)
		rel.X, rel.Z = rel.X*c, rel.X*s
	}
	return r3.Add(v.centre(), rel)
}

// Drag converts a mouse drag in pixels into a poke: the world position of
// the drag end, a force proportional to the drag, and a radius of a tenth
// of the domain.
func (v *View) Drag(x0, y0, x1, y1 int, gain float64) (pos, force r3.Vec, radius float64) {
	a, b := v.ToWorld(x0, y0), v.ToWorld(x1, y1)
	size := v.Domain.Size()
	return b, r3.Scale(gain, r3.Sub(b, a)), 0.1 * math.Max(size.X, size.Y)
}
