package viz

import (
	"image/color"
	"math"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera rotates the domain about its centre before an orthographic
// projection onto the canvas.
type Camera struct {
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera { return &Camera{Zoom: 1} }

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }
func (c *Camera) Reset()            { *c = Camera{Zoom: 1} }

// Rotate applies the X then Y rotation to p.
func (c *Camera) Rotate(p r3.Vec) r3.Vec {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

// Plotter draws solver output onto a canvas. It implements fluid.Renderer.
type Plotter struct {
	Canvas *Canvas
	Camera *Camera
	Domain fluid.Box
}

// Project maps a world position to canvas sub-pixels with y pointing down.
// The domain is scaled uniformly to fit the canvas and centred on it.
func (p *Plotter) Project(pos r3.Vec) (int, int) {
	size := p.Domain.Size()
	centre := r3.Scale(0.5, r3.Add(p.Domain.Min, p.Domain.Max))
	rel := r3.Sub(pos, centre)
	if p.Camera != nil {
		rel = r3.Scale(p.Camera.Zoom, p.Camera.Rotate(rel))
	}
	w, h := float64(p.Canvas.DotsX()), float64(p.Canvas.DotsY())
	scale := math.Min(w/math.Max(size.X, 1e-9), h/math.Max(size.Y, 1e-9))
	x := int(math.Floor(w/2 + rel.X*scale))
	y := int(math.Floor(h/2 - rel.Y*scale))
	return x, y
}

func (p *Plotter) RenderParticle(pos r3.Vec, size float64, c color.RGBA) {
	x, y := p.Project(pos)
	p.Canvas.Set(x, y, c)
}
