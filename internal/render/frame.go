// Package render turns solver render calls into frames that can be
// serialized, streamed or exported.
package render

import (
	"encoding/json"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point is one RenderParticle call.
type Point struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Size float64 `json:"s"`
	R    uint8   `json:"r"`
	G    uint8   `json:"g"`
	B    uint8   `json:"b"`
}

// Frame is everything one Render emitted.
type Frame struct {
	Solver string  `json:"solver"`
	Step   int     `json:"step"`
	Time   float64 `json:"time"`
	Points []Point `json:"points"`
}

// Recorder implements fluid.Renderer by appending to a frame.
type Recorder struct {
	Frame *Frame
}

func (r *Recorder) RenderParticle(pos r3.Vec, size float64, c color.RGBA) {
	r.Frame.Points = append(r.Frame.Points, Point{
		X: pos.X, Y: pos.Y, Z: pos.Z, Size: size,
		R: c.R, G: c.G, B: c.B,
	})
}

// Capture renders s into a frame from the pool, or a new frame when pool
// is nil.
func Capture(s fluid.Solver, pool *FramePool) *Frame {
	var f *Frame
	if pool != nil {
		f = pool.Get()
	} else {
		f = &Frame{}
	}
	d := s.Diagnostics()
	f.Solver, f.Step, f.Time = s.Name(), d.Step, d.Time
	s.Render(&Recorder{Frame: f})
	return f
}

// Bounds returns the extent of the frame's points. An empty frame gives the
// unit square.
func (f *Frame) Bounds() (lo, hi r3.Vec) {
	if len(f.Points) == 0 {
		return r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}
	}
	lo = r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range f.Points {
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
		lo.Z, hi.Z = math.Min(lo.Z, p.Z), math.Max(hi.Z, p.Z)
	}
	return lo, hi
}

// WriteJSON encodes the frame compactly.
func (f *Frame) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(f)
}

// FramePool recycles point buffers between captures.
type FramePool struct {
	pool sync.Pool
}

func NewFramePool(capacity int) *FramePool {
	return &FramePool{
		pool: sync.Pool{
			New: func() interface{} {
				return &Frame{Points: make([]Point, 0, capacity)}
			},
		},
	}
}

func (p *FramePool) Get() *Frame {
	f := p.pool.Get().(*Frame)
	f.Points = f.Points[:0]
	return f
}

func (p *FramePool) Put(f *Frame) {
	if f != nil {
		p.pool.Put(f)
	}
}
