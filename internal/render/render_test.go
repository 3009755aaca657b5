package render

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/fluidsim/internal/fluid"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestRecorderCollectsCalls(t *testing.T) {
	f := &Frame{Solver: "sph"}
	var r fluid.Renderer = &Recorder{Frame: f}

	r.RenderParticle(r3.Vec{X: 1, Y: 2, Z: 3}, 0.5, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	r.RenderParticle(r3.Vec{X: -1}, 0.5, color.RGBA{})

	if len(f.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(f.Points))
	}
	if f.Points[0] != (Point{X: 1, Y: 2, Z: 3, Size: 0.5, R: 10, G: 20, B: 30}) {
		t.Errorf("unexpected point %+v", f.Points[0])
	}

	lo, hi := f.Bounds()
	if lo.X != -1 || hi.Z != 3 {
		t.Errorf("unexpected bounds %v %v", lo, hi)
	}
}

func TestFrameJSON(t *testing.T) {
	f := &Frame{Solver: "lbm", Step: 7, Points: []Point{{X: 0.5, Y: 0.5, Size: 1, R: 255}}}
	var buf bytes.Buffer
	if err := f.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var got Frame
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Step != 7 || len(got.Points) != 1 || got.Points[0].R != 255 {
		t.Errorf("unexpected frame %+v", got)
	}
}

func TestFramePoolResets(t *testing.T) {
	p := NewFramePool(4)
	f := p.Get()
	f.Points = append(f.Points, Point{X: 1})
	p.Put(f)

	if got := p.Get(); len(got.Points) != 0 {
		t.Errorf("expected empty frame, got %d points", len(got.Points))
	}
}

func TestFrameToSVG(t *testing.T) {
	f := &Frame{Points: []Point{{X: 0, Y: 0, Size: 0.1, R: 255}, {X: 1, Y: 1, Size: 0.1, B: 255}}}
	svg := FrameToSVG(f, 200, 100)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("not a complete svg document")
	}
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("expected 2 circles")
	}
	if !strings.Contains(svg, `fill="#ff0000"`) || !strings.Contains(svg, `fill="#0000ff"`) {
		t.Error("point colours missing")
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([]float64{1}, 10, 10, "#fff") != "" {
		t.Error("single sample should render nothing")
	}
	svg := SeriesToSVG([]float64{0, 1, 0.5}, 100, 50, "#00ff00")
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments in %s", svg)
	}
}

type dotSolver struct{ fluid.Solver }

func (dotSolver) Name() string { return "dots" }
func (dotSolver) Diagnostics() fluid.Diagnostics {
	return fluid.Diagnostics{Step: 3, Time: 0.3}
}
func (dotSolver) Render(r fluid.Renderer) {
	for i := 0; i < 5; i++ {
		r.RenderParticle(r3.Vec{X: float64(i)}, 1, color.RGBA{A: 255})
	}
}

func TestCapture(t *testing.T) {
	pool := NewFramePool(8)
	f := Capture(dotSolver{}, pool)
	if f.Solver != "dots" || f.Step != 3 || len(f.Points) != 5 {
		t.Errorf("unexpected frame %+v", f)
	}
	pool.Put(f)

	if f := Capture(dotSolver{}, nil); len(f.Points) != 5 {
		t.Errorf("expected 5 points without pool, got %d", len(f.Points))
	}
}

func TestPlotSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.png")
	x := []float64{0, 1, 2, 3}
	err := PlotSeries(path, "run", x, map[string][]float64{
		"kinetic_energy": {4, 3, 2, 1},
		"max_speed":      {1, 1, 1},
	})
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("expected a non-empty image, err %v", err)
	}

	if err := PlotSeries(path, "run", x, nil); err == nil {
		t.Error("expected an error for an empty chart")
	}
}
