// Package palette maps normalized scalars to render colours by blending
// colour stops in CIE-L*a*b* space.
package palette

import (
	"fmt"
	"image/color"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const tableSize = 256

var stops = map[string][]string{
	"viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"inferno": {"#000004", "#420a68", "#932667", "#dd513a", "#fca50a", "#fcffa4"},
	"ocean":   {"#03045e", "#0077b6", "#00b4d8", "#90e0ef", "#caf0f8"},
	"gray":    {"#000000", "#ffffff"},
}

// Palette is a precomputed colour ramp.
type Palette struct {
	name  string
	table [tableSize]color.RGBA
}

var defaultPalette = mustNew("viridis")

// Default returns the viridis ramp.
func Default() *Palette { return defaultPalette }

// Names lists the built-in ramps.
func Names() []string {
	names := make([]string, 0, len(stops))
	for n := range stops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds a named ramp.
func New(name string) (*Palette, error) {
	hexes, ok := stops[name]
	if !ok {
		return nil, fmt.Errorf("palette: unknown ramp %q", name)
	}
	cols := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette: %s: %w", name, err)
		}
		cols[i] = c
	}

	p := &Palette{name: name}
	segments := float64(len(cols) - 1)
	for i := range p.table {
		t := float64(i) / (tableSize - 1) * segments
		k := int(t)
		if k >= len(cols)-1 {
			k = len(cols) - 2
		}
		c := cols[k].BlendLab(cols[k+1], t-float64(k)).Clamped()
		r, g, b := c.RGB255()
		p.table[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return p, nil
}

func mustNew(name string) *Palette {
	p, err := New(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the ramp name.
func (p *Palette) Name() string { return p.name }

// At returns the colour for t in [0, 1]; t is clamped.
func (p *Palette) At(t float64) color.RGBA {
	if !(t > 0) {
		return p.table[0]
	}
	if t >= 1 {
		return p.table[tableSize-1]
	}
	return p.table[int(t*(tableSize-1)+0.5)]
}

// Scaled maps v from [lo, hi] onto the ramp.
func (p *Palette) Scaled(v, lo, hi float64) color.RGBA {
	if hi <= lo {
		return p.table[0]
	}
	return p.At((v - lo) / (hi - lo))
}

// Obstacle is the colour used for solid lattice cells.
var Obstacle = color.RGBA{R: 90, G: 90, B: 100, A: 255}
