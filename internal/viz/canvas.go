package viz

import (
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille dot matrix of Width x Height terminal cells. Each cell
// remembers the colour of the last dot set in it.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]color.RGBA
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]color.RGBA, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]color.RGBA, w)
	}
	c.Clear()
	return c
}

// DotsX is the canvas width in sub-pixels.
func (c *Canvas) DotsX() int { return c.Width * 2 }

// DotsY is the canvas height in sub-pixels.
func (c *Canvas) DotsY() int { return c.Height * 4 }

// Set lights the sub-pixel (x, y). Out of range coordinates are ignored.
func (c *Canvas) Set(x, y int, col color.RGBA) {
	if x < 0 || y < 0 {
		return
	}
	row, cell := y/4, x/2
	if cell >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][cell] |= rune(pixelMap[y%4][x%2])
	c.Colors[row][cell] = col
}

// Unset clears a sub-pixel.
func (c *Canvas) Unset(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	row, cell := y/4, x/2
	if cell >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][cell] &^= rune(pixelMap[y%4][x%2])
}

// Lit reports whether the sub-pixel (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Colors[i][j] = color.RGBA{}
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col color.RGBA) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// String renders the dots without colour.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Styled renders the dots with each cell in its recorded colour.
func (c *Canvas) Styled() string {
	var b strings.Builder
	styles := make(map[color.RGBA]lipgloss.Style)
	for i, row := range c.Grid {
		for j, r := range row {
			if r == blank {
				b.WriteRune(r)
				continue
			}
			col := c.Colors[i][j]
			st, ok := styles[col]
			if !ok {
				cf, _ := colorful.MakeColor(col)
				st = lipgloss.NewStyle().Foreground(lipgloss.Color(cf.Hex()))
				styles[col] = st
			}
			b.WriteString(st.Render(string(r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
