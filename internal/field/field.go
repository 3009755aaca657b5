// Package field provides flat scalar grids addressed by 3D or 2D cell
// coordinates. One backing slice replaces nested per-axis arrays.
package field

// Grid3 is an NX×NY×NZ scalar field stored x-fastest.
type Grid3 struct {
	NX, NY, NZ int
	Data       []float64
}

// NewGrid3 allocates a zeroed field.
func NewGrid3(nx, ny, nz int) *Grid3 {
	return &Grid3{NX: nx, NY: ny, NZ: nz, Data: make([]float64, nx*ny*nz)}
}

// Index maps (i, j, k) to the linear offset. It does not bounds check.
func (g *Grid3) Index(i, j, k int) int {
	return (k*g.NY+j)*g.NX + i
}

// InBounds reports whether (i, j, k) addresses a cell.
func (g *Grid3) InBounds(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 && i < g.NX && j < g.NY && k < g.NZ
}

func (g *Grid3) At(i, j, k int) float64 {
	return g.Data[g.Index(i, j, k)]
}

func (g *Grid3) Set(i, j, k int, v float64) {
	g.Data[g.Index(i, j, k)] = v
}

func (g *Grid3) Add(i, j, k int, v float64) {
	g.Data[g.Index(i, j, k)] += v
}

// Clamped returns the value at the nearest in-bounds cell.
func (g *Grid3) Clamped(i, j, k int) float64 {
	return g.At(clamp(i, g.NX), clamp(j, g.NY), clamp(k, g.NZ))
}

// Zero resets every cell without reallocating.
func (g *Grid3) Zero() {
	clear(g.Data)
}

// Len returns the number of cells.
func (g *Grid3) Len() int { return len(g.Data) }

// Grid2 is an NX×NY field with periodic helpers for lattice methods.
type Grid2 struct {
	NX, NY int
	Data   []float64
}

func NewGrid2(nx, ny int) *Grid2 {
	return &Grid2{NX: nx, NY: ny, Data: make([]float64, nx*ny)}
}

func (g *Grid2) Index(x, y int) int { return y*g.NX + x }

func (g *Grid2) At(x, y int) float64 { return g.Data[g.Index(x, y)] }

func (g *Grid2) Set(x, y int, v float64) { g.Data[g.Index(x, y)] = v }

// Wrap maps (x, y) onto the torus and returns the linear offset.
func (g *Grid2) Wrap(x, y int) int {
	return g.Index(Mod(x, g.NX), Mod(y, g.NY))
}

func (g *Grid2) Zero() { clear(g.Data) }

func (g *Grid2) Len() int { return len(g.Data) }

// Mod is the non-negative remainder of a by n.
func Mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
