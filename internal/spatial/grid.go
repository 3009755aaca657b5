// Package spatial provides the uniform bucket grid used for neighbor search.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid maps positions to cell buckets of particle indices. A grid with a
// z resolution of 1 is planar and searches 9 cells instead of 27.
type Grid struct {
	origin   r3.Vec
	cellSize float64
	res      [3]int
	cells    [][]int // flat grid of index lists
	cellOf   []int   // -1 when out of bounds
	pos      []r3.Vec
}

// New creates a grid of res cells starting at origin.
func New(origin r3.Vec, cellSize float64, res [3]int) *Grid {
	for i := range res {
		if res[i] < 1 {
			res[i] = 1
		}
	}
	cells := make([][]int, res[0]*res[1]*res[2])
	for i := range cells {
		cells[i] = make([]int, 0, 8)
	}
	return &Grid{
		origin:   origin,
		cellSize: cellSize,
		res:      res,
		cells:    cells,
	}
}

// Covering builds a grid whose cells of size cellSize cover [min, max].
// When planar is set the z axis collapses to a single layer.
func Covering(min, max r3.Vec, cellSize float64, planar bool) *Grid {
	span := r3.Sub(max, min)
	res := [3]int{
		cellsFor(span.X, cellSize),
		cellsFor(span.Y, cellSize),
		cellsFor(span.Z, cellSize),
	}
	if planar {
		res[2] = 1
	}
	return New(min, cellSize, res)
}

func cellsFor(span, cellSize float64) int {
	n := int(math.Ceil(span / cellSize))
	if n < 1 {
		n = 1
	}
	return n
}

// Resolution returns the cell counts per axis.
func (g *Grid) Resolution() [3]int { return g.res }

// CellSize returns the edge length of one cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Planar reports whether the grid searches in 2D.
func (g *Grid) Planar() bool { return g.res[2] == 1 }

// Len returns the number of indices currently bucketed.
func (g *Grid) Len() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}

// Rebuild clears every cell and inserts each in-bounds position by index.
// The slice is retained until the next Rebuild for distance checks.
func (g *Grid) Rebuild(positions []r3.Vec) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	if cap(g.cellOf) < len(positions) {
		g.cellOf = make([]int, len(positions))
	}
	g.cellOf = g.cellOf[:len(positions)]
	g.pos = positions

	for i, p := range positions {
		idx, ok := g.CellOf(p)
		if !ok {
			g.cellOf[i] = -1
			continue
		}
		g.cellOf[i] = idx
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// CellOf returns the flat cell index for p, or false outside the grid.
func (g *Grid) CellOf(p r3.Vec) (int, bool) {
	x, y, z, ok := g.coords(p)
	if !ok {
		return -1, false
	}
	return g.index(x, y, z), true
}

func (g *Grid) coords(p r3.Vec) (int, int, int, bool) {
	x := int(math.Floor((p.X - g.origin.X) / g.cellSize))
	y := int(math.Floor((p.Y - g.origin.Y) / g.cellSize))
	z := 0
	if !g.Planar() {
		z = int(math.Floor((p.Z - g.origin.Z) / g.cellSize))
	}
	if x < 0 || y < 0 || z < 0 || x >= g.res[0] || y >= g.res[1] || z >= g.res[2] {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

func (g *Grid) index(x, y, z int) int {
	return (z*g.res[1]+y)*g.res[0] + x
}

// NeighborsOf appends to dst every index j != i bucketed in the cells
// surrounding i's cell with |p_i − p_j| < radius. Only the adjacent ring of
// cells is searched, so radius should not exceed the cell size. Particles
// outside the grid have no neighbors.
func (g *Grid) NeighborsOf(i int, radius float64, dst []int) []int {
	dst = dst[:0]
	if i < 0 || i >= len(g.cellOf) || g.cellOf[i] < 0 {
		return dst
	}
	p := g.pos[i]
	cx, cy, cz, _ := g.coords(p)
	dz := 1
	if g.Planar() {
		dz = 0
	}
	return g.scan(p, radius*radius, i, cx-1, cx+1, cy-1, cy+1, cz-dz, cz+dz, dst)
}

// Query appends every bucketed index within radius of p. Unlike
// NeighborsOf it widens the search to as many cells as radius spans.
func (g *Grid) Query(p r3.Vec, radius float64, dst []int) []int {
	dst = dst[:0]
	lo := r3.Sub(p, r3.Vec{X: radius, Y: radius, Z: radius})
	hi := r3.Add(p, r3.Vec{X: radius, Y: radius, Z: radius})
	x0, x1 := g.span(lo.X, hi.X, g.origin.X, g.res[0])
	y0, y1 := g.span(lo.Y, hi.Y, g.origin.Y, g.res[1])
	z0, z1 := 0, 0
	if !g.Planar() {
		z0, z1 = g.span(lo.Z, hi.Z, g.origin.Z, g.res[2])
	}
	return g.scan(p, radius*radius, -1, x0, x1, y0, y1, z0, z1, dst)
}

func (g *Grid) span(lo, hi, origin float64, n int) (int, int) {
	a := int(math.Floor((lo - origin) / g.cellSize))
	b := int(math.Floor((hi - origin) / g.cellSize))
	return max(a, 0), min(b, n-1)
}

func (g *Grid) scan(p r3.Vec, r2 float64, self, x0, x1, y0, y1, z0, z1 int, dst []int) []int {
	x0, y0, z0 = max(x0, 0), max(y0, 0), max(z0, 0)
	x1, y1, z1 = min(x1, g.res[0]-1), min(y1, g.res[1]-1), min(z1, g.res[2]-1)
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				for _, j := range g.cells[g.index(x, y, z)] {
					if j == self {
						continue
					}
					if r3.Norm2(r3.Sub(g.pos[j], p)) < r2 {
						dst = append(dst, j)
					}
				}
			}
		}
	}
	return dst
}
