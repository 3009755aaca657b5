package spatial

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func bruteNeighbors(pos []r3.Vec, i int, radius float64) []int {
	var out []int
	for j, p := range pos {
		if j == i {
			continue
		}
		if r3.Norm(r3.Sub(p, pos[i])) < radius {
			out = append(out, j)
		}
	}
	return out
}

func sorted(s []int) []int {
	c := append([]int(nil), s...)
	sort.Ints(c)
	return c
}

func TestNeighborsMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pos := make([]r3.Vec, 400)
	for i := range pos {
		pos[i] = r3.Vec{X: rng.Float64() * 2, Y: rng.Float64() * 2, Z: rng.Float64() * 2}
	}

	h := 0.25
	g := Covering(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2}, h, false)
	g.Rebuild(pos)
	require.Equal(t, len(pos), g.Len())

	var buf []int
	for i := range pos {
		buf = g.NeighborsOf(i, h, buf)
		assert.Equal(t, sorted(bruteNeighbors(pos, i, h)), sorted(buf), "particle %d", i)
	}
}

func TestNeighborsStrictRadius(t *testing.T) {
	pos := []r3.Vec{{X: 0.25, Y: 0.25, Z: 0.25}, {X: 0.75, Y: 0.25, Z: 0.25}, {X: 0.6, Y: 0.25, Z: 0.25}}
	g := New(r3.Vec{}, 0.5, [3]int{4, 4, 4})
	g.Rebuild(pos)

	got := g.NeighborsOf(0, 0.5, nil)
	assert.Equal(t, []int{2}, got, "exact distance must be excluded")
}

func TestNeighborsExcludeSelf(t *testing.T) {
	pos := []r3.Vec{{X: 0.1, Y: 0.1, Z: 0.1}, {X: 0.1, Y: 0.1, Z: 0.1}}
	g := New(r3.Vec{}, 0.5, [3]int{2, 2, 2})
	g.Rebuild(pos)

	assert.Equal(t, []int{1}, g.NeighborsOf(0, 0.5, nil))
	assert.Equal(t, []int{0}, g.NeighborsOf(1, 0.5, nil))
}

func TestOutOfBoundsOmitted(t *testing.T) {
	pos := []r3.Vec{{X: 0.1, Y: 0.1, Z: 0.1}, {X: -0.05, Y: 0.1, Z: 0.1}, {X: 5, Y: 0, Z: 0}}
	g := New(r3.Vec{}, 0.5, [3]int{2, 2, 2})
	g.Rebuild(pos)

	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.NeighborsOf(0, 0.5, nil))
	assert.Empty(t, g.NeighborsOf(1, 0.5, nil))
	_, ok := g.CellOf(pos[2])
	assert.False(t, ok)
}

func TestPlanarGrid(t *testing.T) {
	g := Covering(r3.Vec{}, r3.Vec{X: 1, Y: 1}, 0.25, true)
	assert.True(t, g.Planar())
	assert.Equal(t, [3]int{4, 4, 1}, g.Resolution())

	pos := []r3.Vec{{X: 0.3, Y: 0.3}, {X: 0.45, Y: 0.3}, {X: 0.3, Y: 0.51}, {X: 0.9, Y: 0.9}}
	g.Rebuild(pos)
	assert.Equal(t, []int{1, 2}, sorted(g.NeighborsOf(0, 0.25, nil)))
}

func TestQueryWideRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pos := make([]r3.Vec, 200)
	for i := range pos {
		pos[i] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	g := Covering(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, 0.1, false)
	g.Rebuild(pos)

	center := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	got := g.Query(center, 0.35, nil)

	var want []int
	for j, p := range pos {
		if r3.Norm(r3.Sub(p, center)) < 0.35 {
			want = append(want, j)
		}
	}
	assert.Equal(t, sorted(want), sorted(got))
}

func TestRebuildClearsPrevious(t *testing.T) {
	g := New(r3.Vec{}, 1, [3]int{2, 2, 2})
	g.Rebuild([]r3.Vec{{X: 0.5}, {X: 1.5}, {X: 0.5, Y: 1.5}})
	require.Equal(t, 3, g.Len())
	g.Rebuild([]r3.Vec{{X: 0.5}})
	assert.Equal(t, 1, g.Len())
}
