package palette

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointsMatchStops(t *testing.T) {
	p, err := New("gray")
	require.NoError(t, err)

	assert.Equal(t, uint8(0), p.At(0).R)
	assert.Equal(t, uint8(255), p.At(1).R)
	assert.Equal(t, uint8(255), p.At(0.5).A)
}

func TestAtClamps(t *testing.T) {
	p := Default()
	assert.Equal(t, p.At(0), p.At(-3))
	assert.Equal(t, p.At(0), p.At(math.NaN()))
	assert.Equal(t, p.At(1), p.At(7))
}

func TestScaledDegenerateRange(t *testing.T) {
	p := Default()
	assert.Equal(t, p.At(0), p.Scaled(5, 1, 1))
	assert.Equal(t, p.At(1), p.Scaled(10, 0, 10))
}

func TestUnknownRamp(t *testing.T) {
	_, err := New("sunset")
	assert.Error(t, err)
	assert.Contains(t, Names(), "viridis")
	for _, n := range Names() {
		_, err := New(n)
		assert.NoError(t, err, n)
	}
}
