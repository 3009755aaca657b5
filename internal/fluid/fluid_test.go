package fluid

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestReflectClampsAndHalves(t *testing.T) {
	box := CenteredBox(1)

	tests := []struct {
		name  string
		p, v  r3.Vec
		wantP r3.Vec
		wantV r3.Vec
		hit   bool
	}{
		{"inside", r3.Vec{X: 0.5}, r3.Vec{X: 1}, r3.Vec{X: 0.5}, r3.Vec{X: 1}, false},
		{"past max x", r3.Vec{X: 1.2}, r3.Vec{X: 2}, r3.Vec{X: 1}, r3.Vec{X: -1}, true},
		{"past min y", r3.Vec{Y: -1.5}, r3.Vec{Y: -4}, r3.Vec{Y: -1}, r3.Vec{Y: 2}, true},
		{"corner", r3.Vec{X: 2, Z: -2}, r3.Vec{X: 1, Z: -1}, r3.Vec{X: 1, Z: -1}, r3.Vec{X: -0.5, Z: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, v := tt.p, tt.v
			hit := box.Reflect(&p, &v, DefaultRestitution)
			assert.Equal(t, tt.hit, hit)
			assert.Equal(t, tt.wantP, p)
			assert.Equal(t, tt.wantV, v)
		})
	}
}

func TestFalloff(t *testing.T) {
	assert.Equal(t, 1.0, Falloff(0, 2))
	assert.InDelta(t, 0.25, Falloff(1, 2), 1e-12)
	assert.Zero(t, Falloff(2, 2))
	assert.Zero(t, Falloff(3, 2))
	assert.Zero(t, Falloff(0, 0))
}

func TestCheckAllocation(t *testing.T) {
	n, err := CheckAllocation(10, 20, 30)
	assert.NoError(t, err)
	assert.Equal(t, 6000, n)

	_, err = CheckAllocation(-1)
	assert.True(t, errors.Is(err, ErrAllocation))

	_, err = CheckAllocation(1<<20, 1<<20)
	assert.True(t, errors.Is(err, ErrAllocation))

	n, err = CheckAllocation(0, 5)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestStepErrorUnwrap(t *testing.T) {
	err := error(&StepError{Step: 3, Time: 0.1, Wrapped: ErrUnstable})
	assert.True(t, errors.Is(err, ErrUnstable))
	assert.Contains(t, err.Error(), "step 3")
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(r3.Vec{X: 1, Y: 2, Z: 3}))
	assert.False(t, IsFinite(r3.Vec{X: math.NaN()}))
	assert.False(t, IsFinite(r3.Vec{Z: math.Inf(-1)}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "cleared", Cleared.String())
	assert.False(t, Uninitialized.Ready())
	assert.True(t, Cleared.Ready())
}
