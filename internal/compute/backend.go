package compute

import "errors"

// ErrUnavailable is returned by accelerated factories that cannot acquire
// a compute context.
var ErrUnavailable = errors.New("compute: accelerated backend unavailable")

// Backend executes per-index kernels. Dispatch calls fn over disjoint
// [lo, hi) ranges covering [0, n) and returns once all have finished; fn
// must only write state owned by indices in its range.
type Backend interface {
	Name() string
	Available() bool
	Dispatch(n int, fn func(lo, hi int))
	Cleanup()
}

// LatticeStepper is implemented by backends that can run the D2Q9
// collide and stream passes natively. f holds nine distributions per cell,
// cell-major, with the direction order used by the lbm package.
type LatticeStepper interface {
	CollideStream(f []float64, solid []bool, nx, ny int, omega float64) error
}

// Factory builds an accelerated backend.
type Factory func() (Backend, error)

// Accelerated builds the best accelerated backend compiled into the binary.
func Accelerated() (Backend, error) {
	return newAccelerated()
}
