// Package kernel holds the SPH smoothing kernels. Every expression that
// depends on the smoothing radius lives here so solvers never inline it.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Kernel caches the powers of a smoothing radius h.
type Kernel struct {
	H float64

	h2        float64
	poly6Coef float64
	gradCoef  float64 // poly6 gradient
	spikyCoef float64
	viscCoef  float64
}

// New precomputes coefficients for radius h. h must be positive.
func New(h float64) Kernel {
	h2 := h * h
	h6 := h2 * h2 * h2
	h9 := h6 * h2 * h
	return Kernel{
		H:         h,
		h2:        h2,
		poly6Coef: 315.0 / (64.0 * math.Pi * h9),
		gradCoef:  -945.0 / (32.0 * math.Pi * h9),
		spikyCoef: -45.0 / (math.Pi * h6),
		viscCoef:  45.0 / (math.Pi * h6),
	}
}

// Poly6 is 315/(64π)·((h²−r²)/h³)³ inside the support and 0 for r >= h.
func (k Kernel) Poly6(r float64) float64 {
	if r >= k.H || r < 0 {
		return 0
	}
	d := k.h2 - r*r
	return k.poly6Coef * d * d * d
}

// Poly6Gradient is ∇W for rv = p_i − p_j with |rv| = r.
func (k Kernel) Poly6Gradient(rv r3.Vec, r float64) r3.Vec {
	if r >= k.H {
		return r3.Vec{}
	}
	d := k.h2 - r*r
	return r3.Scale(k.gradCoef*d*d, rv)
}

// Poly6Laplacian is ∇²W at distance r.
func (k Kernel) Poly6Laplacian(r float64) float64 {
	if r >= k.H {
		return 0
	}
	r2 := r * r
	d := k.h2 - r2
	return k.gradCoef * d * (3*k.h2 - 7*r2)
}

// SpikyGradient returns unit(rv)·(−45/π)·(h−r)²/h⁶, or zero when r >= h or
// r <= 0. With rv = p_i − p_j the vector points toward j, so the pressure
// force built on it pushes i away from j.
func (k Kernel) SpikyGradient(rv r3.Vec, r float64) r3.Vec {
	if r >= k.H || r <= 0 {
		return r3.Vec{}
	}
	d := k.H - r
	return r3.Scale(k.spikyCoef*d*d/r, rv)
}

// ViscosityLaplacian is 45/π·(h−r)/h⁶ inside the support.
func (k Kernel) ViscosityLaplacian(r float64) float64 {
	if r >= k.H {
		return 0
	}
	return k.viscCoef * (k.H - r)
}

// Poly6 evaluates the poly6 kernel for a one-off radius.
func Poly6(r, h float64) float64 {
	return New(h).Poly6(r)
}

// SpikyGradient evaluates the spiky gradient for a one-off radius.
func SpikyGradient(rv r3.Vec, r, h float64) r3.Vec {
	return New(h).SpikyGradient(rv, r)
}

// ViscosityLaplacian evaluates the viscosity laplacian for a one-off radius.
func ViscosityLaplacian(r, h float64) float64 {
	return New(h).ViscosityLaplacian(r)
}
