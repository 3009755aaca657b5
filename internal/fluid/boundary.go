package fluid

import "gonum.org/v1/gonum/spatial/r3"

// DefaultRestitution attenuates the reflected velocity component.
const DefaultRestitution = 0.5

// Box is an axis-aligned domain. Z is ignored by 2D solvers.
type Box struct {
	Min r3.Vec `yaml:"min"`
	Max r3.Vec `yaml:"max"`
}

// CenteredBox returns a cube of the given half extent around the origin.
func CenteredBox(half float64) Box {
	return Box{
		Min: r3.Vec{X: -half, Y: -half, Z: -half},
		Max: r3.Vec{X: half, Y: half, Z: half},
	}
}

// Size returns the box edge lengths.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Reflect clamps p into the box. On every axis where p crossed a plane the
// velocity component is inverted and scaled by restitution. It reports
// whether any plane was hit.
func (b Box) Reflect(p, v *r3.Vec, restitution float64) bool {
	hx := reflectAxis(&p.X, &v.X, b.Min.X, b.Max.X, restitution)
	hy := reflectAxis(&p.Y, &v.Y, b.Min.Y, b.Max.Y, restitution)
	hz := reflectAxis(&p.Z, &v.Z, b.Min.Z, b.Max.Z, restitution)
	return hx || hy || hz
}

func reflectAxis(p, v *float64, lo, hi, e float64) bool {
	switch {
	case *p < lo:
		*p = lo
		*v = -*v * e
		return true
	case *p > hi:
		*p = hi
		*v = -*v * e
		return true
	}
	return false
}
