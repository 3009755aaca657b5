package lbm

// Q is the number of discrete velocities.
const Q = 9

// D2Q9 stencil: rest, four axis directions, four diagonals.
var (
	CX = [Q]int{0, 1, 0, -1, 0, 1, -1, -1, 1}
	CY = [Q]int{0, 0, 1, 0, -1, 1, 1, -1, -1}

	Weights = [Q]float64{
		4.0 / 9,
		1.0 / 9, 1.0 / 9, 1.0 / 9, 1.0 / 9,
		1.0 / 36, 1.0 / 36, 1.0 / 36, 1.0 / 36,
	}

	// Opposite[q] is the direction with -c_q.
	Opposite = [Q]int{0, 3, 4, 1, 2, 7, 8, 5, 6}
)

// Equilibrium returns f_q^eq for density rho and velocity (ux, uy).
func Equilibrium(q int, rho, ux, uy float64) float64 {
	cu := float64(CX[q])*ux + float64(CY[q])*uy
	usq := ux*ux + uy*uy
	return Weights[q] * rho * (1 + 3*cu + 4.5*cu*cu - 1.5*usq)
}

// moments returns density and velocity of the nine distributions in f.
func moments(f []float64) (rho, ux, uy float64) {
	var mx, my float64
	for q := 0; q < Q; q++ {
		rho += f[q]
		mx += f[q] * float64(CX[q])
		my += f[q] * float64(CY[q])
	}
	if rho == 0 {
		return 0, 0, 0
	}
	return rho, mx / rho, my / rho
}
