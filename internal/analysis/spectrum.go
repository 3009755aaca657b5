package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// ErrShortSeries is returned when a series has too few samples to analyze.
var ErrShortSeries = errors.New("analysis: series too short")

// Spectrum returns the one-sided power spectrum of series sampled every dt.
// The mean is removed first so the DC bin reflects only rounding.
func Spectrum(series []float64, dt float64) (freqs, power []float64, err error) {
	n := len(series)
	if n < 4 {
		return nil, nil, ErrShortSeries
	}
	if dt <= 0 {
		dt = 1
	}

	mean := stat.Mean(series, nil)
	detrended := make([]float64, n)
	for i, v := range series {
		detrended[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, detrended)

	freqs = make([]float64, len(coeffs))
	power = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		power[i] = a * a / float64(n)
	}
	return freqs, power, nil
}

// DominantFrequency returns the frequency and power of the strongest
// non-DC bin.
func DominantFrequency(series []float64, dt float64) (float64, float64, error) {
	freqs, power, err := Spectrum(series, dt)
	if err != nil {
		return 0, 0, err
	}
	best := 1
	for i := 2; i < len(power); i++ {
		if power[i] > power[best] {
			best = i
		}
	}
	return freqs[best], power[best], nil
}

type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Final  float64
}

func Summarize(series []float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}
	s := Summary{
		Mean:  stat.Mean(series, nil),
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Final: series[len(series)-1],
	}
	if len(series) > 1 {
		s.StdDev = stat.StdDev(series, nil)
	}
	for _, v := range series {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}

// SettlingIndex returns the first index from which every sample lies within
// tol·|final| (or tol when final is zero) of the final value. It returns
// len(series)-1 for a series that never settles before its end.
func SettlingIndex(series []float64, tol float64) int {
	if len(series) == 0 {
		return 0
	}
	final := series[len(series)-1]
	band := tol * math.Abs(final)
	if final == 0 {
		band = tol
	}
	idx := len(series) - 1
	for i := len(series) - 1; i >= 0; i-- {
		if math.Abs(series[i]-final) > band {
			break
		}
		idx = i
	}
	return idx
}
