package lpc

import (
	"errors"
	"math"
)

// DefaultPreEmphasis is the first-order pre-emphasis coefficient applied
// before LPC analysis.
const DefaultPreEmphasis = 0.97

// ErrInvalidOrder is returned when the prediction order is not usable.
var ErrInvalidOrder = errors.New("lpc: order must be > 0")

// Coeffs is an all-pole model of one analysis frame.
type Coeffs struct {
	// A holds order+1 coefficients, A[0] == 1.
	A []float64
	// Gain is the square root of the final prediction error energy.
	Gain float64
}

// Order returns the prediction order used for a given sampling rate:
// fs/1000 + 2, rounded up to an even value so that the LSF pair structure
// is complete.
func Order(sampleRate float64) int {
	p := int(sampleRate/1000) + 2
	if p%2 != 0 {
		p++
	}

	return p
}

// PreEmphasize returns y[n] = x[n] - coef*x[n-1], with y[0] = x[0].
func PreEmphasize(x []float64, coef float64) []float64 {
	if len(x) == 0 {
		return nil
	}

	y := make([]float64, len(x))
	y[0] = x[0]

	for n := 1; n < len(x); n++ {
		y[n] = x[n] - coef*x[n-1]
	}

	return y
}

// Autocorrelation returns r[0..order] of x.
func Autocorrelation(x []float64, order int) []float64 {
	r := make([]float64, order+1)
	for lag := 0; lag <= order && lag < len(x); lag++ {
		sum := 0.0
		for n := 0; n+lag < len(x); n++ {
			sum += x[n] * x[n+lag]
		}

		r[lag] = sum
	}

	return r
}

// LevinsonDurbin solves the normal equations for the autocorrelation r and
// returns the predictor polynomial together with the prediction error energy.
//
// A zero-energy input yields the trivial predictor A(z) = 1 and zero error.
// If the recursion becomes numerically unstable it stops at the last stable
// order and leaves the remaining coefficients at zero.
func LevinsonDurbin(r []float64, order int) ([]float64, float64) {
	a := make([]float64, order+1)
	a[0] = 1

	if len(r) == 0 || r[0] <= 0 {
		return a, 0
	}

	e := r[0]
	prev := make([]float64, order+1)

	for i := 1; i <= order && i < len(r); i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc += a[j] * r[i-j]
		}

		k := -acc / e
		if math.Abs(k) >= 1 || math.IsNaN(k) {
			break
		}

		copy(prev[:i], a[:i])
		for j := 1; j < i; j++ {
			a[j] = prev[j] + k*prev[i-j]
		}

		a[i] = k
		e *= 1 - k*k
	}

	return a, e
}

// Analyze fits an order-p all-pole model to x. The caller is expected to
// have windowed (and usually pre-emphasized) the frame.
func Analyze(x []float64, order int) (Coeffs, error) {
	if order <= 0 {
		return Coeffs{}, ErrInvalidOrder
	}

	a, e := LevinsonDurbin(Autocorrelation(x, order), order)

	return Coeffs{A: a, Gain: math.Sqrt(math.Max(e, 0))}, nil
}

// BandwidthExpand scales a[i] by gamma^i in place, widening formant
// bandwidths and keeping LSF root search well conditioned.
func BandwidthExpand(a []float64, gamma float64) {
	g := 1.0
	for i := range a {
		a[i] *= g
		g *= gamma
	}
}
