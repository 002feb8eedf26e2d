package lpc

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// envelopeFloor keeps |A| away from zero when inverting it.
const envelopeFloor = 1e-10

// Envelope returns the magnitude response gain/|A(e^{jw})| of the all-pole
// model on the n-point DFT grid, for bins 0..n/2.
func Envelope(c Coeffs, n int) []float64 {
	if n <= 0 {
		return nil
	}

	bins := n/2 + 1
	out := make([]float64, bins)
	resp := denominator(c.A, n)

	for k := range bins {
		out[k] = c.Gain / math.Max(cmplx.Abs(resp[k]), envelopeFloor)
	}

	return out
}

// denominator evaluates A(z) at z = e^{j2pi k/n}. When the grid is at least
// as long as the polynomial an n-point DFT of the zero-padded coefficients is
// used; otherwise the sum is evaluated directly.
func denominator(a []float64, n int) []complex128 {
	if n >= len(a) {
		padded := make([]float64, n)
		copy(padded, a)

		return fft.FFTReal(padded)
	}

	out := make([]complex128, n)
	for k := range n {
		w := -2 * math.Pi * float64(k) / float64(n)

		var sum complex128
		for m, v := range a {
			sum += complex(v, 0) * cmplx.Exp(complex(0, w*float64(m)))
		}

		out[k] = sum
	}

	return out
}
