package spectrum

import (
	"github.com/cwbudde/algo-vecmath"
)

// Magnitude returns |X[k]| for each bin of spec.
func Magnitude(spec []complex128) []float64 {
	if len(spec) == 0 {
		return nil
	}

	parts := make([]float64, 2*len(spec))
	re, im := parts[:len(spec)], parts[len(spec):]

	for i, c := range spec {
		re[i], im[i] = real(c), imag(c)
	}

	out := make([]float64, len(spec))
	vecmath.Magnitude(out, re, im)

	return out
}

// Resample maps a curve sampled uniformly over [0, 1] onto n uniformly spaced
// points over the same range, interpolating linearly. Filter magnitudes move
// between the bin grids of different frame sizes this way.
func Resample(y []float64, n int) []float64 {
	switch {
	case n <= 0 || len(y) == 0:
		return nil
	case n == 1:
		return []float64{y[0]}
	}

	out := make([]float64, n)
	if len(y) == 1 {
		for i := range out {
			out[i] = y[0]
		}

		return out
	}

	step := float64(len(y)-1) / float64(n-1)
	last := len(y) - 1

	for i := range out {
		pos := float64(i) * step

		lo := int(pos)
		if lo >= last {
			out[i] = y[last]
			continue
		}

		out[i] = y[lo] + (pos-float64(lo))*(y[lo+1]-y[lo])
	}

	return out
}
