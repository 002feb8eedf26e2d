package core

import "math"

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// IsFinitePositive reports whether v is a finite value greater than zero.
func IsFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// EvenSize rounds n up to the next even value and enforces minSize.
// Frame sizes in the pitch-synchronous path are always even so that the
// Nyquist bin exists.
func EvenSize(n, minSize int) int {
	if n%2 != 0 {
		n++
	}

	if n < minSize {
		n = minSize
	}

	return n
}

// Energy returns sqrt(sum(x^2)).
func Energy(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum)
}

// RMS returns the root-mean-square value of x, or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	return Energy(x) / math.Sqrt(float64(len(x)))
}

// PaddedCopy fills dst with src[start:start+len(dst)], writing zeros
// wherever the range falls outside src.
func PaddedCopy(dst, src []float64, start int) {
	for i := range dst {
		if idx := start + i; idx >= 0 && idx < len(src) {
			dst[i] = src[idx]
		} else {
			dst[i] = 0
		}
	}
}
