package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
// Returns an error if the slices differ in length.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	maxDiff := 0.0
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff, nil
}

// NormalizedCrossCorrelation returns the zero-lag normalized correlation of
// a and b over their common length.
func NormalizedCrossCorrelation(a, b []float64) float64 {
	n := min(len(a), len(b))
	var ab, aa, bb float64
	for i := range n {
		ab += a[i] * b[i]
		aa += a[i] * a[i]
		bb += b[i] * b[i]
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return ab / math.Sqrt(aa*bb)
}

// AutocorrelationF0 estimates the fundamental of x by picking the first
// normalized autocorrelation peak within [minF0, maxF0] that reaches 90% of
// the strongest one. It is a slow, direct reference used to check outputs.
func AutocorrelationF0(x []float64, sampleRate, minF0, maxF0 float64) float64 {
	minLag := int(sampleRate / maxF0)
	maxLag := int(sampleRate / minF0)
	if maxLag >= len(x) || minLag < 1 {
		return 0
	}

	r0 := 0.0
	for _, v := range x {
		r0 += v * v
	}
	if r0 == 0 {
		return 0
	}

	r := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1 && lag < len(x); lag++ {
		sum := 0.0
		for i := 0; i+lag < len(x); i++ {
			sum += x[i] * x[i+lag]
		}
		r[lag] = sum / r0
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		best = math.Max(best, r[lag])
	}

	for lag := minLag; lag <= maxLag; lag++ {
		if r[lag] >= 0.9*best && r[lag] >= r[lag-1] && r[lag] >= r[lag+1] {
			// Parabolic refinement of the peak position.
			den := r[lag-1] - 2*r[lag] + r[lag+1]
			shift := 0.0
			if den != 0 {
				shift = 0.5 * (r[lag-1] - r[lag+1]) / den
			}
			return sampleRate / (float64(lag) + shift)
		}
	}
	return 0
}
