// Package testutil holds deterministic signals and measurement helpers shared
// by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// HarmonicTone generates a voiced test tone: harmonics 1..harmonics of f0
// with 1/k amplitudes, normalized to the given peak-ish amplitude, plus a
// low-level deterministic noise floor so that LPC analysis stays well
// conditioned.
func HarmonicTone(f0, sampleRate, amplitude float64, harmonics, length int) []float64 {
	out := make([]float64, length)
	norm := 0.0
	for k := 1; k <= harmonics; k++ {
		norm += 1 / float64(k)
	}

	noise := DeterministicNoise(7, 1e-4, length)
	for i := range out {
		t := float64(i) / sampleRate
		sum := 0.0
		for k := 1; k <= harmonics; k++ {
			if float64(k)*f0 >= sampleRate/2 {
				break
			}
			sum += math.Sin(2*math.Pi*float64(k)*f0*t) / float64(k)
		}
		out[i] = amplitude*sum/norm + noise[i]
	}
	return out
}

// ConstantContour returns count copies of f0.
func ConstantContour(f0 float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = f0
	}
	return out
}
