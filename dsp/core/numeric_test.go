package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 0.5, min: 0, max: 1, expected: 0.5},
		{name: "below", value: -1, min: 0, max: 1, expected: 0},
		{name: "above", value: 2, min: 0, max: 1, expected: 1},
		{name: "swapped", value: 2, min: 1, max: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsFinitePositive(t *testing.T) {
	for _, v := range []float64{0, -1, math.Inf(1), math.NaN()} {
		if IsFinitePositive(v) {
			t.Errorf("IsFinitePositive(%v) = true", v)
		}
	}

	if !IsFinitePositive(1e-300) {
		t.Error("IsFinitePositive(1e-300) = false")
	}
}

func TestEvenSize(t *testing.T) {
	tests := []struct {
		n, min, want int
	}{
		{n: 7, min: 4, want: 8},
		{n: 8, min: 4, want: 8},
		{n: 1, min: 4, want: 4},
		{n: 0, min: 4, want: 4},
		{n: -3, min: 4, want: 4},
	}

	for _, tt := range tests {
		if got := EvenSize(tt.n, tt.min); got != tt.want {
			t.Fatalf("EvenSize(%d, %d) = %d, want %d", tt.n, tt.min, got, tt.want)
		}
	}
}

func TestEnergyAndRMS(t *testing.T) {
	x := []float64{3, 4}
	if got := Energy(x); got != 5 {
		t.Fatalf("Energy() = %v, want 5", got)
	}
	if got := RMS(x); math.Abs(got-5/math.Sqrt2) > 1e-12 {
		t.Fatalf("RMS() = %v, want %v", got, 5/math.Sqrt2)
	}
	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) should be 0")
	}
}

func TestBarkRoundTrip(t *testing.T) {
	for _, hz := range []float64{100, 500, 1000, 3500, 7000} {
		back := BarkToHz(HzToBark(hz))
		if math.Abs(back-hz) > 1e-6*hz {
			t.Fatalf("BarkToHz(HzToBark(%v)) = %v", hz, back)
		}
	}
}

func TestPaddedCopy(t *testing.T) {
	src := []float64{1, 2, 3}
	dst := make([]float64, 4)
	PaddedCopy(dst, src, 1)
	want := []float64{2, 3, 0, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}
