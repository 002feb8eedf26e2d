package pitchmark

import (
	"errors"
	"math"
	"testing"
)

func constantContour(f0 float64, frames int) Contour {
	values := make([]float64, frames)
	for i := range values {
		values[i] = f0
	}

	return Contour{SampleRate: 16000, WindowSize: 0.04, SkipSize: 0.01, Values: values}
}

func TestInterpolateUnvoiced(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{name: "gap", in: []float64{100, 0, 0, 160}, want: []float64{100, 120, 140, 160}},
		{name: "edges", in: []float64{0, 120, 0}, want: []float64{120, 120, 120}},
		{name: "all unvoiced", in: []float64{0, 5, 0}, want: []float64{0, 5, 0}},
		{name: "below threshold counts as unvoiced", in: []float64{100, 9, 200}, want: []float64{100, 150, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolateUnvoiced(tt.in)
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Fatalf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFromContourConstantPitch(t *testing.T) {
	m, err := FromContour(constantContour(100, 100), 16000, true, 0)
	if err != nil {
		t.Fatalf("FromContour() error = %v", err)
	}

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if m.Len() != 101 {
		t.Fatalf("Len() = %d, want 101", m.Len())
	}

	for i := 0; i < 100; i++ {
		if m.Positions[i] != 160*i {
			t.Fatalf("Positions[%d] = %d, want %d", i, m.Positions[i], 160*i)
		}

		if !m.Voiced[i] || m.F0[i] != 100 {
			t.Fatalf("mark %d voiced=%v f0=%v", i, m.Voiced[i], m.F0[i])
		}
	}

	if m.Positions[100] != 16000 || m.ZerosToPad != 1 {
		t.Fatalf("final mark = %d, zeros = %d; want 16000, 1", m.Positions[100], m.ZerosToPad)
	}

	if got := m.MaxSpan(3); got != 480 {
		t.Fatalf("MaxSpan(3) = %d, want 480", got)
	}
}

func TestFromContourWithoutPadding(t *testing.T) {
	m, err := FromContour(constantContour(100, 100), 16000, false, 0)
	if err != nil {
		t.Fatalf("FromContour() error = %v", err)
	}

	if m.Len() != 100 || m.ZerosToPad != 0 {
		t.Fatalf("Len() = %d, zeros = %d; want 100, 0", m.Len(), m.ZerosToPad)
	}
}

func TestFromContourUnvoicedUsesDefaultPeriod(t *testing.T) {
	m, err := FromContour(constantContour(0, 50), 8000, false, 10)
	if err != nil {
		t.Fatalf("FromContour() error = %v", err)
	}

	for i := 0; i < m.Len(); i++ {
		if m.Voiced[i] {
			t.Fatalf("mark %d should be unvoiced", i)
		}

		if m.Positions[i] != 10+160*i {
			t.Fatalf("Positions[%d] = %d, want %d", i, m.Positions[i], 10+160*i)
		}
	}
}

func TestFromContourTooShort(t *testing.T) {
	_, err := FromContour(constantContour(100, 10), 100, false, 0)
	if !errors.Is(err, ErrTooFewMarks) {
		t.Fatalf("error = %v, want ErrTooFewMarks", err)
	}

	_, err = FromContour(Contour{SampleRate: 0, SkipSize: 0.01, Values: []float64{1}}, 100, false, 0)
	if !errors.Is(err, ErrInvalidContour) {
		t.Fatalf("error = %v, want ErrInvalidContour", err)
	}
}

func TestFixedRate(t *testing.T) {
	m, err := FixedRate(1000, 80, 16000, true)
	if err != nil {
		t.Fatalf("FixedRate() error = %v", err)
	}

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	// 0, 80, ..., 960 plus the synthetic 1040.
	if m.Len() != 14 || m.Positions[13] != 1040 || m.ZerosToPad != 41 {
		t.Fatalf("Len() = %d, last = %d, zeros = %d", m.Len(), m.Positions[m.Len()-1], m.ZerosToPad)
	}
}

func TestValidateRejectsNonIncreasing(t *testing.T) {
	m := &Marks{Positions: []int{0, 10, 10}, Voiced: make([]bool, 3), F0: make([]float64, 3)}
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for repeated position")
	}
}

func TestContourIndex(t *testing.T) {
	c := constantContour(100, 10)

	if got := c.Index(0); got != 0 {
		t.Fatalf("Index(0) = %d, want 0", got)
	}

	if got := c.Index(c.Time(4)); got != 4 {
		t.Fatalf("Index(Time(4)) = %d, want 4", got)
	}

	if got := c.Index(100); got != 9 {
		t.Fatalf("Index(100) = %d, want 9", got)
	}
}
