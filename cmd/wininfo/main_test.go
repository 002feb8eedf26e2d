package main

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-vconv/dsp/window"
)

func TestAnalyzeRectangular(t *testing.T) {
	p := analyze(window.Generate(window.TypeRectangular, 400), 400)

	if math.Abs(p.CoherentGain-1) > 1e-12 || math.Abs(p.ENBW-1) > 1e-12 {
		t.Fatalf("gain/enbw = %v/%v, want 1/1", p.CoherentGain, p.ENBW)
	}

	if math.Abs(p.FirstMinimumBins-1) > 0.1 {
		t.Fatalf("first minimum = %v bins, want 1", p.FirstMinimumBins)
	}

	if math.Abs(p.HighestSidelobedB+13.26) > 0.3 {
		t.Fatalf("sidelobe = %v dB, want about -13.26", p.HighestSidelobedB)
	}

	if p.OLARipple > 1e-12 {
		t.Fatalf("ripple = %v, want 0", p.OLARipple)
	}
}

func TestOLARipple(t *testing.T) {
	hann := window.Generate(window.TypeHann, 400, window.WithPeriodic())
	if r := olaRipple(hann, 200); r > 1e-9 {
		t.Fatalf("periodic hann at half overlap: ripple = %v", r)
	}

	if r := olaRipple(hann, 300); r < 0.01 {
		t.Fatalf("hann at 3/4 hop: ripple = %v, want visible", r)
	}
}

func TestParseSlope(t *testing.T) {
	tests := []struct {
		in   string
		want window.Slope
		ok   bool
	}{
		{"", window.SlopeSymmetric, true},
		{"Left", window.SlopeLeft, true},
		{"right", window.SlopeRight, true},
		{"both", 0, false},
	}

	for _, tt := range tests {
		got, err := parseSlope(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("parseSlope(%q) = %v, %v", tt.in, got, err)
		}
	}
}
