package lpc

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-vconv/internal/testutil"
)

func TestOrder(t *testing.T) {
	tests := []struct {
		fs   float64
		want int
	}{
		{fs: 8000, want: 10},
		{fs: 16000, want: 18},
		{fs: 22050, want: 24},
		{fs: 44100, want: 46},
	}

	for _, tt := range tests {
		if got := Order(tt.fs); got != tt.want {
			t.Fatalf("Order(%v) = %d, want %d", tt.fs, got, tt.want)
		}
	}
}

func TestPreEmphasize(t *testing.T) {
	got := PreEmphasize([]float64{1, 1, 2, 0}, 0.5)
	want := []float64{1, 0.5, 1.5, -1}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("y[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if PreEmphasize(nil, 0.97) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestAnalyzeRecoversAR2(t *testing.T) {
	const n = 20000

	noise := testutil.DeterministicNoise(7, 1, n)
	x := make([]float64, n)

	for i := range x {
		x[i] = noise[i]
		if i >= 1 {
			x[i] += 1.3 * x[i-1]
		}

		if i >= 2 {
			x[i] -= 0.8 * x[i-2]
		}
	}

	c, err := Analyze(x, 2)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	want := []float64{1, -1.3, 0.8}
	for i := range want {
		if math.Abs(c.A[i]-want[i]) > 0.05 {
			t.Fatalf("a[%d] = %v, want %v", i, c.A[i], want[i])
		}
	}

	if c.Gain <= 0 {
		t.Fatalf("gain = %v, want > 0", c.Gain)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	c, err := Analyze(make([]float64, 64), 4)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if c.A[0] != 1 || c.Gain != 0 {
		t.Fatalf("got %+v, want trivial predictor", c)
	}

	for i := 1; i < len(c.A); i++ {
		if c.A[i] != 0 {
			t.Fatalf("a[%d] = %v, want 0", i, c.A[i])
		}
	}

	if _, err := Analyze(make([]float64, 64), 0); err == nil {
		t.Fatal("expected error for order 0")
	}
}

func TestLSFRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
	}{
		{name: "ar2", a: []float64{1, -1.3, 0.8}},
		{name: "ar4", a: polyMul([]float64{1, -1.3, 0.8}, []float64{1, 0.4, 0.5})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lsf, ok := ToLSF(tt.a)
			if !ok {
				t.Fatal("root search failed")
			}

			for i := range lsf {
				if lsf[i] <= 0 || lsf[i] >= math.Pi {
					t.Fatalf("lsf[%d] = %v outside (0, pi)", i, lsf[i])
				}

				if i > 0 && lsf[i] <= lsf[i-1] {
					t.Fatalf("lsf not increasing at %d: %v", i, lsf)
				}
			}

			back := FromLSF(lsf)
			for i := range tt.a {
				if math.Abs(back[i]-tt.a[i]) > 1e-8 {
					t.Fatalf("a[%d] = %v, want %v", i, back[i], tt.a[i])
				}
			}
		})
	}
}

func TestFlatPredictorGivesUniformLSF(t *testing.T) {
	a := make([]float64, 7)
	a[0] = 1

	lsf, _ := ToLSF(a)
	for i, w := range lsf {
		want := math.Pi * float64(i+1) / 7
		if math.Abs(w-want) > 1e-9 {
			t.Fatalf("lsf[%d] = %v, want %v", i, w, want)
		}
	}
}

func TestEnvelope(t *testing.T) {
	flat := Envelope(Coeffs{A: []float64{1}, Gain: 2}, 16)
	if len(flat) != 9 {
		t.Fatalf("len = %d, want 9", len(flat))
	}

	for k, v := range flat {
		if math.Abs(v-2) > 1e-12 {
			t.Fatalf("flat[%d] = %v, want 2", k, v)
		}
	}

	// 1/|1 - 0.5 z^-1| is 2 at DC and 2/3 at Nyquist, on both evaluation paths.
	for _, n := range []int{1, 10} {
		env := Envelope(Coeffs{A: []float64{1, -0.5}, Gain: 1}, n)
		if math.Abs(env[0]-2) > 1e-9 {
			t.Fatalf("n=%d: DC = %v, want 2", n, env[0])
		}
	}

	env := Envelope(Coeffs{A: []float64{1, -0.5}, Gain: 1}, 10)
	if math.Abs(env[5]-2.0/3) > 1e-9 {
		t.Fatalf("Nyquist = %v, want 2/3", env[5])
	}
}

func TestBandwidthExpand(t *testing.T) {
	a := []float64{1, 1, 1}
	BandwidthExpand(a, 0.5)

	if a[0] != 1 || a[1] != 0.5 || a[2] != 0.25 {
		t.Fatalf("got %v", a)
	}
}
