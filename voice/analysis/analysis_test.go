package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/cwbudde/algo-vconv/dsp/window"
	"github.com/cwbudde/algo-vconv/internal/testutil"
)

func voicedFrame() []float64 {
	return testutil.HarmonicTone(100, 16000, 0.5, 20, 482)
}

func TestAnalyze(t *testing.T) {
	a, err := New(16000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Order() != 18 || a.Window() != window.TypeHamming {
		t.Fatalf("Order() = %d, Window() = %v", a.Order(), a.Window())
	}

	frame := voicedFrame()
	orig := append([]float64(nil), frame...)

	res, err := a.Analyze(frame)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for i := range frame {
		if frame[i] != orig[i] {
			t.Fatal("Analyze() modified its input")
		}
	}

	if res.Size() != 482 || len(res.Residual) != 242 || len(res.VocalTract) != 242 {
		t.Fatalf("sizes: %d %d %d", res.Size(), len(res.Residual), len(res.VocalTract))
	}

	if !res.LSFValid || len(res.Features) != 18 {
		t.Fatalf("LSFValid = %v, len(Features) = %d", res.LSFValid, len(res.Features))
	}

	for i, f := range res.Features {
		if f <= 0 || f >= 8000 || (i > 0 && f <= res.Features[i-1]) {
			t.Fatalf("features not increasing in (0, 8000): %v", res.Features)
		}
	}

	for k := range res.Residual {
		back := res.Residual[k] * complex(res.VocalTract[k], 0)
		if cmplx.Abs(back-res.Spectrum[k]) > 1e-9*(1+cmplx.Abs(res.Spectrum[k])) {
			t.Fatalf("bin %d: residual*envelope = %v, want %v", k, back, res.Spectrum[k])
		}
	}

	env := a.Envelope(res.Features, res.Coeffs.Gain, 482)
	for k := range env {
		if math.Abs(env[k]-res.VocalTract[k]) > 1e-5*res.VocalTract[k] {
			t.Fatalf("bin %d: envelope from features %v, want %v", k, env[k], res.VocalTract[k])
		}
	}
}

func TestFeatureUnitsRoundTrip(t *testing.T) {
	for _, scale := range []LSFScale{ScaleHz, ScaleBark} {
		t.Run(scale.String(), func(t *testing.T) {
			a, err := New(16000, WithLSFScale(scale))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			lsf := []float64{0.2, 0.5, 1.1, 2.9}
			back := a.ToRadians(a.FromRadians(lsf))

			for i := range lsf {
				if math.Abs(back[i]-lsf[i]) > 1e-9 {
					t.Fatalf("back[%d] = %v, want %v", i, back[i], lsf[i])
				}
			}
		})
	}
}

func TestFeaturesMatchAnalyze(t *testing.T) {
	a, _ := New(16000, WithLSFScale(ScaleBark), WithOrder(11))
	if a.Order() != 12 {
		t.Fatalf("Order() = %d, want 12", a.Order())
	}

	frame := voicedFrame()

	res, err := a.Analyze(frame)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	features, err := a.Features(frame)
	if err != nil {
		t.Fatalf("Features() error = %v", err)
	}

	for i := range features {
		if features[i] != res.Features[i] {
			t.Fatalf("features[%d] = %v, want %v", i, features[i], res.Features[i])
		}
	}
}

func TestErrors(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("error = %v, want ErrInvalidSampleRate", err)
	}

	a, _ := New(16000)
	if _, err := a.Analyze(make([]float64, 10)); !errors.Is(err, ErrFrameTooShort) {
		t.Fatalf("error = %v, want ErrFrameTooShort", err)
	}

	if _, err := ParseLSFScale("mel"); err == nil {
		t.Fatal("expected error for unknown scale")
	}

	if s, err := ParseLSFScale("Bark"); err != nil || s != ScaleBark {
		t.Fatalf("ParseLSFScale(Bark) = %v, %v", s, err)
	}
}
