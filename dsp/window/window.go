// Package window generates the analysis and synthesis windows used by the
// pitch-synchronous converter.
//
// Frame lengths change with the local pitch period, so windows are always
// generated for the current frame length rather than cached at a fixed size.
package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBartlett
)

// Slope controls which edge(s) of the window are tapered.
type Slope int

const (
	// SlopeSymmetric tapers both edges.
	SlopeSymmetric Slope = iota
	// SlopeLeft tapers only the first half; the second half is flat (1).
	SlopeLeft
	// SlopeRight tapers only the second half; the first half is flat (1).
	SlopeRight
)

var typeNames = map[Type]string{
	TypeRectangular: "rectangular",
	TypeHann:        "hann",
	TypeHamming:     "hamming",
	TypeBlackman:    "blackman",
	TypeBartlett:    "bartlett",
}

var (
	hannCoeffs     = []float64{0.5, -0.5}
	hammingCoeffs  = []float64{0.54, -0.46}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

// String returns the lower-case window name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("window(%d)", int(t))
}

// ParseType resolves a window name (case-insensitive). "hanning" is accepted
// as an alias of "hann".
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "hanning" {
		n = "hann"
	}

	for t, tn := range typeNames {
		if tn == n {
			return t, nil
		}
	}

	return 0, fmt.Errorf("window: unknown window type %q", name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
	slope    Slope
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// WithSlope configures edge tapering mode.
func WithSlope(s Slope) Option {
	return func(c *config) {
		c.slope = s
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := config{slope: SlopeSymmetric}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length, cfg.periodic), cfg.slope)
	}

	return out
}

// Apply multiplies buf in-place by the selected window and returns the
// coefficients that were applied.
func Apply(t Type, buf []float64, opts ...Option) []float64 {
	if len(buf) == 0 {
		return nil
	}

	coeffs := Generate(t, len(buf), opts...)
	vecmath.MulBlockInPlace(buf, coeffs)

	return coeffs
}

func evalWindow(t Type, x float64, slope Slope) float64 {
	// One-sided slopes keep the symmetric shape on the tapered half so that
	// they stay consistent with neighbouring symmetric frames in an OLA sum.
	switch slope {
	case SlopeLeft:
		if x >= 0.5 {
			return 1
		}
	case SlopeRight:
		if x <= 0.5 {
			return 1
		}
	}

	x = math.Max(0, math.Min(1, x))

	switch t {
	case TypeRectangular:
		return 1
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeHamming:
		return cosineFromCoeffs(x, hammingCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	case TypeBartlett:
		return 1 - math.Abs(2*x-1)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	return sum
}

func samplePosition(n, size int, periodic bool) float64 {
	if size <= 1 {
		return 0.5
	}

	den := float64(size - 1)
	if periodic {
		den = float64(size)
	}

	return float64(n) / den
}
