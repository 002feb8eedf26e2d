package dither

import (
	"fmt"
	"strings"
)

// Shaping identifies a noise-shaping coefficient set.
type Shaping int

const (
	ShapingNone Shaping = iota // plain error
	ShapingEFB                 // 1st-order error feedback
	Shaping2SC                 // simple 2nd-order highpass
	Shaping3FC                 // F-weighted, 3rd order
	Shaping9FC                 // F-weighted, 9th order
)

var shapingNames = map[Shaping]string{
	ShapingNone: "none",
	ShapingEFB:  "efb",
	Shaping2SC:  "2sc",
	Shaping3FC:  "3fc",
	Shaping9FC:  "9fc",
}

var shapingCoeffs = map[Shaping][]float64{
	ShapingEFB: {1},
	Shaping2SC: {1.0, -0.5},
	Shaping3FC: {1.623, -0.982, 0.109},
	Shaping9FC: {
		2.412, -3.370, 3.937, -4.174, 3.353,
		-2.205, 1.281, -0.569, 0.0847,
	},
}

// String returns the shaping name.
func (s Shaping) String() string {
	if name, ok := shapingNames[s]; ok {
		return name
	}

	return fmt.Sprintf("shaping(%d)", int(s))
}

// ParseShaping resolves a shaping name (case-insensitive).
func ParseShaping(name string) (Shaping, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for s, sn := range shapingNames {
		if sn == n {
			return s, nil
		}
	}

	return 0, fmt.Errorf("dither: unknown noise shaping %q", name)
}

// Coefficients returns a copy of the feedback coefficients, nil for
// ShapingNone.
func (s Shaping) Coefficients() []float64 {
	src := shapingCoeffs[s]
	if len(src) == 0 {
		return nil
	}

	return append([]float64(nil), src...)
}

// errorFeedback subtracts weighted past quantization errors from the input.
// history[0] is the most recent error.
type errorFeedback struct {
	coeffs  []float64
	history []float64
}

func newErrorFeedback(coeffs []float64) *errorFeedback {
	return &errorFeedback{coeffs: coeffs, history: make([]float64, len(coeffs))}
}

func (f *errorFeedback) shape(x float64) float64 {
	for i, c := range f.coeffs {
		x -= c * f.history[i]
	}

	return x
}

func (f *errorFeedback) record(e float64) {
	if len(f.history) == 0 {
		return
	}

	copy(f.history[1:], f.history[:len(f.history)-1])
	f.history[0] = e
}

func (f *errorFeedback) reset() {
	clear(f.history)
}
