// Package transform builds the per-bin vocal-tract transformation filter of
// a frame and applies it to the frame's excitation spectrum, resampling the
// excitation onto the pitch-scaled frame size.
package transform

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/cwbudde/algo-vconv/dsp/lpc"
	"github.com/cwbudde/algo-vconv/dsp/spectrum"
	"github.com/cwbudde/algo-vconv/voice/analysis"
	"github.com/cwbudde/algo-vconv/voice/match"
)

// filterFloor keeps filter denominators away from zero.
const filterFloor = 1e-10

// Mode selects how the matcher output turns into a filter.
type Mode int

const (
	// ModeRatio filters by target/source envelope, keeping the fine detail
	// of the analyzed source envelope.
	ModeRatio Mode = iota
	// ModeDirect uses the target envelope as the new vocal tract.
	ModeDirect
)

func (m Mode) String() string {
	switch m {
	case ModeRatio:
		return "ratio"
	case ModeDirect:
		return "direct"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode resolves "ratio" or "direct".
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ratio", "":
		return ModeRatio, nil
	case "direct":
		return ModeDirect, nil
	default:
		return 0, fmt.Errorf("transform: unknown filter mode %q", name)
	}
}

// Engine derives and applies transformation filters.
type Engine struct {
	analyzer        *analysis.Analyzer
	mode            Mode
	normalizeSource bool
}

// New returns an engine that interprets features with analyzer. With
// normalizeSource set, ratio filters divide by the matcher's own source
// estimate when it provides one instead of by the analyzed frame.
func New(analyzer *analysis.Analyzer, mode Mode, normalizeSource bool) *Engine {
	return &Engine{analyzer: analyzer, mode: mode, normalizeSource: normalizeSource}
}

// Mode returns the filter mode.
func (e *Engine) Mode() Mode { return e.mode }

// Filter returns the per-bin filter on the newSize grid (bins 0..newSize/2)
// for the matched features m of the analyzed frame res. source are the
// frame's own features as passed to the matcher. vscale warps the target
// envelope along frequency.
func (e *Engine) Filter(res *analysis.Result, source []float64, m match.Result, newSize int, vscale float64) []float64 {
	gain := res.Coeffs.Gain

	target := e.analyzer.Envelope(m.Target, gain, newSize)
	if vscale != 1 {
		target = Warp(target, vscale)
	}

	if e.mode == ModeDirect {
		return target
	}

	ref := source
	if e.normalizeSource && m.Source != nil {
		ref = m.Source
	}

	return Ratio(target, e.analyzer.Envelope(ref, gain, newSize))
}

// VocalTract returns the envelope the excitation is multiplied with on the
// newSize grid. A nil filter in ratio mode keeps the analyzed envelope.
func (e *Engine) VocalTract(res *analysis.Result, filter []float64, newSize int) []float64 {
	if e.mode == ModeDirect && filter != nil {
		return filter
	}

	vt := lpc.Envelope(res.Coeffs, newSize)
	for k := range vt {
		if k < len(filter) {
			vt[k] *= filter[k]
		}
	}

	return vt
}

// Apply resynthesizes the frame at newSize samples from its residual and the
// filter.
func (e *Engine) Apply(res *analysis.Result, filter []float64, newSize int) []float64 {
	return Synthesize(res.Residual, e.VocalTract(res, filter, newSize), newSize)
}

// Ratio returns target/source per bin.
func Ratio(target, source []float64) []float64 {
	out := make([]float64, len(target))
	for k := range out {
		s := filterFloor
		if k < len(source) {
			s = math.Max(source[k], filterFloor)
		}

		out[k] = target[k] / s
	}

	return out
}

// Warp stretches env along frequency by vscale: bin k takes the value of bin
// round((k+1)/vscale)-1, clamped to the valid range. vscale 1 is the identity.
func Warp(env []float64, vscale float64) []float64 {
	if len(env) == 0 || !(vscale > 0) {
		return env
	}

	out := make([]float64, len(env))
	for k := range out {
		idx := int(math.Round(float64(k+1)/vscale)) - 1
		out[k] = env[max(0, min(idx, len(env)-1))]
	}

	return out
}

// Replicate resizes the half spectrum residual (bins 0..maxFreq-1, Nyquist
// last) to newHalf bins. Shrinking truncates. Growing appends segments of
// length maxFreq-2 that alternate between the conjugated residual read
// backwards from just below Nyquist and the residual read forwards from bin
// 1, so that every seam continues the previous segment. The new Nyquist bin
// is forced real.
func Replicate(residual []complex128, newHalf int) []complex128 {
	out := make([]complex128, newHalf)
	maxFreq := len(residual)

	copy(out, residual[:min(maxFreq, newHalf)])

	if seg := maxFreq - 2; newHalf > maxFreq && seg > 0 {
		for k := maxFreq; k < newHalf; k++ {
			j := k - maxFreq
			off := j % seg

			if (j/seg)%2 == 0 {
				out[k] = cmplx.Conj(residual[maxFreq-2-off])
			} else {
				out[k] = residual[1+off]
			}
		}
	}

	if newHalf > 0 {
		out[newHalf-1] = complex(real(out[newHalf-1]), 0)
	}

	return out
}

// Synthesize multiplies the replicated residual by envelope bin by bin,
// completes the spectrum by Hermitian symmetry and returns the newSize
// sample inverse DFT.
func Synthesize(residual []complex128, envelope []float64, newSize int) []float64 {
	half := spectrum.HalfSize(newSize)
	exc := Replicate(residual, half)

	for k := range exc {
		g := 0.0
		if k < len(envelope) {
			g = envelope[k]
		}

		exc[k] *= complex(g, 0)
	}

	return spectrum.Inverse(spectrum.Hermitian(exc, newSize))
}
