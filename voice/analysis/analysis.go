// Package analysis computes the per-frame spectral description used by the
// converter: the windowed frame, its DFT, an all-pole vocal-tract envelope
// with its line spectral frequencies, and the excitation (residual)
// spectrum left after dividing the envelope out.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/lpc"
	"github.com/cwbudde/algo-vconv/dsp/spectrum"
	"github.com/cwbudde/algo-vconv/dsp/window"
)

// envelopeFloor keeps the residual finite where the envelope vanishes.
const envelopeFloor = 1e-12

// DefaultBandwidthExpansion is the LPC bandwidth expansion factor applied
// before LSF conversion.
const DefaultBandwidthExpansion = 0.994

var (
	// ErrInvalidSampleRate is returned for non-positive sample rates.
	ErrInvalidSampleRate = errors.New("analysis: sample rate must be > 0")
	// ErrFrameTooShort is returned for frames shorter than the LPC order.
	ErrFrameTooShort = errors.New("analysis: frame shorter than prediction order")
)

// LSFScale selects the unit of the LSF feature vectors.
type LSFScale int

const (
	ScaleHz LSFScale = iota
	ScaleBark
)

func (s LSFScale) String() string {
	switch s {
	case ScaleHz:
		return "hz"
	case ScaleBark:
		return "bark"
	default:
		return fmt.Sprintf("lsfscale(%d)", int(s))
	}
}

// ParseLSFScale resolves "hz" or "bark" (case-insensitive).
func ParseLSFScale(name string) (LSFScale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hz", "":
		return ScaleHz, nil
	case "bark":
		return ScaleBark, nil
	default:
		return 0, fmt.Errorf("analysis: unknown LSF scale %q", name)
	}
}

// Option configures an Analyzer.
type Option func(*config)

type config struct {
	window      window.Type
	preEmphasis float64
	order       int
	scale       LSFScale
	expansion   float64
}

// WithWindow sets the analysis window (default Hamming).
func WithWindow(t window.Type) Option {
	return func(c *config) { c.window = t }
}

// WithPreEmphasis sets the pre-emphasis coefficient (default 0.97).
func WithPreEmphasis(coef float64) Option {
	return func(c *config) { c.preEmphasis = coef }
}

// WithOrder overrides the prediction order derived from the sample rate.
// Odd orders are rounded up.
func WithOrder(order int) Option {
	return func(c *config) { c.order = order }
}

// WithLSFScale sets the unit of the feature vectors (default Hz).
func WithLSFScale(s LSFScale) Option {
	return func(c *config) { c.scale = s }
}

// WithBandwidthExpansion sets the LPC bandwidth expansion factor; 1 disables it.
func WithBandwidthExpansion(gamma float64) Option {
	return func(c *config) { c.expansion = gamma }
}

// Analyzer analyzes frames of a fixed sample rate. It holds no per-frame
// state and may be shared between goroutines.
type Analyzer struct {
	fs  float64
	cfg config
}

// New returns an Analyzer for the given sample rate.
func New(sampleRate float64, opts ...Option) (*Analyzer, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	cfg := config{
		window:      window.TypeHamming,
		preEmphasis: lpc.DefaultPreEmphasis,
		scale:       ScaleHz,
		expansion:   DefaultBandwidthExpansion,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.order <= 0 {
		cfg.order = lpc.Order(sampleRate)
	}

	cfg.order = core.EvenSize(cfg.order, 2)

	if !(cfg.expansion > 0 && cfg.expansion <= 1) {
		cfg.expansion = 1
	}

	return &Analyzer{fs: sampleRate, cfg: cfg}, nil
}

// SampleRate returns the analysis sample rate.
func (a *Analyzer) SampleRate() float64 { return a.fs }

// Order returns the prediction order, which is also the feature dimension.
func (a *Analyzer) Order() int { return a.cfg.order }

// Window returns the analysis window type.
func (a *Analyzer) Window() window.Type { return a.cfg.window }

// Scale returns the feature unit.
func (a *Analyzer) Scale() LSFScale { return a.cfg.scale }

// MinFrameSize returns the shortest frame Analyze accepts.
func (a *Analyzer) MinFrameSize() int { return a.cfg.order + 2 }

// Result is the spectral description of one frame.
type Result struct {
	// Windowed is the frame multiplied by the analysis window.
	Windowed []float64
	// Window holds the analysis window coefficients.
	Window []float64
	// Energy is sqrt(sum(Windowed^2)).
	Energy float64

	Coeffs lpc.Coeffs
	// Features are the LSFs in the configured unit.
	Features []float64
	// LSFValid is false when the LSF root search failed and Features
	// describe a flat envelope.
	LSFValid bool

	// Spectrum is the full DFT of Windowed.
	Spectrum []complex128
	// VocalTract is the envelope magnitude on bins 0..n/2.
	VocalTract []float64
	// Residual is Spectrum/VocalTract on bins 0..n/2.
	Residual []complex128
}

// Size returns the frame length the result was computed for.
func (r *Result) Size() int { return len(r.Windowed) }

// Analyze windows frame with a window sized to the frame itself, fits the
// all-pole model to the pre-emphasized windowed frame and derives the
// envelope and residual spectra. frame is not modified.
func (a *Analyzer) Analyze(frame []float64) (*Result, error) {
	if len(frame) <= a.cfg.order {
		return nil, fmt.Errorf("%w: %d <= %d", ErrFrameTooShort, len(frame), a.cfg.order)
	}

	res := &Result{Windowed: make([]float64, len(frame))}
	copy(res.Windowed, frame)
	res.Window = window.Apply(a.cfg.window, res.Windowed)
	res.Energy = core.Energy(res.Windowed)

	coeffs, err := a.fit(res.Windowed)
	if err != nil {
		return nil, err
	}

	res.Coeffs = coeffs
	res.Features, res.LSFValid = a.toFeatures(coeffs.A)

	n := len(frame)
	res.Spectrum = spectrum.Forward(res.Windowed)
	res.VocalTract = lpc.Envelope(coeffs, n)
	res.Residual = make([]complex128, spectrum.HalfSize(n))

	for k := range res.Residual {
		res.Residual[k] = res.Spectrum[k] / complex(math.Max(res.VocalTract[k], envelopeFloor), 0)
	}

	return res, nil
}

// Features returns only the LSF features of a frame.
func (a *Analyzer) Features(frame []float64) ([]float64, error) {
	if len(frame) <= a.cfg.order {
		return nil, fmt.Errorf("%w: %d <= %d", ErrFrameTooShort, len(frame), a.cfg.order)
	}

	buf := make([]float64, len(frame))
	copy(buf, frame)
	window.Apply(a.cfg.window, buf)

	coeffs, err := a.fit(buf)
	if err != nil {
		return nil, err
	}

	features, _ := a.toFeatures(coeffs.A)

	return features, nil
}

func (a *Analyzer) fit(windowed []float64) (lpc.Coeffs, error) {
	coeffs, err := lpc.Analyze(lpc.PreEmphasize(windowed, a.cfg.preEmphasis), a.cfg.order)
	if err != nil {
		return lpc.Coeffs{}, fmt.Errorf("analysis: %w", err)
	}

	if a.cfg.expansion < 1 {
		lpc.BandwidthExpand(coeffs.A, a.cfg.expansion)
	}

	return coeffs, nil
}

func (a *Analyzer) toFeatures(coeffs []float64) ([]float64, bool) {
	lsf, ok := lpc.ToLSF(coeffs)

	return a.FromRadians(lsf), ok
}

// FromRadians converts LSFs in radians to features in the configured unit.
func (a *Analyzer) FromRadians(lsf []float64) []float64 {
	out := make([]float64, len(lsf))
	for i, w := range lsf {
		hz := core.RadiansToHz(w, a.fs)
		if a.cfg.scale == ScaleBark {
			out[i] = core.HzToBark(hz)
		} else {
			out[i] = hz
		}
	}

	return out
}

// ToRadians converts features in the configured unit back to LSFs in
// radians, clamped into (0, pi) and sorted.
func (a *Analyzer) ToRadians(features []float64) []float64 {
	const margin = 1e-4

	out := make([]float64, len(features))
	for i, f := range features {
		hz := f
		if a.cfg.scale == ScaleBark {
			hz = core.BarkToHz(f)
		}

		out[i] = core.Clamp(core.HzToRadians(hz, a.fs), margin, math.Pi-margin)
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}

	return out
}

// Envelope evaluates the all-pole envelope described by features with the
// given gain on the n-point DFT grid (bins 0..n/2).
func (a *Analyzer) Envelope(features []float64, gain float64, n int) []float64 {
	return lpc.Envelope(lpc.Coeffs{A: lpc.FromLSF(a.ToRadians(features)), Gain: gain}, n)
}
