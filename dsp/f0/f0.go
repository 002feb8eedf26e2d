// Package f0 estimates frame-rate fundamental frequency contours with an
// FFT-based normalized autocorrelation.
package f0

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
)

const (
	defaultMinF0      = 50.0
	defaultMaxF0      = 500.0
	defaultWindowSize = 0.040
	defaultSkipSize   = 0.010
	defaultClarity    = 0.45
	defaultSilenceRMS = 1e-3
	peakFraction      = 0.9
)

// ErrFrameTooShort is returned when a frame cannot hold the longest lag.
var ErrFrameTooShort = errors.New("f0: frame shorter than the maximum lag")

// Option configures a Tracker.
type Option func(*Tracker)

// WithRange sets the F0 search range in Hz.
func WithRange(minF0, maxF0 float64) Option {
	return func(t *Tracker) {
		if minF0 > 0 && maxF0 > minF0 {
			t.minF0, t.maxF0 = minF0, maxF0
		}
	}
}

// WithFrames sets analysis window and skip sizes in seconds.
func WithFrames(windowSize, skipSize float64) Option {
	return func(t *Tracker) {
		if windowSize > 0 && skipSize > 0 {
			t.windowSize, t.skipSize = windowSize, skipSize
		}
	}
}

// WithClarity sets the minimum normalized autocorrelation peak for a frame
// to count as voiced.
func WithClarity(threshold float64) Option {
	return func(t *Tracker) {
		if threshold > 0 && threshold < 1 {
			t.clarity = threshold
		}
	}
}

// WithSilenceRMS sets the RMS below which frames are unvoiced regardless of
// their periodicity.
func WithSilenceRMS(rms float64) Option {
	return func(t *Tracker) {
		if rms >= 0 {
			t.silenceRMS = rms
		}
	}
}

// Tracker computes F0 contours. It caches one FFT plan per padded size and is
// not safe for concurrent use.
type Tracker struct {
	sampleRate float64
	minF0      float64
	maxF0      float64
	windowSize float64
	skipSize   float64
	clarity    float64
	silenceRMS float64

	plans map[int]*algofft.Plan[complex128]
}

// NewTracker creates a tracker for the given sample rate.
func NewTracker(sampleRate float64, opts ...Option) (*Tracker, error) {
	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("f0: sample rate must be positive and finite: %f", sampleRate)
	}

	t := &Tracker{
		sampleRate: sampleRate,
		minF0:      defaultMinF0,
		maxF0:      defaultMaxF0,
		windowSize: defaultWindowSize,
		skipSize:   defaultSkipSize,
		clarity:    defaultClarity,
		silenceRMS: defaultSilenceRMS,
		plans:      make(map[int]*algofft.Plan[complex128]),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	if t.maxF0 >= sampleRate/2 {
		return nil, fmt.Errorf("f0: max F0 %.1f Hz must be below Nyquist", t.maxF0)
	}

	return t, nil
}

// Track returns the F0 contour of x. Unvoiced frames carry 0.
func (t *Tracker) Track(x []float64) (pitchmark.Contour, error) {
	ws := int(math.Round(t.windowSize * t.sampleRate))
	ss := int(math.Round(t.skipSize * t.sampleRate))

	c := pitchmark.Contour{
		SampleRate: t.sampleRate,
		WindowSize: t.windowSize,
		SkipSize:   t.skipSize,
	}

	if len(x) == 0 {
		return c, fmt.Errorf("f0: empty input")
	}

	frames := max(1, (len(x)-ws)/ss+1)
	frame := make([]float64, ws)

	for i := range frames {
		core.PaddedCopy(frame, x, i*ss)

		f0, _, err := t.EstimateFrame(frame)
		if err != nil {
			return c, err
		}

		c.Values = append(c.Values, f0)
	}

	return c, nil
}

// EstimateFrame returns the F0 of one frame together with its clarity (the
// normalized autocorrelation at the chosen lag). Aperiodic or silent frames
// return 0.
func (t *Tracker) EstimateFrame(frame []float64) (float64, float64, error) {
	minLag := max(1, int(t.sampleRate/t.maxF0))
	maxLag := int(math.Ceil(t.sampleRate / t.minF0))

	if len(frame) <= maxLag+1 {
		return 0, 0, fmt.Errorf("%w: %d <= %d", ErrFrameTooShort, len(frame), maxLag+1)
	}

	if core.RMS(frame) < t.silenceRMS {
		return 0, 0, nil
	}

	r, err := t.autocorrelation(frame)
	if err != nil {
		return 0, 0, err
	}

	if r[0] <= 0 {
		return 0, 0, nil
	}

	// Unbiased normalization compensates the shrinking overlap at long lags.
	n := float64(len(frame))
	norm := func(lag int) float64 {
		return r[lag] / r[0] * n / (n - float64(lag))
	}

	best := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		best = math.Max(best, norm(lag))
	}

	if best < t.clarity {
		return 0, best, nil
	}

	for lag := minLag; lag <= maxLag; lag++ {
		v := norm(lag)
		if v < peakFraction*best || v < norm(lag-1) || v < norm(lag+1) {
			continue
		}

		return t.sampleRate / (float64(lag) + parabolicShift(norm(lag-1), v, norm(lag+1))), v, nil
	}

	return 0, best, nil
}

func (t *Tracker) autocorrelation(frame []float64) ([]float64, error) {
	size := nextPowerOf2(2 * len(frame))

	plan, ok := t.plans[size]
	if !ok {
		p, err := algofft.NewPlan64(size)
		if err != nil {
			return nil, fmt.Errorf("f0: failed to create FFT plan: %w", err)
		}

		t.plans[size] = p
		plan = p
	}

	mean := 0.0
	for _, v := range frame {
		mean += v
	}

	mean /= float64(len(frame))

	buf := make([]complex128, size)
	for i, v := range frame {
		buf[i] = complex(v-mean, 0)
	}

	if err := plan.Forward(buf, buf); err != nil {
		return nil, fmt.Errorf("f0: forward FFT failed: %w", err)
	}

	for i, v := range buf {
		buf[i] = complex(real(v)*real(v)+imag(v)*imag(v), 0)
	}

	out := make([]complex128, size)
	if err := plan.Inverse(out, buf); err != nil {
		return nil, fmt.Errorf("f0: inverse FFT failed: %w", err)
	}

	r := make([]float64, len(frame))
	for i := range r {
		r[i] = real(out[i])
	}

	return r, nil
}

func parabolicShift(left, center, right float64) float64 {
	den := left - 2*center + right
	if den == 0 {
		return 0
	}

	return 0.5 * (left - right) / den
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
