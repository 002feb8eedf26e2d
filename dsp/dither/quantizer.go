package dither

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	minBitDepth = 2
	maxBitDepth = 32
)

// Option configures a Quantizer.
type Option func(*Quantizer) error

// WithType sets the dither noise distribution (default TypeTriangular).
func WithType(t Type) Option {
	return func(q *Quantizer) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid dither type: %d", t)
		}

		q.typ = t

		return nil
	}
}

// WithAmplitude sets the dither amplitude in LSB (default 1).
func WithAmplitude(amp float64) Option {
	return func(q *Quantizer) error {
		if amp < 0 || math.IsNaN(amp) || math.IsInf(amp, 0) {
			return fmt.Errorf("dither: amplitude must be >= 0 and finite: %f", amp)
		}

		q.amp = amp

		return nil
	}
}

// WithShaping enables error-feedback noise shaping.
func WithShaping(s Shaping) Option {
	return func(q *Quantizer) error {
		if _, ok := shapingNames[s]; !ok {
			return fmt.Errorf("dither: invalid noise shaping: %d", s)
		}

		q.shaper = newErrorFeedback(s.Coefficients())

		return nil
	}
}

// WithRNG sets the noise source, for reproducible output.
func WithRNG(rng *rand.Rand) Option {
	return func(q *Quantizer) error {
		q.rng = rng
		return nil
	}
}

// Quantizer maps samples in [-1, 1) to signed integers of a given bit depth.
// It keeps noise-shaping state between calls and is not safe for concurrent
// use.
type Quantizer struct {
	bits   int
	typ    Type
	amp    float64
	shaper *errorFeedback
	rng    *rand.Rand

	scale  float64
	lo, hi int
}

// NewQuantizer returns a quantizer for the given bit depth with triangular
// dither of one LSB and no noise shaping.
func NewQuantizer(bits int, opts ...Option) (*Quantizer, error) {
	if bits < minBitDepth || bits > maxBitDepth {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bits)
	}

	q := &Quantizer{
		bits:   bits,
		typ:    TypeTriangular,
		amp:    1,
		shaper: newErrorFeedback(nil),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(q); err != nil {
			return nil, err
		}
	}

	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	q.scale = math.Exp2(float64(bits - 1))
	q.hi = int(q.scale) - 1
	q.lo = -int(q.scale)

	return q, nil
}

// BitDepth returns the target bit depth.
func (q *Quantizer) BitDepth() int { return q.bits }

// Type returns the dither type.
func (q *Quantizer) Type() Type { return q.typ }

// Scale returns the integer value of full scale, 2^(bits-1).
func (q *Quantizer) Scale() float64 { return q.scale }

// Quantize converts one sample. Results are clipped to the bit-depth range.
func (q *Quantizer) Quantize(x float64) int {
	shaped := q.shaper.shape(x * q.scale)

	v := int(math.Round(shaped + q.noise()))
	v = max(q.lo, min(q.hi, v))

	q.shaper.record(float64(v) - shaped)

	return v
}

// QuantizeBlock converts src into dst, which must be at least as long.
func (q *Quantizer) QuantizeBlock(dst []int, src []float64) {
	for i, x := range src {
		dst[i] = q.Quantize(x)
	}
}

// Reset clears the noise-shaping history.
func (q *Quantizer) Reset() { q.shaper.reset() }

func (q *Quantizer) noise() float64 {
	switch q.typ {
	case TypeRectangular:
		return q.amp * (q.rng.Float64() - 0.5)
	case TypeTriangular:
		return q.amp * (q.rng.Float64() - q.rng.Float64())
	default:
		return 0
	}
}
