// Package resample converts whole recordings between sample rates with a
// Kaiser-windowed polyphase FIR.
//
// Conversion is offline and delay compensated: sample m of the output lies
// at time m/outRate, exactly like sample m*inRate/outRate of the input.
// Recordings of a parallel corpus can therefore be aligned by time after
// resampling.
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
package resample

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls the anti-aliasing filter.
type Quality int

const (
	QualityFast Quality = iota
	QualityBalanced
	QualityBest
)

type config struct {
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
	maxDen       int
}

func qualityConfig(q Quality) config {
	switch q {
	case QualityFast:
		return config{tapsPerPhase: 16, cutoffScale: 0.88, kaiserBeta: 5}
	case QualityBest:
		return config{tapsPerPhase: 64, cutoffScale: 0.96, kaiserBeta: 9}
	default:
		return config{tapsPerPhase: 32, cutoffScale: 0.92, kaiserBeta: 7.5}
	}
}

// Option configures a conversion.
type Option func(*config)

// WithQuality replaces filter length, cutoff and window with a preset.
func WithQuality(q Quality) Option {
	return func(c *config) {
		maxDen := c.maxDen
		*c = qualityConfig(q)
		c.maxDen = maxDen
	}
}

// WithCutoffScale scales the anti-aliasing cutoff, in (0, 1].
func WithCutoffScale(v float64) Option {
	return func(c *config) {
		if v > 0 && v <= 1 {
			c.cutoffScale = v
		}
	}
}

// WithMaxDenominator caps the denominator of the rate ratio approximation.
func WithMaxDenominator(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDen = n
		}
	}
}

// Filter is a designed rational converter. It is immutable and may be shared.
type Filter struct {
	up, down int
	taps     []float64
	delay    int
}

// New designs a filter for the ratio up/down.
func New(up, down int, opts ...Option) (*Filter, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}

	cfg := build(opts)

	g := gcd(up, down)
	up, down = up/g, down/g

	// Odd length keeps the group delay on an integer sample.
	n := cfg.tapsPerPhase*up + 1
	fc := 0.5 / float64(max(up, down)) * cfg.cutoffScale
	center := float64(n-1) / 2

	taps := make([]float64, n)
	sum := 0.0

	for i := range taps {
		taps[i] = 2 * fc * sinc(2*fc*(float64(i)-center)) * kaiser(i, n, cfg.kaiserBeta)
		sum += taps[i]
	}

	if sum == 0 {
		return nil, ErrInvalidRatio
	}

	// Zero stuffing divides the DC gain by up.
	for i := range taps {
		taps[i] *= float64(up) / sum
	}

	return &Filter{up: up, down: down, taps: taps, delay: (n - 1) / 2}, nil
}

// Ratio returns the reduced up/down factors.
func (f *Filter) Ratio() (up, down int) { return f.up, f.down }

// OutputLen returns the number of samples Apply produces for n inputs.
func (f *Filter) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}

	return (n*f.up + f.down - 1) / f.down
}

// Apply converts x.
func (f *Filter) Apply(x []float64) []float64 {
	out := make([]float64, f.OutputLen(len(x)))

	for m := range out {
		// Position on the zero-stuffed grid, advanced by the group delay.
		j := m*f.down + f.delay

		// Only taps that land on a non-zero (original) sample contribute.
		var y float64
		for i := j % f.up; i < len(f.taps); i += f.up {
			k := (j - i) / f.up
			if k < 0 {
				break
			}

			if k < len(x) {
				y += f.taps[i] * x[k]
			}
		}

		out[m] = y
	}

	return out
}

// Convert resamples x from inRate to outRate. Equal rates return a copy.
func Convert(x []float64, inRate, outRate float64, opts ...Option) ([]float64, error) {
	if !(inRate > 0) || !(outRate > 0) || math.IsInf(inRate, 0) || math.IsInf(outRate, 0) {
		return nil, ErrInvalidRate
	}

	if inRate == outRate {
		return append([]float64(nil), x...), nil
	}

	up, down := approximateRatio(outRate/inRate, build(opts).maxDen)

	f, err := New(up, down, opts...)
	if err != nil {
		return nil, err
	}

	return f.Apply(x), nil
}

func build(opts []Option) config {
	cfg := qualityConfig(QualityBalanced)
	cfg.maxDen = 4096

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// approximateRatio returns the continued-fraction convergent of v with the
// largest denominator not above maxDen.
func approximateRatio(v float64, maxDen int) (num, den int) {
	p0, q0 := 1.0, 0.0
	p1, q1 := math.Floor(v), 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}

		x = 1 / frac
		a := math.Floor(x)

		p2, q2 := a*p1+p0, a*q1+q0
		if q2 > float64(maxDen) {
			break
		}

		p0, q0, p1, q1 = p1, q1, p2, q2
	}

	num, den = int(math.Round(p1)), int(math.Round(q1))
	if num <= 0 || den <= 0 {
		return 1, 1
	}

	g := gcd(num, den)

	return num / g, den / g
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	if a == 0 {
		return 1
	}

	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}

	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func kaiser(i, n int, beta float64) float64 {
	t := 2*float64(i)/float64(n-1) - 1
	return besselI0(beta*math.Sqrt(math.Max(0, 1-t*t))) / besselI0(beta)
}

// besselI0 is the zeroth-order modified Bessel function of the first kind.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	q := x * x / 4

	for k := 1; k < 64; k++ {
		term *= q / float64(k*k)
		sum += term

		if term < 1e-16*sum {
			break
		}
	}

	return sum
}
