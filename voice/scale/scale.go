// Package scale holds the per-frame prosody and vocal-tract scale targets
// (pitch, time, energy and vocal-tract scale) and the schedules that supply
// them at analysis times.
package scale

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vconv/dsp/core"
)

// Bounds applied to every requested value. Out-of-range values are clamped,
// never reported.
const (
	MinPitch      = 0.1
	MaxPitch      = 5.0
	MinTime       = 0.1
	MaxTime       = 5.0
	MinEnergy     = 0.0
	MaxEnergy     = 10.0
	MinVocalTract = 0.1
	MaxVocalTract = 5.0
)

var (
	// ErrInvalidSchedule is returned for schedules with a bad skip size or
	// sequences of different lengths.
	ErrInvalidSchedule = errors.New("scale: invalid schedule")
)

// Params is one quadruple of scale targets.
type Params struct {
	Pitch      float64
	Time       float64
	Energy     float64
	VocalTract float64
}

// Identity returns the all-ones quadruple.
func Identity() Params {
	return Params{Pitch: 1, Time: 1, Energy: 1, VocalTract: 1}
}

// Clamped returns p with every field limited to its bounds. NaN values fall
// back to 1.
func (p Params) Clamped() Params {
	return Params{
		Pitch:      clamp(p.Pitch, MinPitch, MaxPitch),
		Time:       clamp(p.Time, MinTime, MaxTime),
		Energy:     clamp(p.Energy, MinEnergy, MaxEnergy),
		VocalTract: clamp(p.VocalTract, MinVocalTract, MaxVocalTract),
	}
}

// IsIdentity reports whether every field equals 1.
func (p Params) IsIdentity() bool {
	return p == Identity()
}

// Unvoiced returns p with the pitch scale forced to 1.
func (p Params) Unvoiced() Params {
	p.Pitch = 1
	return p
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 1
	}

	return core.Clamp(v, lo, hi)
}

// Schedule supplies scale targets at a fixed analysis rate. Empty sequences
// mean 1 for the whole utterance; a single value is held constant.
type Schedule struct {
	// SkipSize is the spacing of the sequence values in seconds.
	SkipSize   float64   `yaml:"skip_size"`
	Pitch      []float64 `yaml:"pitch"`
	Time       []float64 `yaml:"time"`
	Energy     []float64 `yaml:"energy"`
	VocalTract []float64 `yaml:"vocal_tract"`
}

// Constant returns a schedule that yields p (clamped) at every time.
func Constant(p Params) *Schedule {
	return &Schedule{
		SkipSize:   1,
		Pitch:      []float64{p.Pitch},
		Time:       []float64{p.Time},
		Energy:     []float64{p.Energy},
		VocalTract: []float64{p.VocalTract},
	}
}

// Validate checks the skip size and that multi-valued sequences agree in
// length.
func (s *Schedule) Validate() error {
	if !core.IsFinitePositive(s.SkipSize) {
		return fmt.Errorf("%w: skip size %v", ErrInvalidSchedule, s.SkipSize)
	}

	n := 0
	for _, seq := range [][]float64{s.Pitch, s.Time, s.Energy, s.VocalTract} {
		if len(seq) <= 1 {
			continue
		}

		if n != 0 && len(seq) != n {
			return fmt.Errorf("%w: sequences of length %d and %d", ErrInvalidSchedule, n, len(seq))
		}

		n = len(seq)
	}

	return nil
}

// Len returns the number of frames described by the longest sequence.
func (s *Schedule) Len() int {
	return max(len(s.Pitch), len(s.Time), len(s.Energy), len(s.VocalTract))
}

// At returns the clamped scale targets at analysis time t (seconds).
func (s *Schedule) At(t float64) Params {
	idx := 0
	if s.SkipSize > 0 {
		idx = int(math.Floor(t/s.SkipSize + 0.5))
	}

	return Params{
		Pitch:      valueAt(s.Pitch, idx),
		Time:       valueAt(s.Time, idx),
		Energy:     valueAt(s.Energy, idx),
		VocalTract: valueAt(s.VocalTract, idx),
	}.Clamped()
}

// IsUnityDuration reports whether every effective time scale equals 1.
func (s *Schedule) IsUnityDuration() bool {
	for _, v := range s.Time {
		if clamp(v, MinTime, MaxTime) != 1 {
			return false
		}
	}

	return true
}

func valueAt(seq []float64, idx int) float64 {
	if len(seq) == 0 {
		return 1
	}

	return seq[max(0, min(idx, len(seq)-1))]
}
