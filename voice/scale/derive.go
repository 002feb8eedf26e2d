package scale

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
	"github.com/cwbudde/algo-vconv/voice/label"
)

// minDeriveRMS is the source RMS below which no energy ratio is derived.
const minDeriveRMS = 1e-6

// Targets describes a parallel target recording from which a schedule can be
// derived. Every part is optional: a nil Alignment leaves the time scale at 1
// and maps times one to one, missing contours leave the pitch scale at 1 and
// missing sample buffers leave the energy scale at 1.
type Targets struct {
	Alignment *label.Alignment

	SourceF0 *pitchmark.Contour
	TargetF0 *pitchmark.Contour

	Source     []float64
	Target     []float64
	SampleRate float64
}

// Derive builds a schedule with one quadruple every skip seconds covering
// duration seconds of source audio.
//
// The time scale is the local target/source duration ratio of the label
// alignment, the pitch scale is targetF0/sourceF0 where both are voiced and
// the energy scale is the ratio of target to source RMS over a window of
// two skips around the aligned times.
func Derive(tg Targets, skip, duration float64) (*Schedule, error) {
	if !core.IsFinitePositive(skip) || duration < 0 {
		return nil, fmt.Errorf("%w: skip %v duration %v", ErrInvalidSchedule, skip, duration)
	}

	frames := int(math.Ceil(duration/skip)) + 1
	s := &Schedule{
		SkipSize:   skip,
		Pitch:      make([]float64, frames),
		Time:       make([]float64, frames),
		Energy:     make([]float64, frames),
		VocalTract: make([]float64, frames),
	}

	for i := range frames {
		t := float64(i) * skip

		mapped := t
		s.Time[i] = 1

		if tg.Alignment != nil {
			mapped = tg.Alignment.Map(t)
			s.Time[i] = tg.Alignment.Ratio(t)
		}

		s.Pitch[i] = pitchRatio(tg.SourceF0, tg.TargetF0, t, mapped)
		s.Energy[i] = energyRatio(tg, t, mapped, skip)
		s.VocalTract[i] = 1
	}

	return s, nil
}

func pitchRatio(src, tgt *pitchmark.Contour, t, mapped float64) float64 {
	if src == nil || tgt == nil || len(src.Values) == 0 || len(tgt.Values) == 0 {
		return 1
	}

	sf := src.Values[src.Index(t)]
	tf := tgt.Values[tgt.Index(mapped)]

	if !pitchmark.IsVoiced(sf) || !pitchmark.IsVoiced(tf) {
		return 1
	}

	return tf / sf
}

func energyRatio(tg Targets, t, mapped, skip float64) float64 {
	if len(tg.Source) == 0 || len(tg.Target) == 0 || !core.IsFinitePositive(tg.SampleRate) {
		return 1
	}

	src := core.RMS(segment(tg.Source, t, skip, tg.SampleRate))
	if src < minDeriveRMS {
		return 1
	}

	return core.RMS(segment(tg.Target, mapped, skip, tg.SampleRate)) / src
}

func segment(x []float64, center, half, fs float64) []float64 {
	lo := max(0, int(math.Round((center-half)*fs)))
	hi := min(len(x), int(math.Round((center+half)*fs)))

	if lo >= hi {
		return nil
	}

	return x[lo:hi]
}
