// Package schedule decides, frame by frame, how many times a synthesized
// frame is emitted so that the output duration tracks the requested time
// scale.
//
// The scheduler works in output hops: every emitted frame instance advances
// the output by its hop, every input frame requests its input hop times the
// time scale. The difference is carried from frame to frame and resolved by
// skipping or repeating frames once it exceeds a tolerance of a tenth of a
// hop.
package schedule

import (
	"fmt"
	"math"
)

// tolerance is the fraction of an output hop the carried error may reach
// before a frame is skipped or repeated.
const tolerance = 0.1

// State is the per-frame outcome.
type State int

const (
	StateNormal State = iota
	StateRepeat
	StateSkip
	StateLast
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateRepeat:
		return "repeat"
	case StateSkip:
		return "skip"
	case StateLast:
		return "last"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Step describes one input frame.
type Step struct {
	// Period is the input hop of the frame in samples.
	Period float64
	// NewPeriod is the output hop of one emitted instance in samples.
	NewPeriod float64
	// TimeScale is the requested duration factor.
	TimeScale float64
	// Last marks the final input frame.
	Last bool
	// TailRequested and TailProduced are the requested and produced lengths
	// of the final drain after the last hop, in samples. Only read when Last
	// is set.
	TailRequested float64
	TailProduced  float64
}

// Decision is the scheduler output for one frame.
type Decision struct {
	State State
	// Count is the number of instances to emit; zero means skip.
	Count int
	// Finalize is set on the last frame: the final emitted instance ends the
	// stream.
	Finalize bool
}

// Scheduler holds the carried duration error. The zero value is ready to use.
type Scheduler struct {
	// total is requested minus produced output length so far, in samples.
	// Every frame adds its residual error, so it is also the carry into the
	// next frame.
	total     float64
	requested float64
}

// Total returns requested minus produced output length so far in samples.
func (s *Scheduler) Total() float64 { return s.total }

// Requested returns the output length requested so far in samples.
func (s *Scheduler) Requested() float64 { return s.requested }

// Reset clears the carried state.
func (s *Scheduler) Reset() { *s = Scheduler{} }

// Next returns the decision for step and updates the carried error.
func (s *Scheduler) Next(step Step) Decision {
	hop := math.Max(step.NewPeriod, 1)
	requested := step.Period * step.TimeScale
	s.requested += requested

	if step.Last {
		s.requested += step.TailRequested

		return s.finish(requested+step.TailRequested-step.TailProduced, hop)
	}

	err := s.total + requested - hop
	d := Decision{State: StateNormal, Count: 1}

	switch {
	case err < -tolerance*hop:
		d = Decision{State: StateSkip, Count: 0}
		err += hop
	case err > tolerance*hop:
		for err > tolerance*hop {
			d.Count++
			err -= hop
		}

		d.State = StateRepeat
	}

	s.total = err

	return d
}

// finish emits the last frame at least once and adds instances until the
// running total is no longer positive, so that the output never undershoots
// the requested length.
func (s *Scheduler) finish(deficit, hop float64) Decision {
	s.total += deficit - hop

	count := 1
	for s.total > 0 {
		count++
		s.total -= hop
	}

	return Decision{State: StateLast, Count: count, Finalize: true}
}

// Tail returns the requested and produced lengths of the final drain: the
// part of the last frame beyond its first hop, stretched by timeScale on
// input, against the same part of the synthesized frame. Padding samples do
// not count as requested input.
func Tail(frameSize, period, newFrameSize, newPeriod, zerosToPad int, timeScale float64) (requested, produced float64) {
	requested = math.Max(0, float64(frameSize-period-zerosToPad)) * timeScale
	produced = float64(newFrameSize - newPeriod)

	return requested, produced
}
