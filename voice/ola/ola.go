// Package ola overlap-adds synthesized frames into a continuous output
// stream and hands completed samples to a sink.
package ola

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-vconv/dsp/buffer"
	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/window"
)

// Capacity returns the ring capacity needed for frames synthesized from
// input frames of up to maxFrameSize samples with pitch scales down to
// minPitch.
func Capacity(maxFrameSize int, minPitch float64) int {
	return int(math.Ceil(float64(maxFrameSize+2)/minPitch)) + 4
}

// Gain returns the factor that gives a synthesized frame out the same
// energy per sample as the input frame, times escale.
func Gain(inEnergy float64, inSize int, out []float64, escale float64) float64 {
	outEnergy := core.Energy(out)
	if outEnergy == 0 || inSize <= 0 || len(out) == 0 {
		return 0
	}

	return (inEnergy / math.Sqrt(float64(inSize))) / (outEnergy / math.Sqrt(float64(len(out)))) * escale
}

// Synthesizer windows frames, folds them into the overlap ring and drains
// completed samples to the sink. It is not safe for concurrent use; frames
// must arrive in temporal order.
type Synthesizer struct {
	ring      *buffer.OverlapRing
	sink      Sink
	synthesis window.Type
	analysis  window.Type

	started  bool
	finished bool
	written  int
}

// New returns a synthesizer with a ring of capacity samples. Frames are
// windowed with the synthesis window. Frames that still carry the analysis
// taper are weighted with synthesis times analysis window, all others with
// the squared synthesis window.
func New(capacity int, sink Sink, synthesis, analysis window.Type) (*Synthesizer, error) {
	ring, err := buffer.NewOverlapRing(capacity)
	if err != nil {
		return nil, fmt.Errorf("ola: %w", err)
	}

	return &Synthesizer{ring: ring, sink: sink, synthesis: synthesis, analysis: analysis}, nil
}

// Written returns the number of samples handed to the sink.
func (s *Synthesizer) Written() int { return s.written }

// Capacity returns the ring capacity.
func (s *Synthesizer) Capacity() int { return s.ring.Cap() }

// Emit adds one frame instance at the write cursor and, unless it is the
// final instance, drains hop samples. tapered reports whether the frame
// still carries the analysis window, as frames resynthesized at their
// analysis size do. The first instance of the stream keeps its first half
// unwindowed and the final instance its second half; for untapered frames
// those halves carry unit weight.
func (s *Synthesizer) Emit(frame []float64, hop int, final, tapered bool) error {
	if s.finished {
		return fmt.Errorf("ola: emit after final frame")
	}

	n := len(frame)
	synth, weights := s.windows(n, final, tapered)

	weighted := make([]float64, n)
	vecmath.MulBlock(weighted, frame, synth)

	if err := s.ring.Accumulate(weighted, weights, 0); err != nil {
		return fmt.Errorf("ola: %w", err)
	}

	s.started = true

	if final {
		s.finished = true
		return nil
	}

	return s.write(s.ring.Drain(hop))
}

func (s *Synthesizer) windows(n int, final, tapered bool) ([]float64, []float64) {
	var synth []float64

	switch {
	case !s.started && final:
		synth = window.Generate(window.TypeRectangular, n)
	case !s.started:
		synth = window.Generate(s.synthesis, n, window.WithSlope(window.SlopeRight))
	case final:
		synth = window.Generate(s.synthesis, n, window.WithSlope(window.SlopeLeft))
	default:
		synth = window.Generate(s.synthesis, n)
	}

	taper := synth
	if tapered {
		taper = window.Generate(s.analysis, n)
	}

	weights := make([]float64, n)
	vecmath.MulBlock(weights, synth, taper)

	return synth, weights
}

// Finish drains every buffered sample. With limit > 0 the total number of
// samples written never exceeds limit.
func (s *Synthesizer) Finish(limit int) error {
	out := s.ring.DrainAll()
	if limit > 0 {
		out = out[:max(0, min(len(out), limit-s.written))]
	}

	s.finished = true

	return s.write(out)
}

func (s *Synthesizer) write(samples []float64) error {
	if len(samples) == 0 {
		return nil
	}

	if err := s.sink.Write(samples); err != nil {
		return fmt.Errorf("ola: writing output: %w", err)
	}

	s.written += len(samples)

	return nil
}
