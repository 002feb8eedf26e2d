package buffer

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// weightFloor is the accumulated weight at or below which a drained sample
// is emitted un-normalized.
const weightFloor = 1e-10

var (
	// ErrInvalidCapacity is returned for a non-positive ring capacity.
	ErrInvalidCapacity = errors.New("buffer: capacity must be > 0")
	// ErrOverflow is returned when a frame would extend past the ring capacity.
	ErrOverflow = errors.New("buffer: frame exceeds ring capacity")
	// ErrLengthMismatch is returned when frame and weights differ in length.
	ErrLengthMismatch = errors.New("buffer: frame and weights must have the same length")
)

// OverlapRing is a circular overlap-add accumulator with weight normalization.
// It is not safe for concurrent use.
type OverlapRing struct {
	acc []float64
	wgt []float64

	head    int // ring index of the read cursor
	pending int // samples from the read cursor touched by at least one frame
	drained int // total samples drained so far
}

// NewOverlapRing returns a ring that can hold frames of up to capacity samples.
func NewOverlapRing(capacity int) (*OverlapRing, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	return &OverlapRing{
		acc: make([]float64, capacity),
		wgt: make([]float64, capacity),
	}, nil
}

// Cap returns the ring capacity in samples.
func (r *OverlapRing) Cap() int { return len(r.acc) }

// Pending returns how many samples past the read cursor hold accumulated data.
func (r *OverlapRing) Pending() int { return r.pending }

// Drained returns the total number of samples drained since creation.
func (r *OverlapRing) Drained() int { return r.drained }

// Accumulate adds frame into the accumulation buffer and weights into the
// weight buffer, starting offset samples after the read cursor.
func (r *OverlapRing) Accumulate(frame, weights []float64, offset int) error {
	if len(frame) != len(weights) {
		return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(frame), len(weights))
	}

	if offset < 0 || offset+len(frame) > len(r.acc) {
		return fmt.Errorf("%w: offset %d + length %d > %d", ErrOverflow, offset, len(frame), len(r.acc))
	}

	start := (r.head + offset) % len(r.acc)
	first := min(len(frame), len(r.acc)-start)

	vecmath.AddBlockInPlace(r.acc[start:start+first], frame[:first])
	vecmath.AddBlockInPlace(r.wgt[start:start+first], weights[:first])

	if rest := len(frame) - first; rest > 0 {
		vecmath.AddBlockInPlace(r.acc[:rest], frame[first:])
		vecmath.AddBlockInPlace(r.wgt[:rest], weights[first:])
	}

	r.pending = max(r.pending, offset+len(frame))

	return nil
}

// Drain evicts count samples from the read cursor, normalizing each by its
// accumulated weight, clears the evicted slots and advances the cursor.
// Slots that were never written drain as zeros.
func (r *OverlapRing) Drain(count int) []float64 {
	if count <= 0 {
		return nil
	}

	out := make([]float64, count)
	n := len(r.acc)

	for i := range out {
		if i >= n {
			// Beyond the ring only never-written samples remain.
			break
		}

		idx := (r.head + i) % n
		if r.wgt[idx] > weightFloor {
			out[i] = r.acc[idx] / r.wgt[idx]
		} else {
			out[i] = r.acc[idx]
		}

		r.acc[idx] = 0
		r.wgt[idx] = 0
	}

	r.head = (r.head + count) % n
	r.pending = max(0, r.pending-count)
	r.drained += count

	return out
}

// DrainAll evicts every pending sample.
func (r *OverlapRing) DrainAll() []float64 {
	return r.Drain(r.pending)
}
