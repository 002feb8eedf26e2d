// Package frame walks a sample buffer and cuts it into analysis frames,
// either pitch-synchronously over pitch marks or at a fixed rate.
package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
)

const (
	// DefaultPeriods is the number of pitch periods spanned by one
	// pitch-synchronous frame.
	DefaultPeriods = 3
	// MinSize is the smallest frame size ever produced.
	MinSize = 4
)

var (
	// ErrNoSamples is returned for an empty sample buffer.
	ErrNoSamples = errors.New("frame: empty sample buffer")
	// ErrInvalidPeriods is returned when the period count is not positive.
	ErrInvalidPeriods = errors.New("frame: periods per frame must be > 0")
	// ErrInvalidRate is returned for non-positive fixed-rate sizes or sample rates.
	ErrInvalidRate = errors.New("frame: invalid sample rate or frame sizes")
)

// Frame is one analysis frame.
type Frame struct {
	// Index is the frame number, starting at 0.
	Index int
	// Start is the buffer index of the first sample.
	Start int
	// Size is the frame length in samples, even and at least MinSize.
	Size int
	// Valid is the number of samples taken from the buffer; the rest are
	// zero padding past its end.
	Valid int
	// Period is the input hop to the next frame in samples.
	Period int
	// Voiced and F0 describe the cycle starting at Start.
	Voiced bool
	F0     float64
	// Time is the frame center in seconds.
	Time float64
	// Last marks the final frame of the stream.
	Last bool
	// Samples holds Size samples. The slice is owned by the caller.
	Samples []float64
}

// Segmenter produces frames in temporal order.
type Segmenter struct {
	x       []float64
	fs      float64
	marks   *pitchmark.Marks
	periods int

	// fixed-rate mode: constant size and hop
	fixedSize int
	fixedHop  int

	count int
	next  int
}

// NewPitchSynchronous returns a segmenter that emits one frame per pitch
// mark, spanning periods periods: frame i covers marks[i]..marks[i+periods].
// It yields len(marks)-periods frames.
func NewPitchSynchronous(x []float64, sampleRate float64, marks *pitchmark.Marks, periods int) (*Segmenter, error) {
	if len(x) == 0 {
		return nil, ErrNoSamples
	}

	if !core.IsFinitePositive(sampleRate) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidRate, sampleRate)
	}

	if periods <= 0 {
		return nil, ErrInvalidPeriods
	}

	if err := marks.Validate(); err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}

	return &Segmenter{
		x:       x,
		fs:      sampleRate,
		marks:   marks,
		periods: periods,
		count:   max(1, marks.Len()-periods),
	}, nil
}

// NewFixedRate returns a segmenter with a constant frame size and hop given
// in seconds. Frames are unvoiced and the last frame reaches the end of the
// buffer.
func NewFixedRate(x []float64, sampleRate, windowSize, skipSize float64) (*Segmenter, error) {
	if len(x) == 0 {
		return nil, ErrNoSamples
	}

	if !core.IsFinitePositive(sampleRate) || !core.IsFinitePositive(windowSize) || !core.IsFinitePositive(skipSize) {
		return nil, fmt.Errorf("%w: fs=%v window=%v skip=%v", ErrInvalidRate, sampleRate, windowSize, skipSize)
	}

	size := core.EvenSize(int(math.Round(windowSize*sampleRate)), MinSize)
	hop := max(1, int(math.Round(skipSize*sampleRate)))

	count := 1
	if len(x) > size {
		count = int(math.Ceil(float64(len(x)-size)/float64(hop))) + 1
	}

	return &Segmenter{
		x:         x,
		fs:        sampleRate,
		fixedSize: size,
		fixedHop:  hop,
		count:     count,
	}, nil
}

// Len returns the total number of frames.
func (s *Segmenter) Len() int { return s.count }

// Remaining returns the number of frames not yet produced.
func (s *Segmenter) Remaining() int { return s.count - s.next }

// MaxSize returns the largest frame size the segmenter will produce.
func (s *Segmenter) MaxSize() int {
	if s.marks == nil {
		return s.fixedSize
	}

	return core.EvenSize(s.marks.MaxSpan(s.periods)+1, MinSize)
}

// Reset rewinds the segmenter to the first frame.
func (s *Segmenter) Reset() { s.next = 0 }

// Next returns the next frame, or false once all frames were produced.
func (s *Segmenter) Next() (Frame, bool) {
	if s.next >= s.count {
		return Frame{}, false
	}

	i := s.next
	s.next++

	f := Frame{Index: i, Last: i == s.count-1}

	if s.marks == nil {
		f.Start = i * s.fixedHop
		f.Size = s.fixedSize
		f.Period = s.fixedHop
		f.F0 = s.fs / float64(s.fixedHop)
	} else {
		pos := s.marks.Positions
		end := min(i+s.periods, len(pos)-1)

		f.Start = pos[i]
		f.Size = core.EvenSize(pos[end]-pos[i]+1, MinSize)
		f.Period = max(1, s.marks.Period(i))
		f.Voiced = s.marks.Voiced[i]
		f.F0 = s.marks.F0[i]
	}

	f.Samples = make([]float64, f.Size)
	core.PaddedCopy(f.Samples, s.x, f.Start)
	f.Valid = max(0, min(f.Size, len(s.x)-f.Start))
	f.Time = (float64(f.Start) + 0.5*float64(f.Size)) / s.fs

	return f, true
}
