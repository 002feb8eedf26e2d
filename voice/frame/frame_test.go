package frame

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
	"github.com/cwbudde/algo-vconv/internal/testutil"
)

func constantMarks(t *testing.T, f0 float64, length int) *pitchmark.Marks {
	t.Helper()

	c := pitchmark.Contour{
		SampleRate: 16000,
		WindowSize: 0.04,
		SkipSize:   0.01,
		Values:     testutil.ConstantContour(f0, length/160+1),
	}

	m, err := pitchmark.FromContour(c, length, true, 0)
	if err != nil {
		t.Fatalf("FromContour() error = %v", err)
	}

	return m
}

func TestPitchSynchronousFrames(t *testing.T) {
	x := testutil.DeterministicSine(100, 16000, 0.5, 16000)
	marks := constantMarks(t, 100, len(x))

	seg, err := NewPitchSynchronous(x, 16000, marks, DefaultPeriods)
	if err != nil {
		t.Fatalf("NewPitchSynchronous() error = %v", err)
	}

	if seg.Len() != marks.Len()-DefaultPeriods {
		t.Fatalf("Len() = %d, want %d", seg.Len(), marks.Len()-DefaultPeriods)
	}

	if seg.MaxSize() != 482 {
		t.Fatalf("MaxSize() = %d, want 482", seg.MaxSize())
	}

	var frames []Frame
	for {
		f, ok := seg.Next()
		if !ok {
			break
		}

		frames = append(frames, f)
	}

	if len(frames) != seg.Len() || seg.Remaining() != 0 {
		t.Fatalf("got %d frames, remaining %d", len(frames), seg.Remaining())
	}

	first := frames[0]
	if first.Start != 0 || first.Size != 482 || first.Period != 160 || !first.Voiced {
		t.Fatalf("first frame = %+v", first)
	}

	if math.Abs(first.Time-241.0/16000) > 1e-12 {
		t.Fatalf("first.Time = %v", first.Time)
	}

	for i := range first.Samples {
		if first.Samples[i] != x[i] {
			t.Fatalf("sample %d = %v, want %v", i, first.Samples[i], x[i])
		}
	}

	last := frames[len(frames)-1]
	if !last.Last || last.Valid >= last.Size {
		t.Fatalf("last frame = Last %v Valid %d Size %d", last.Last, last.Valid, last.Size)
	}

	for i := last.Valid; i < last.Size; i++ {
		if last.Samples[i] != 0 {
			t.Fatalf("padding sample %d = %v, want 0", i, last.Samples[i])
		}
	}

	for i, f := range frames {
		if f.Size%2 != 0 || f.Size < MinSize {
			t.Fatalf("frame %d size %d", i, f.Size)
		}
	}

	seg.Reset()
	if seg.Remaining() != seg.Len() {
		t.Fatal("Reset() did not rewind")
	}
}

func TestFixedRateFrames(t *testing.T) {
	x := make([]float64, 1000)

	seg, err := NewFixedRate(x, 1000, 0.1, 0.05)
	if err != nil {
		t.Fatalf("NewFixedRate() error = %v", err)
	}

	if seg.Len() != 19 {
		t.Fatalf("Len() = %d, want 19", seg.Len())
	}

	var last Frame
	for {
		f, ok := seg.Next()
		if !ok {
			break
		}

		if f.Voiced || f.Size != 100 || f.Period != 50 {
			t.Fatalf("frame %d = %+v", f.Index, f)
		}

		last = f
	}

	if !last.Last || last.Start+last.Size != 1000 {
		t.Fatalf("last frame start %d size %d", last.Start, last.Size)
	}
}

func TestSegmenterErrors(t *testing.T) {
	marks := &pitchmark.Marks{Positions: []int{0}, Voiced: []bool{true}, F0: []float64{100}}

	if _, err := NewPitchSynchronous(nil, 16000, marks, 3); !errors.Is(err, ErrNoSamples) {
		t.Fatalf("error = %v, want ErrNoSamples", err)
	}

	if _, err := NewPitchSynchronous([]float64{1}, 16000, marks, 3); !errors.Is(err, pitchmark.ErrTooFewMarks) {
		t.Fatalf("error = %v, want ErrTooFewMarks", err)
	}

	if _, err := NewFixedRate([]float64{1}, 16000, 0, 0.01); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("error = %v, want ErrInvalidRate", err)
	}
}
