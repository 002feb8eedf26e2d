package match

import (
	"fmt"
	"sort"

	"github.com/cwbudde/algo-vconv/voice/label"
)

// Frame is an analyzed target frame.
type Frame struct {
	Time     float64
	Features []float64
}

// DirectMatcher copies the features of the target frame nearest to the
// aligned time. It is used when a parallel target recording exists.
type DirectMatcher struct {
	frames    []Frame
	alignment *label.Alignment
	dim       int
}

// NewDirectMatcher returns a matcher over the target frames. With a nil
// alignment source and target times are taken as equal.
func NewDirectMatcher(frames []Frame, alignment *label.Alignment) (*DirectMatcher, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyModel
	}

	sorted := make([]Frame, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	dim := len(sorted[0].Features)
	for i, f := range sorted {
		if len(f.Features) != dim {
			return nil, fmt.Errorf("%w: target frame %d has %d values, want %d", ErrDimensionMismatch, i, len(f.Features), dim)
		}
	}

	return &DirectMatcher{frames: sorted, alignment: alignment, dim: dim}, nil
}

// Match implements Matcher. The target recording holds no source exemplars,
// so Source is the query frame itself and source normalization divides by
// the analyzed frame.
func (m *DirectMatcher) Match(q Query) (Result, error) {
	if err := checkDim(len(q.Features), m.dim); err != nil {
		return Result{}, err
	}

	t := q.Time
	if m.alignment != nil {
		t = m.alignment.Map(t)
	}

	return Result{Target: clone(m.frames[m.nearest(t)].Features), Source: clone(q.Features)}, nil
}

func (m *DirectMatcher) nearest(t float64) int {
	i := sort.Search(len(m.frames), func(i int) bool { return m.frames[i].Time >= t })

	switch {
	case i == 0:
		return 0
	case i == len(m.frames):
		return len(m.frames) - 1
	case t-m.frames[i-1].Time <= m.frames[i].Time-t:
		return i - 1
	default:
		return i
	}
}
