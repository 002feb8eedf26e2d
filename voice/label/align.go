package label

import "fmt"

// Alignment maps source times onto target times piecewise linearly between
// corresponding label boundaries.
type Alignment struct {
	src []float64
	tgt []float64
}

// Align builds an alignment from two label sequences with the same number of
// labels. Phones are not compared; label i of src corresponds to label i of
// tgt.
func Align(src, tgt Sequence) (*Alignment, error) {
	if len(src) != len(tgt) || len(src) == 0 {
		return nil, fmt.Errorf("%w: %d source vs %d target labels", ErrLabelCountMismatch, len(src), len(tgt))
	}

	a := &Alignment{
		src: make([]float64, 0, len(src)+1),
		tgt: make([]float64, 0, len(tgt)+1),
	}

	a.src = append(a.src, src[0].Start)
	a.tgt = append(a.tgt, tgt[0].Start)

	for i := range src {
		a.src = append(a.src, src[i].End)
		a.tgt = append(a.tgt, tgt[i].End)
	}

	return a, nil
}

// segment returns the boundary interval index containing source time t.
func (a *Alignment) segment(t float64) int {
	for i := 1; i < len(a.src)-1; i++ {
		if t < a.src[i] {
			return i - 1
		}
	}

	return len(a.src) - 2
}

// Map returns the target time corresponding to source time t. Times outside
// the labelled range are extrapolated with the slope of the nearest segment.
func (a *Alignment) Map(t float64) float64 {
	i := a.segment(t)

	return a.tgt[i] + (t-a.src[i])*a.Ratio(t)
}

// Ratio returns the local target/source duration ratio at source time t.
// Zero-length source segments yield 1.
func (a *Alignment) Ratio(t float64) float64 {
	i := a.segment(t)

	ds := a.src[i+1] - a.src[i]
	if ds <= 0 {
		return 1
	}

	return (a.tgt[i+1] - a.tgt[i]) / ds
}
