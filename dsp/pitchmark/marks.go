package pitchmark

import (
	"fmt"
	"math"
)

// Marks is an ordered set of pitch marks over a sample buffer.
type Marks struct {
	// Positions are strictly increasing sample indices.
	Positions []int
	// Voiced reports the voicing of the cycle starting at each mark.
	Voiced []bool
	// F0 holds the local F0 estimate (Hz) at each mark.
	F0 []float64
	// ZerosToPad is the number of zero samples that must conceptually follow
	// the buffer so that the final period is fully representable.
	ZerosToPad int
}

// Len returns the number of marks.
func (m *Marks) Len() int { return len(m.Positions) }

// Period returns the distance in samples between mark i and mark i+1.
func (m *Marks) Period(i int) int {
	if i+1 >= len(m.Positions) {
		if i > 0 {
			return m.Positions[i] - m.Positions[i-1]
		}

		return 0
	}

	return m.Positions[i+1] - m.Positions[i]
}

// Validate requires at least two marks, strictly increasing positions and
// voicing and F0 slices parallel to them.
func (m *Marks) Validate() error {
	if len(m.Positions) < 2 {
		return ErrTooFewMarks
	}

	if len(m.Voiced) != len(m.Positions) || len(m.F0) != len(m.Positions) {
		return fmt.Errorf("pitchmark: %d positions but %d voicing flags and %d F0 values",
			len(m.Positions), len(m.Voiced), len(m.F0))
	}

	for i := 1; i < len(m.Positions); i++ {
		if m.Positions[i] <= m.Positions[i-1] {
			return fmt.Errorf("pitchmark: positions not strictly increasing at %d (%d <= %d)",
				i, m.Positions[i], m.Positions[i-1])
		}
	}

	return nil
}

// FromContour places pitch marks over a buffer of length samples from a
// frame-rate contour.
//
// The local period at every sample is fs/F0 of the unvoiced-interpolated
// contour, or fs/DefaultUnvoicedF0 where the interpolated value is still
// below the voicing threshold. A mark is placed at offset and then every time
// the sample index has advanced at least one local period past the previous
// mark. With padZeros set and the last mark not on the final sample, a
// synthetic mark one previous period later is appended and ZerosToPad records
// how far it reaches past the buffer.
func FromContour(c Contour, length int, padZeros bool, offset int) (*Marks, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if length <= 0 {
		return nil, ErrTooFewMarks
	}

	fs := c.SampleRate
	interp := InterpolateUnvoiced(c.Values)

	m := &Marks{}
	prev := 0

	for i := range length {
		idx := c.Index(float64(i) / fs)

		t0 := fs / DefaultUnvoicedF0
		if IsVoiced(interp[idx]) {
			t0 = fs / interp[idx]
		}

		if i == 0 || float64(i-prev) >= t0 {
			f0 := interp[idx]
			if !IsVoiced(f0) {
				f0 = DefaultUnvoicedF0
			}

			m.Positions = append(m.Positions, i+offset)
			m.Voiced = append(m.Voiced, IsVoiced(c.Values[idx]))
			m.F0 = append(m.F0, f0)
			prev = i
		}
	}

	if len(m.Positions) < 2 {
		return nil, ErrTooFewMarks
	}

	last := len(m.Positions) - 1
	end := length - 1 + offset

	if padZeros && m.Positions[last] != end {
		step := m.Positions[last] - m.Positions[last-1]
		final := max(m.Positions[last]+step, end)

		m.Positions = append(m.Positions, final)
		m.Voiced = append(m.Voiced, m.Voiced[last])
		m.F0 = append(m.F0, m.F0[last])
		m.ZerosToPad = final - end
	}

	return m, nil
}

// FixedRate places pseudo marks every skip samples, as used for
// non-pitch-synchronous conversion. All marks are unvoiced.
func FixedRate(length, skip int, sampleRate float64, padZeros bool) (*Marks, error) {
	if skip <= 0 || length <= 0 {
		return nil, ErrTooFewMarks
	}

	m := &Marks{}
	for pos := 0; pos < length; pos += skip {
		m.Positions = append(m.Positions, pos)
		m.Voiced = append(m.Voiced, false)
		m.F0 = append(m.F0, sampleRate/float64(skip))
	}

	if len(m.Positions) < 2 {
		return nil, ErrTooFewMarks
	}

	last := m.Positions[len(m.Positions)-1]
	if padZeros && last != length-1 {
		final := last + skip
		m.Positions = append(m.Positions, final)
		m.Voiced = append(m.Voiced, false)
		m.F0 = append(m.F0, sampleRate/float64(skip))
		m.ZerosToPad = final - (length - 1)
	}

	return m, nil
}

// MaxSpan returns the largest distance covered by periods consecutive
// periods, i.e. max(Positions[i+periods] - Positions[i]).
func (m *Marks) MaxSpan(periods int) int {
	span := 0
	for i := 0; i+periods < len(m.Positions); i++ {
		span = max(span, m.Positions[i+periods]-m.Positions[i])
	}

	return span
}

// MeanF0 returns the mean F0 over voiced marks, or NaN when none is voiced.
func (m *Marks) MeanF0() float64 {
	sum, n := 0.0, 0
	for i, v := range m.Voiced {
		if v {
			sum += m.F0[i]
			n++
		}
	}

	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}
