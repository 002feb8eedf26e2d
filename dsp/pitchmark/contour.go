// Package pitchmark converts frame-rate F0 contours into sample-accurate
// pitch marks, one per glottal cycle, for pitch-synchronous processing.
package pitchmark

import (
	"errors"
	"fmt"
	"math"
)

// VoicingThreshold is the F0 (Hz) below which a contour value counts as unvoiced.
const VoicingThreshold = 10.0

// DefaultUnvoicedF0 is the pseudo F0 used to space marks in unvoiced regions.
const DefaultUnvoicedF0 = 100.0

var (
	// ErrTooFewMarks is returned when fewer than two marks can be placed.
	ErrTooFewMarks = errors.New("pitchmark: fewer than 2 pitch marks")
	// ErrInvalidContour is returned for contours with a non-positive rate or size.
	ErrInvalidContour = errors.New("pitchmark: invalid contour")
)

// Contour is a frame-rate F0 track. Values[i] is the F0 of the analysis
// frame centered at WindowSize/2 + i*SkipSize seconds; zero (or anything
// below VoicingThreshold) marks an unvoiced frame.
type Contour struct {
	SampleRate float64
	WindowSize float64
	SkipSize   float64
	Values     []float64
}

// Validate checks the header fields of c.
func (c Contour) Validate() error {
	if !(c.SampleRate > 0) || !(c.SkipSize > 0) || c.WindowSize < 0 {
		return fmt.Errorf("%w: sampleRate=%v window=%v skip=%v",
			ErrInvalidContour, c.SampleRate, c.WindowSize, c.SkipSize)
	}

	if len(c.Values) == 0 {
		return fmt.Errorf("%w: empty contour", ErrInvalidContour)
	}

	return nil
}

// Time returns the center time in seconds of contour frame i.
func (c Contour) Time(i int) float64 {
	return 0.5*c.WindowSize + float64(i)*c.SkipSize
}

// Index returns the contour frame closest to time t, clamped to the valid range.
func (c Contour) Index(t float64) int {
	idx := int(math.Floor((t-0.5*c.WindowSize)/c.SkipSize + 0.5))

	return max(0, min(idx, len(c.Values)-1))
}

// IsVoiced reports whether f0 counts as voiced.
func IsVoiced(f0 float64) bool {
	return f0 > VoicingThreshold
}

// InterpolateUnvoiced returns a copy of f0s in which every unvoiced run is
// replaced by a linear interpolation between its voiced neighbours. Leading
// and trailing runs take the value of the nearest voiced frame. A contour
// without voiced frames is returned unchanged.
func InterpolateUnvoiced(f0s []float64) []float64 {
	out := make([]float64, len(f0s))
	copy(out, f0s)

	first := -1
	for i, v := range f0s {
		if IsVoiced(v) {
			first = i
			break
		}
	}

	if first < 0 {
		return out
	}

	for i := 0; i < first; i++ {
		out[i] = f0s[first]
	}

	prev := first
	for i := first + 1; i < len(f0s); i++ {
		if !IsVoiced(f0s[i]) {
			continue
		}

		if i-prev > 1 {
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				t := float64(j-prev) / span
				out[j] = f0s[prev] + t*(f0s[i]-f0s[prev])
			}
		}

		prev = i
	}

	for i := prev + 1; i < len(f0s); i++ {
		out[i] = f0s[prev]
	}

	return out
}
