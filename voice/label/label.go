// Package label reads phoneme label files and derives the phonetic context
// and source-to-target time alignment used by the vocal-tract matchers and
// the alignment-derived scale schedules.
package label

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMalformedLabel is returned for label lines that cannot be parsed.
	ErrMalformedLabel = errors.New("label: malformed label line")
	// ErrLabelCountMismatch is returned when two label sequences cannot be aligned.
	ErrLabelCountMismatch = errors.New("label: label sequences differ in length")
)

// Label is one phoneme segment in seconds.
type Label struct {
	Start float64
	End   float64
	Phone string
}

// Duration returns End - Start.
func (l Label) Duration() float64 { return l.End - l.Start }

// Sequence is a time-ordered list of contiguous labels.
type Sequence []Label

// Parse reads an Xwaves style label file. Everything up to a line holding a
// single "#" is header; files without that line have no header. Each following line is "endTime color phone"; a
// label starts where the previous one ended.
func Parse(r io.Reader) (Sequence, error) {
	sc := bufio.NewScanner(r)

	var lines []string

	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "#" {
			// header ends here
			lines = lines[:0]

			continue
		}

		if text != "" {
			lines = append(lines, text)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("label: read: %w", err)
	}

	seq := make(Sequence, 0, len(lines))
	start := 0.0

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedLabel, line)
		}

		end, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("%w: %q", ErrMalformedLabel, line)
		}

		phone := ""
		if len(fields) >= 3 {
			phone = strings.Join(fields[2:], " ")
		}

		seq = append(seq, Label{Start: start, End: end, Phone: phone})
		start = end
	}

	return seq, nil
}

// Load parses the label file at path.
func Load(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Duration returns the end time of the last label.
func (s Sequence) Duration() float64 {
	if len(s) == 0 {
		return 0
	}

	return s[len(s)-1].End
}

// IndexAt returns the index of the label covering time t. Times before the
// first label map to 0 and times past the end map to the last label; an
// empty sequence yields -1.
func (s Sequence) IndexAt(t float64) int {
	if len(s) == 0 {
		return -1
	}

	i := sort.Search(len(s), func(i int) bool { return s[i].End > t })

	return min(i, len(s)-1)
}

// Context returns the phones of the 2n+1 labels centered on index i, padded
// with empty strings beyond the sequence bounds.
func (s Sequence) Context(i, n int) []string {
	out := make([]string, 2*n+1)
	for k := -n; k <= n; k++ {
		if j := i + k; j >= 0 && j < len(s) {
			out[k+n] = s[j].Phone
		}
	}

	return out
}

// ContextAt is Context for the label covering time t.
func (s Sequence) ContextAt(t float64, n int) []string {
	return s.Context(s.IndexAt(t), n)
}
