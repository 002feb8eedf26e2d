// Package pitchfile reads and writes pitch information: binary frame-rate
// F0 contours and text pitch-mark files.
//
// A contour file is little endian: the magic "VCPT", a uint32 count, then the
// float64 sample rate, window size and skip size in seconds, followed by
// count float64 F0 values (0 for unvoiced frames).
//
// A pitch-mark file is text. An optional "zeros N" line gives the padding
// past the end of the signal; every other non-empty line holds
// "sample voiced f0", with voiced being 0 or 1. Lines starting with ";" are
// comments.
package pitchfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
)

var (
	// ErrBadHeader is returned for a malformed contour header or a bad
	// "zeros" line.
	ErrBadHeader = errors.New("pitchfile: bad header")
	// ErrTruncated is returned when a contour file ends before count values.
	ErrTruncated = errors.New("pitchfile: truncated file")
	// ErrMalformedLine is returned for unparsable pitch-mark lines.
	ErrMalformedLine = errors.New("pitchfile: malformed line")
)

var contourMagic = [4]byte{'V', 'C', 'P', 'T'}

type contourHeader struct {
	Magic      [4]byte
	Count      uint32
	SampleRate float64
	WindowSize float64
	SkipSize   float64
}

// ReadContour reads a contour file.
func ReadContour(path string) (pitchmark.Contour, error) {
	f, err := os.Open(path)
	if err != nil {
		return pitchmark.Contour{}, fmt.Errorf("pitchfile: %w", err)
	}
	defer f.Close()

	return DecodeContour(bufio.NewReader(f))
}

// DecodeContour reads a contour from r and validates it.
func DecodeContour(r io.Reader) (pitchmark.Contour, error) {
	var h contourHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return pitchmark.Contour{}, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	if h.Magic != contourMagic {
		return pitchmark.Contour{}, fmt.Errorf("%w: magic %q", ErrBadHeader, h.Magic[:])
	}

	c := pitchmark.Contour{
		SampleRate: h.SampleRate,
		WindowSize: h.WindowSize,
		SkipSize:   h.SkipSize,
		Values:     make([]float64, h.Count),
	}

	buf := make([]byte, 8)
	for i := range c.Values {
		if _, err := io.ReadFull(r, buf); err != nil {
			return pitchmark.Contour{}, fmt.Errorf("%w: value %d of %d", ErrTruncated, i, h.Count)
		}

		c.Values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}

	if err := c.Validate(); err != nil {
		return pitchmark.Contour{}, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	return c, nil
}

// WriteContour writes c to path.
func WriteContour(path string, c pitchmark.Contour) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := EncodeContour(bw, c); err != nil {
		f.Close()
		return err
	}

	if err := errors.Join(bw.Flush(), f.Close()); err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	return nil
}

// EncodeContour writes c to w.
func EncodeContour(w io.Writer, c pitchmark.Contour) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	h := contourHeader{
		Magic:      contourMagic,
		Count:      uint32(len(c.Values)),
		SampleRate: c.SampleRate,
		WindowSize: c.WindowSize,
		SkipSize:   c.SkipSize,
	}

	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("pitchfile: writing header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, c.Values); err != nil {
		return fmt.Errorf("pitchfile: writing values: %w", err)
	}

	return nil
}

// ReadMarks reads a pitch-mark file.
func ReadMarks(path string) (*pitchmark.Marks, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pitchfile: %w", err)
	}
	defer f.Close()

	return DecodeMarks(f)
}

// DecodeMarks parses pitch marks from r and validates them.
func DecodeMarks(r io.Reader) (*pitchmark.Marks, error) {
	m := &pitchmark.Marks{}
	sc := bufio.NewScanner(r)

	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		fields := strings.Fields(line)

		if fields[0] == "zeros" {
			if len(fields) != 2 {
				return nil, fmt.Errorf("%w: line %d: %q", ErrBadHeader, n, line)
			}

			z, err := strconv.Atoi(fields[1])
			if err != nil || z < 0 {
				return nil, fmt.Errorf("%w: line %d: %q", ErrBadHeader, n, line)
			}

			m.ZerosToPad = z

			continue
		}

		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedLine, n, line)
		}

		pos, perr := strconv.Atoi(fields[0])
		voiced, verr := strconv.ParseBool(fields[1])
		f0, ferr := strconv.ParseFloat(fields[2], 64)

		if err := errors.Join(perr, verr, ferr); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedLine, n, err)
		}

		m.Positions = append(m.Positions, pos)
		m.Voiced = append(m.Voiced, voiced)
		m.F0 = append(m.F0, f0)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("pitchfile: reading marks: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// WriteMarks writes m to path.
func WriteMarks(path string, m *pitchmark.Marks) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	bw := bufio.NewWriter(f)
	if err := EncodeMarks(bw, m); err != nil {
		f.Close()
		return err
	}

	if err := errors.Join(bw.Flush(), f.Close()); err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	return nil
}

// EncodeMarks writes m to w in the text format.
func EncodeMarks(w io.Writer, m *pitchmark.Marks) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "zeros %d\n", m.ZerosToPad); err != nil {
		return fmt.Errorf("pitchfile: %w", err)
	}

	for i, pos := range m.Positions {
		v := 0
		if m.Voiced[i] {
			v = 1
		}

		if _, err := fmt.Fprintf(w, "%d %d %s\n", pos, v, strconv.FormatFloat(m.F0[i], 'g', -1, 64)); err != nil {
			return fmt.Errorf("pitchfile: %w", err)
		}
	}

	return nil
}
