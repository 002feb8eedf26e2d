package wavio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-vconv/dsp/dither"
	"github.com/cwbudde/algo-vconv/stats/level"
)

const rawBlock = 4096

// Precision is the sample type of a raw stream.
type Precision int

const (
	Float64 Precision = iota
	Float32
)

// String returns the precision name.
func (p Precision) String() string {
	if p == Float32 {
		return "float32"
	}

	return "float64"
}

// Size returns the bytes per sample.
func (p Precision) Size() int {
	if p == Float32 {
		return 4
	}

	return 8
}

// ParsePrecision resolves "float32"/"single" or "float64"/"double".
func ParsePrecision(name string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "float64", "double", "":
		return Float64, nil
	case "float32", "single", "float":
		return Float32, nil
	default:
		return 0, fmt.Errorf("wavio: unknown precision %q", name)
	}
}

// ParseByteOrder resolves "little" or "big".
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "little", "le", "":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("wavio: unknown byte order %q", name)
	}
}

// RawStream is an output sink that spools samples to a headerless temporary
// file and converts them to WAV once the stream is complete. It implements
// ola.Sink and ola.Fitter.
type RawStream struct {
	f         *os.File
	bw        *bufio.Writer
	precision Precision
	order     binary.ByteOrder
	count     int
	buf       []byte
	closed    bool
}

// NewRawStream creates the temporary file in dir (os.TempDir when empty).
// A nil order means little endian.
func NewRawStream(dir string, precision Precision, order binary.ByteOrder) (*RawStream, error) {
	if order == nil {
		order = binary.LittleEndian
	}

	f, err := os.CreateTemp(dir, "vconv-*.raw")
	if err != nil {
		return nil, fmt.Errorf("wavio: creating raw stream: %w", err)
	}

	return &RawStream{
		f:         f,
		bw:        bufio.NewWriter(f),
		precision: precision,
		order:     order,
	}, nil
}

// Path returns the temporary file path.
func (s *RawStream) Path() string { return s.f.Name() }

// Len returns the number of samples in the stream.
func (s *RawStream) Len() int { return s.count }

// Write appends samples.
func (s *RawStream) Write(samples []float64) error {
	size := s.precision.Size()
	if cap(s.buf) < len(samples)*size {
		s.buf = make([]byte, len(samples)*size)
	}

	b := s.buf[:len(samples)*size]
	for i, x := range samples {
		s.put(b[i*size:], x)
	}

	if _, err := s.bw.Write(b); err != nil {
		return fmt.Errorf("wavio: writing raw stream: %w", err)
	}

	s.count += len(samples)

	return nil
}

// Fit truncates or zero-pads the stream to n samples.
func (s *RawStream) Fit(n int) error {
	if n >= s.count {
		return s.Write(make([]float64, n-s.count))
	}

	if err := s.bw.Flush(); err != nil {
		return fmt.Errorf("wavio: flushing raw stream: %w", err)
	}

	end := int64(n * s.precision.Size())
	if err := s.f.Truncate(end); err != nil {
		return fmt.Errorf("wavio: truncating raw stream: %w", err)
	}

	if _, err := s.f.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("wavio: truncating raw stream: %w", err)
	}

	s.count = n

	return nil
}

// Samples reads the whole stream back.
func (s *RawStream) Samples() ([]float64, error) {
	out := make([]float64, 0, s.count)

	err := s.each(func(block []float64) error {
		out = append(out, block...)
		return nil
	})

	return out, err
}

// Finalize writes the stream as a WAV file in format to path. A nil q
// selects default triangular dither.
func (s *RawStream) Finalize(path string, format Format, q *dither.Quantizer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("wavio: %w", cerr)
		}
	}()

	enc, err := newEncoder(f, format, q)
	if err != nil {
		return err
	}

	if err := s.each(enc.write); err != nil {
		return err
	}

	return enc.close()
}

// Levels measures the stored samples.
func (s *RawStream) Levels() (level.Stats, error) {
	var m level.Meter

	err := s.each(func(block []float64) error {
		m.Update(block)
		return nil
	})

	return m.Result(), err
}

// Close removes the temporary file.
func (s *RawStream) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	err := errors.Join(s.f.Close(), os.Remove(s.f.Name()))
	if err != nil {
		return fmt.Errorf("wavio: removing raw stream: %w", err)
	}

	return nil
}

// each flushes the stream and calls fn with consecutive blocks of samples.
func (s *RawStream) each(fn func([]float64) error) error {
	if err := s.bw.Flush(); err != nil {
		return fmt.Errorf("wavio: flushing raw stream: %w", err)
	}

	size := s.precision.Size()
	r := io.NewSectionReader(s.f, 0, int64(s.count*size))
	raw := make([]byte, rawBlock*size)
	block := make([]float64, rawBlock)

	for {
		n, err := io.ReadFull(r, raw)
		if n > 0 {
			k := n / size
			for i := range k {
				block[i] = s.get(raw[i*size:])
			}

			if ferr := fn(block[:k]); ferr != nil {
				return ferr
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("wavio: reading raw stream: %w", err)
		}
	}
}

func (s *RawStream) put(b []byte, x float64) {
	if s.precision == Float32 {
		s.order.PutUint32(b, math.Float32bits(float32(x)))
		return
	}

	s.order.PutUint64(b, math.Float64bits(x))
}

func (s *RawStream) get(b []byte) float64 {
	if s.precision == Float32 {
		return float64(math.Float32frombits(s.order.Uint32(b)))
	}

	return math.Float64frombits(s.order.Uint64(b))
}
