package smooth

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
)

var sideFileMagic = [4]byte{'V', 'C', 'S', 'M'}

const sideFileVersion = 1

// header is the fixed-size side file header.
type header struct {
	Magic     [4]byte
	Version   uint16
	Domain    uint16
	Dimension uint32
	Count     uint32
}

const countOffset = 12

// Writer writes the records of an estimate pass. The record count in the
// header is patched on Close.
type Writer struct {
	f      *os.File
	bw     *bufio.Writer
	domain Domain
	dim    int
	count  int
	buf    []byte
	closed bool
}

// Create creates the side file at path for records of dim values.
func Create(path string, domain Domain, dim int) (*Writer, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrRecordLength, dim)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("smooth: creating side file: %w", err)
	}

	w := &Writer{f: f, bw: bufio.NewWriter(f), domain: domain, dim: dim, buf: make([]byte, 8*dim)}

	h := header{Magic: sideFileMagic, Version: sideFileVersion, Domain: uint16(domain), Dimension: uint32(dim)}
	if err := binary.Write(w.bw, binary.LittleEndian, h); err != nil {
		f.Close()
		return nil, fmt.Errorf("smooth: writing header: %w", err)
	}

	return w, nil
}

// Dimension returns the record length.
func (w *Writer) Dimension() int { return w.dim }

// Count returns the number of records written.
func (w *Writer) Count() int { return w.count }

// Write appends one record.
func (w *Writer) Write(record []float64) error {
	if len(record) != w.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrRecordLength, len(record), w.dim)
	}

	for i, v := range record {
		binary.LittleEndian.PutUint64(w.buf[8*i:], math.Float64bits(v))
	}

	if _, err := w.bw.Write(w.buf); err != nil {
		return fmt.Errorf("smooth: writing record: %w", err)
	}

	w.count++

	return nil
}

// Close flushes the records, patches the record count and closes the file.
// Further calls are no-ops.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	err := w.bw.Flush()

	if err == nil {
		var cnt [4]byte
		binary.LittleEndian.PutUint32(cnt[:], uint32(w.count))
		_, err = w.f.WriteAt(cnt[:], countOffset)
	}

	if cerr := w.f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return fmt.Errorf("smooth: closing side file: %w", err)
	}

	return nil
}

// Reader serves the smoothed records of an apply pass in frame order.
type Reader struct {
	domain  Domain
	records [][]float64
	next    int
}

// Open reads the side file at path, checks that it holds exactly frames
// records of dim values in the given domain and smooths them over ±window
// neighbours.
func Open(path string, domain Domain, dim, frames, window int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSideFile, path)
		}

		return nil, fmt.Errorf("smooth: opening side file: %w", err)
	}
	defer f.Close()

	d, records, err := Decode(bufio.NewReader(f), dim, frames)
	if err != nil {
		return nil, err
	}

	if d != domain {
		return nil, fmt.Errorf("%w: domain %s, want %s", ErrBadHeader, d, domain)
	}

	return &Reader{domain: domain, records: MovingAverage(records, window)}, nil
}

// Decode reads a whole side file that must hold exactly count records of
// dim values. The header is checked before any record is allocated and
// bytes after the last record are rejected.
func Decode(r io.Reader, dim, count int) (Domain, [][]float64, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}

	if h.Magic != sideFileMagic || h.Version != sideFileVersion || h.Dimension == 0 {
		return 0, nil, fmt.Errorf("%w: magic %q version %d dimension %d", ErrBadHeader, h.Magic[:], h.Version, h.Dimension)
	}

	domain := Domain(h.Domain)
	if domain != DomainLSF && domain != DomainFilter {
		return 0, nil, fmt.Errorf("%w: domain %d", ErrBadHeader, h.Domain)
	}

	if int64(h.Dimension) != int64(dim) {
		return 0, nil, fmt.Errorf("%w: file has %d values per record, want %d", ErrRecordLength, h.Dimension, dim)
	}

	if int64(h.Count) != int64(count) {
		return 0, nil, fmt.Errorf("%w: %d records for %d frames", ErrRecordCount, h.Count, count)
	}

	records := make([][]float64, count)
	buf := make([]byte, 8*dim)

	for i := range records {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, nil, fmt.Errorf("%w: record %d of %d: %w", ErrRecordCount, i, count, err)
		}

		rec := make([]float64, dim)
		for d := range rec {
			rec[d] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*d:]))
		}

		records[i] = rec
	}

	if n, _ := io.ReadFull(r, buf[:1]); n != 0 {
		return 0, nil, fmt.Errorf("%w: trailing data after %d records", ErrRecordCount, count)
	}

	return domain, records, nil
}

// Domain returns the record domain.
func (r *Reader) Domain() Domain { return r.domain }

// Len returns the number of records.
func (r *Reader) Len() int { return len(r.records) }

// Next returns the smoothed record of the next frame.
func (r *Reader) Next() ([]float64, error) {
	if r.next >= len(r.records) {
		return nil, ErrExhausted
	}

	rec := r.records[r.next]
	r.next++

	return rec, nil
}
