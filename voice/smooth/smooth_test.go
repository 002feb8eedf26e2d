package smooth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeSideFile(t *testing.T, domain Domain, records [][]float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "smooth.bin")

	w, err := Create(path, domain, len(records[0]))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if w.Count() != len(records) {
		t.Fatalf("Count() = %d, want %d", w.Count(), len(records))
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	return path
}

func TestMovingAverage(t *testing.T) {
	in := [][]float64{{0, 10}, {3, 10}, {6, 10}, {9, 10}}
	out := MovingAverage(in, 1)

	want := [][]float64{{1.5, 10}, {3, 10}, {6, 10}, {7.5, 10}}
	for i := range want {
		for d := range want[i] {
			if math.Abs(out[i][d]-want[i][d]) > 1e-12 {
				t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
			}
		}
	}

	if in[0][0] != 0 {
		t.Fatal("MovingAverage modified its input")
	}
}

func TestSideFileRoundTrip(t *testing.T) {
	records := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	path := writeSideFile(t, DomainFilter, records)

	r, err := Open(path, DomainFilter, 3, 3, 1)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if r.Len() != 3 || r.Domain() != DomainFilter {
		t.Fatalf("Len() = %d, Domain() = %v", r.Len(), r.Domain())
	}

	want := [][]float64{{2.5, 3.5, 4.5}, {4, 5, 6}, {5.5, 6.5, 7.5}}
	for i := range want {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}

		for d := range rec {
			if math.Abs(rec[d]-want[i][d]) > 1e-12 {
				t.Fatalf("record %d = %v, want %v", i, rec, want[i])
			}
		}
	}

	if _, err := r.Next(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
}

func TestOpenErrors(t *testing.T) {
	path := writeSideFile(t, DomainLSF, [][]float64{{1}, {2}})

	if _, err := Open(path, DomainLSF, 1, 3, 1); !errors.Is(err, ErrRecordCount) {
		t.Fatalf("error = %v, want ErrRecordCount", err)
	}

	if _, err := Open(path, DomainFilter, 1, 2, 1); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("error = %v, want ErrBadHeader", err)
	}

	if _, err := Open(path, DomainLSF, 18, 2, 1); !errors.Is(err, ErrRecordLength) {
		t.Fatalf("other order: error = %v, want ErrRecordLength", err)
	}

	missing := filepath.Join(t.TempDir(), "none.bin")
	if _, err := Open(missing, DomainLSF, 1, 2, 1); !errors.Is(err, ErrMissingSideFile) {
		t.Fatalf("error = %v, want ErrMissingSideFile", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if _, _, err := Decode(bytes.NewReader(data[:len(data)-4]), 1, 2); !errors.Is(err, ErrRecordCount) {
		t.Fatalf("truncated: error = %v, want ErrRecordCount", err)
	}

	trailing := append(append([]byte(nil), data...), make([]byte, 8)...)
	if _, _, err := Decode(bytes.NewReader(trailing), 1, 2); !errors.Is(err, ErrRecordCount) {
		t.Fatalf("trailing record: error = %v, want ErrRecordCount", err)
	}

	bad := append([]byte("XXXX"), data[4:]...)
	if _, _, err := Decode(bytes.NewReader(bad), 1, 2); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("bad magic: error = %v, want ErrBadHeader", err)
	}
}

func TestDecodeChecksHeaderBeforeAllocating(t *testing.T) {
	path := writeSideFile(t, DomainLSF, [][]float64{{1, 2}})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	// Claim 2^32-1 records of 2^32-1 values each.
	huge := append([]byte(nil), data...)
	binary.LittleEndian.PutUint32(huge[8:], math.MaxUint32)
	binary.LittleEndian.PutUint32(huge[countOffset:], math.MaxUint32)

	if _, _, err := Decode(bytes.NewReader(huge), 2, 1); !errors.Is(err, ErrRecordLength) {
		t.Fatalf("huge dimension: error = %v, want ErrRecordLength", err)
	}

	binary.LittleEndian.PutUint32(huge[8:], 2)
	if _, _, err := Decode(bytes.NewReader(huge), 2, 1); !errors.Is(err, ErrRecordCount) {
		t.Fatalf("huge count: error = %v, want ErrRecordCount", err)
	}
}

func TestWriterRejectsWrongLength(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "x.bin"), DomainLSF, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer w.Close()

	if err := w.Write([]float64{1}); !errors.Is(err, ErrRecordLength) {
		t.Fatalf("error = %v, want ErrRecordLength", err)
	}
}

func TestConfigAndParsing(t *testing.T) {
	c := Config{Mode: ModeApply, Path: "x"}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if c.Window != DefaultWindow || c.FilterBins != DefaultFilterBins {
		t.Fatalf("defaults not filled: %+v", c)
	}

	if err := (&Config{Mode: ModeEstimate}).Validate(); err == nil {
		t.Fatal("expected error without path")
	}

	if m, err := ParseMode("Estimate"); err != nil || m != ModeEstimate {
		t.Fatalf("ParseMode() = %v, %v", m, err)
	}

	if d, err := ParseDomain("filter"); err != nil || d != DomainFilter {
		t.Fatalf("ParseDomain() = %v, %v", d, err)
	}

	if _, err := ParseDomain("cepstrum"); err == nil {
		t.Fatal("expected error")
	}
}
