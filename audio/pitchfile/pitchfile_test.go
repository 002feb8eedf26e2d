package pitchfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
)

func TestContourRoundTrip(t *testing.T) {
	c := pitchmark.Contour{
		SampleRate: 16000,
		WindowSize: 0.04,
		SkipSize:   0.01,
		Values:     []float64{0, 0, 101.5, 102, 0, 98.25},
	}

	path := filepath.Join(t.TempDir(), "a.ptc")
	if err := WriteContour(path, c); err != nil {
		t.Fatalf("WriteContour() error = %v", err)
	}

	got, err := ReadContour(path)
	if err != nil {
		t.Fatalf("ReadContour() error = %v", err)
	}

	if got.SampleRate != c.SampleRate || got.WindowSize != c.WindowSize || got.SkipSize != c.SkipSize {
		t.Fatalf("header = %+v, want %+v", got, c)
	}

	if len(got.Values) != len(c.Values) {
		t.Fatalf("len = %d, want %d", len(got.Values), len(c.Values))
	}

	for i := range c.Values {
		if got.Values[i] != c.Values[i] {
			t.Fatalf("value %d = %v, want %v", i, got.Values[i], c.Values[i])
		}
	}
}

func TestContourErrors(t *testing.T) {
	var buf bytes.Buffer

	c := pitchmark.Contour{SampleRate: 16000, WindowSize: 0.04, SkipSize: 0.01, Values: []float64{100, 100, 100}}
	if err := EncodeContour(&buf, c); err != nil {
		t.Fatalf("EncodeContour() error = %v", err)
	}

	full := buf.Bytes()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrBadHeader},
		{name: "short header", data: full[:10], want: ErrBadHeader},
		{name: "bad magic", data: append([]byte("XXXX"), full[4:]...), want: ErrBadHeader},
		{name: "truncated", data: full[:len(full)-4], want: ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeContour(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	bad := pitchmark.Contour{SampleRate: 0, SkipSize: 0.01, Values: []float64{1}}
	if err := EncodeContour(&buf, bad); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestMarksRoundTrip(t *testing.T) {
	m := &pitchmark.Marks{
		Positions:  []int{0, 160, 321, 480},
		Voiced:     []bool{false, true, true, true},
		F0:         []float64{100, 100, 99.4, 101.25},
		ZerosToPad: 2,
	}

	path := filepath.Join(t.TempDir(), "a.pm")
	if err := WriteMarks(path, m); err != nil {
		t.Fatalf("WriteMarks() error = %v", err)
	}

	got, err := ReadMarks(path)
	if err != nil {
		t.Fatalf("ReadMarks() error = %v", err)
	}

	if got.ZerosToPad != 2 || got.Len() != m.Len() {
		t.Fatalf("got %+v, want %+v", got, m)
	}

	for i := range m.Positions {
		if got.Positions[i] != m.Positions[i] || got.Voiced[i] != m.Voiced[i] || got.F0[i] != m.F0[i] {
			t.Fatalf("mark %d = (%d %v %v), want (%d %v %v)", i,
				got.Positions[i], got.Voiced[i], got.F0[i], m.Positions[i], m.Voiced[i], m.F0[i])
		}
	}
}

func TestDecodeMarks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{name: "comments", in: "; marks\n\n0 1 100\n160 1 100\n"},
		{name: "bad zeros", in: "zeros x\n0 1 100\n160 1 100\n", want: ErrBadHeader},
		{name: "short line", in: "0 1\n160 1 100\n", want: ErrMalformedLine},
		{name: "bad voicing", in: "0 maybe 100\n160 1 100\n", want: ErrMalformedLine},
		{name: "single mark", in: "0 1 100\n", want: pitchmark.ErrTooFewMarks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMarks(strings.NewReader(tt.in))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("error = %v", err)
				}

				return
			}

			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := DecodeMarks(strings.NewReader("160 1 100\n0 1 100\n")); err == nil {
		t.Fatal("expected error for decreasing positions")
	}
}
