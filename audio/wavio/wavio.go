// Package wavio reads PCM WAV files into mono float samples and writes
// converted output back to WAV through a raw temporary stream.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-vconv/dsp/dither"
)

const wavFormatPCM = 1

var (
	// ErrInvalidFile is returned for files that are not readable WAV files.
	ErrInvalidFile = errors.New("wavio: not a valid WAV file")
	// ErrUnsupportedFormat is returned for non-PCM WAV encodings.
	ErrUnsupportedFormat = errors.New("wavio: unsupported WAV encoding")
	// ErrUnsupportedBitDepth is returned for bit depths other than 16, 24 or 32.
	ErrUnsupportedBitDepth = errors.New("wavio: unsupported bit depth")
)

// Format is the container format of a WAV file.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate checks that f can be written.
func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("wavio: invalid format %+v", f)
	}

	return checkBitDepth(f.BitDepth)
}

func checkBitDepth(bits int) error {
	switch bits {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bits)
	}
}

// Audio is a decoded file, downmixed to mono.
type Audio struct {
	Format
	// Samples are normalized to [-1, 1).
	Samples []float64
}

// Read decodes the WAV file at path.
func Read(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return a, nil
}

// Decode reads a PCM WAV stream. Multi-channel audio is averaged to mono.
func Decode(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	bits := int(d.BitDepth)
	if err := checkBitDepth(bits); err != nil {
		return nil, err
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	chans := max(1, int(d.NumChans))
	scale := 1 / math.Exp2(float64(bits-1))

	samples := make([]float64, len(buf.Data)/chans)
	for i := range samples {
		sum := 0
		for c := range chans {
			sum += buf.Data[i*chans+c]
		}

		samples[i] = float64(sum) * scale / float64(chans)
	}

	return &Audio{
		Format: Format{
			SampleRate: int(d.SampleRate),
			Channels:   chans,
			BitDepth:   bits,
		},
		Samples: samples,
	}, nil
}

// Encode writes mono samples to w as a WAV file in format, copying the
// signal to every channel. Samples are quantized with q, or with default
// triangular dither when q is nil.
func Encode(w io.WriteSeeker, samples []float64, format Format, q *dither.Quantizer) error {
	enc, err := newEncoder(w, format, q)
	if err != nil {
		return err
	}

	if err := enc.write(samples); err != nil {
		return err
	}

	return enc.close()
}

// Write writes mono samples to a new WAV file at path.
func Write(path string, samples []float64, format Format, q *dither.Quantizer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	if err := Encode(f, samples, format, q); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("wavio: %w", err)
	}

	return nil
}

type encoder struct {
	enc    *wav.Encoder
	format Format
	q      *dither.Quantizer
	ints   []int
	pcm    *audio.IntBuffer
}

// newEncoder returns an encoder for format. A nil q selects a default
// triangular-dither quantizer for the format's bit depth.
func newEncoder(w io.WriteSeeker, format Format, q *dither.Quantizer) (*encoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	if q == nil {
		var err error
		if q, err = dither.NewQuantizer(format.BitDepth); err != nil {
			return nil, fmt.Errorf("wavio: %w", err)
		}
	}

	if q.BitDepth() != format.BitDepth {
		return nil, fmt.Errorf("wavio: quantizer depth %d for %d-bit file", q.BitDepth(), format.BitDepth)
	}

	return &encoder{
		enc:    wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, wavFormatPCM),
		format: format,
		q:      q,
		pcm: &audio.IntBuffer{
			Format:         &audio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

func (e *encoder) write(samples []float64) error {
	if len(samples) == 0 {
		return nil
	}

	chans := e.format.Channels
	if cap(e.ints) < len(samples)*chans {
		e.ints = make([]int, len(samples)*chans)
	}

	data := e.ints[:len(samples)*chans]
	for i, x := range samples {
		v := e.q.Quantize(x)
		for c := range chans {
			data[i*chans+c] = v
		}
	}

	e.pcm.Data = data
	if err := e.enc.Write(e.pcm); err != nil {
		return fmt.Errorf("wavio: writing samples: %w", err)
	}

	return nil
}

func (e *encoder) close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("wavio: finishing file: %w", err)
	}

	return nil
}
