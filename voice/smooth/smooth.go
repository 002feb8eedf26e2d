// Package smooth implements the two-pass temporal smoothing protocol of the
// transformation filters. An estimate pass writes one record per frame to a
// side file; an apply pass reads the same number of records back and
// replaces every frame's record with a moving average over its neighbours.
//
// Records hold either LSF vectors or filter magnitudes resampled to a fixed
// number of bins. The side file is a small header followed by little-endian
// float64 records.
package smooth

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultFilterBins is the record length of filter-domain side files.
	DefaultFilterBins = 257
	// DefaultWindow is the number of neighbours averaged on each side.
	DefaultWindow = 4
)

var (
	// ErrMissingSideFile is returned when the apply pass finds no side file.
	ErrMissingSideFile = errors.New("smooth: side file missing")
	// ErrBadHeader is returned for side files with a wrong magic, version or domain.
	ErrBadHeader = errors.New("smooth: bad side file header")
	// ErrRecordCount is returned when the side file does not hold one record per frame.
	ErrRecordCount = errors.New("smooth: record count does not match frame count")
	// ErrRecordLength is returned for records of the wrong dimension.
	ErrRecordLength = errors.New("smooth: record length mismatch")
	// ErrExhausted is returned when more records are requested than the file holds.
	ErrExhausted = errors.New("smooth: no records left")
)

// Mode selects the pass.
type Mode int

const (
	ModeNone Mode = iota
	ModeEstimate
	ModeApply
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeEstimate:
		return "estimate"
	case ModeApply:
		return "apply"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode resolves "none", "estimate" or "apply".
func ParseMode(name string) (Mode, error) {
	for _, m := range []Mode{ModeNone, ModeEstimate, ModeApply} {
		if strings.EqualFold(strings.TrimSpace(name), m.String()) {
			return m, nil
		}
	}

	if strings.TrimSpace(name) == "" {
		return ModeNone, nil
	}

	return 0, fmt.Errorf("smooth: unknown mode %q", name)
}

// Domain selects what is smoothed.
type Domain int

const (
	// DomainLSF smooths the target LSF vectors before they become envelopes.
	DomainLSF Domain = iota
	// DomainFilter smooths the filter magnitudes.
	DomainFilter
)

func (d Domain) String() string {
	switch d {
	case DomainLSF:
		return "lsf"
	case DomainFilter:
		return "filter"
	default:
		return fmt.Sprintf("domain(%d)", int(d))
	}
}

// ParseDomain resolves "lsf" or "filter".
func ParseDomain(name string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lsf", "":
		return DomainLSF, nil
	case "filter":
		return DomainFilter, nil
	default:
		return 0, fmt.Errorf("smooth: unknown domain %q", name)
	}
}

// Config describes one smoothing pass.
type Config struct {
	Mode   Mode
	Domain Domain
	// Path is the side file.
	Path string
	// Window is the number of neighbours averaged on each side.
	Window int
	// FilterBins is the filter-domain record length.
	FilterBins int
}

// Validate checks the config and fills defaults.
func (c *Config) Validate() error {
	if c.Mode == ModeNone {
		return nil
	}

	if c.Path == "" {
		return fmt.Errorf("smooth: %s pass needs a side file path", c.Mode)
	}

	if c.Window <= 0 {
		c.Window = DefaultWindow
	}

	if c.FilterBins <= 1 {
		c.FilterBins = DefaultFilterBins
	}

	return nil
}

// MovingAverage returns records averaged sample by sample over the frames
// i-window..i+window, truncated at the sequence ends.
func MovingAverage(records [][]float64, window int) [][]float64 {
	out := make([][]float64, len(records))

	for i := range records {
		lo := max(0, i-window)
		hi := min(len(records)-1, i+window)

		avg := make([]float64, len(records[i]))
		for j := lo; j <= hi; j++ {
			for d := range avg {
				avg[d] += records[j][d]
			}
		}

		n := float64(hi - lo + 1)
		for d := range avg {
			avg[d] /= n
		}

		out[i] = avg
	}

	return out
}
