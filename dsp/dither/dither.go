// Package dither quantizes floating-point samples to integer PCM with
// optional dither noise and error-feedback noise shaping. It is used when
// converted audio is written back to integer WAV files.
package dither

import (
	"fmt"
	"strings"
)

// Type selects the probability distribution of the dither noise.
type Type int

const (
	// TypeNone rounds without dither.
	TypeNone Type = iota
	// TypeRectangular adds uniform noise of one LSB peak.
	TypeRectangular
	// TypeTriangular adds triangular (TPDF) noise.
	TypeTriangular
)

var typeNames = map[Type]string{
	TypeNone:        "none",
	TypeRectangular: "rectangular",
	TypeTriangular:  "triangular",
}

// String returns the lower-case type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("dither(%d)", int(t))
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType resolves a dither type name. "tpdf" is accepted for triangular.
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "tpdf" {
		n = "triangular"
	}

	for t, tn := range typeNames {
		if tn == n {
			return t, nil
		}
	}

	return 0, fmt.Errorf("dither: unknown dither type %q", name)
}
