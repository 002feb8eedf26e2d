package scale

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML scale schedule from path.
func Load(path string) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scale: opening schedule: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a YAML schedule of the form
//
//	skip_size: 0.01
//	pitch: [1.0, 1.1, ...]
//	time: [...]
//	energy: [...]
//	vocal_tract: [...]
//
// Unknown keys are rejected.
func Decode(r io.Reader) (*Schedule, error) {
	var s Schedule

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scale: decoding schedule: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Encode writes s as YAML.
func Encode(w io.Writer, s *Schedule) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("scale: encoding schedule: %w", err)
	}

	return nil
}
