package match

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadCodebook reads a JSON codebook from path.
func LoadCodebook(path string) (*Codebook, error) {
	var cb Codebook
	if err := loadJSON(path, &cb); err != nil {
		return nil, err
	}

	if err := cb.Validate(); err != nil {
		return nil, err
	}

	return &cb, nil
}

// LoadGMM reads a JSON mixture model from path.
func LoadGMM(path string) (*GMM, error) {
	var g GMM
	if err := loadJSON(path, &g); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}

// DecodeCodebook parses a JSON codebook.
func DecodeCodebook(r io.Reader) (*Codebook, error) {
	var cb Codebook
	if err := decodeJSON(r, &cb); err != nil {
		return nil, err
	}

	if err := cb.Validate(); err != nil {
		return nil, err
	}

	return &cb, nil
}

// DecodeGMM parses a JSON mixture model.
func DecodeGMM(r io.Reader) (*GMM, error) {
	var g GMM
	if err := decodeJSON(r, &g); err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &g, nil
}

// Save writes a model (codebook or GMM) as indented JSON.
func Save(w io.Writer, model any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(model); err != nil {
		return fmt.Errorf("match: encoding model: %w", err)
	}

	return nil
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("match: opening model: %w", err)
	}
	defer f.Close()

	return decodeJSON(f, v)
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("match: decoding model: %w", err)
	}

	return nil
}
