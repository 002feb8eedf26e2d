package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-vconv/audio/wavio"
	"github.com/cwbudde/algo-vconv/dsp/dither"
	"github.com/cwbudde/algo-vconv/dsp/window"
	"github.com/cwbudde/algo-vconv/voice/analysis"
	"github.com/cwbudde/algo-vconv/voice/match"
	"github.com/cwbudde/algo-vconv/voice/smooth"
	"github.com/cwbudde/algo-vconv/voice/transform"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Load reads the YAML job file at path and returns a validated Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML job file from r and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns
// ErrInvalid joined with every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must be >= 0", cfg.Workers))
	}

	if len(cfg.Jobs) == 0 {
		errs = append(errs, errors.New("jobs: at least one job is required"))
	}

	names := make(map[string]int, len(cfg.Jobs))
	outputs := make(map[string]int, len(cfg.Jobs))

	for i, job := range cfg.Jobs {
		prefix := fmt.Sprintf("jobs[%d]", i)

		if job.Name != "" {
			if prev, ok := names[job.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of jobs[%d]", prefix, job.Name, prev))
			}
			names[job.Name] = i
		}

		if job.Output != "" {
			if prev, ok := outputs[job.Output]; ok {
				errs = append(errs, fmt.Errorf("%s.output %q is also written by jobs[%d]", prefix, job.Output, prev))
			}
			outputs[job.Output] = i
		}

		errs = append(errs, validateJob(prefix, &job)...)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func validateJob(prefix string, job *Job) []error {
	var errs []error

	if job.Input == "" {
		errs = append(errs, fmt.Errorf("%s.input is required", prefix))
	}
	if job.Output == "" {
		errs = append(errs, fmt.Errorf("%s.output is required", prefix))
	}

	// Pitch
	if job.Pitch.Contour != "" && job.Pitch.Marks != "" {
		errs = append(errs, fmt.Errorf("%s.pitch: contour and marks are mutually exclusive", prefix))
	}
	if job.Pitch.MinF0 < 0 || job.Pitch.MaxF0 < 0 || (job.Pitch.MaxF0 > 0 && job.Pitch.MinF0 >= job.Pitch.MaxF0) {
		errs = append(errs, fmt.Errorf("%s.pitch: F0 range [%v, %v] is invalid", prefix, job.Pitch.MinF0, job.Pitch.MaxF0))
	}

	// Framing
	if job.Framing.Mode != "" && !job.Framing.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("%s.framing.mode %q is invalid; valid values: pitch, fixed", prefix, job.Framing.Mode))
	}
	if job.Framing.Mode == FramingFixed && (job.Framing.WindowSize <= 0 || job.Framing.SkipSize <= 0) {
		errs = append(errs, fmt.Errorf("%s.framing: fixed mode requires window_size and skip_size > 0", prefix))
	}
	if job.Framing.Periods < 0 {
		errs = append(errs, fmt.Errorf("%s.framing.periods %d must be >= 0", prefix, job.Framing.Periods))
	}

	// Analysis
	errs = appendEnum(errs, prefix+".analysis.window", job.Analysis.Window, window.ParseType)
	errs = appendEnum(errs, prefix+".analysis.synthesis_window", job.Analysis.SynthesisWindow, window.ParseType)
	errs = appendEnum(errs, prefix+".analysis.lsf_scale", job.Analysis.LSFScale, analysis.ParseLSFScale)
	if job.Analysis.Order < 0 {
		errs = append(errs, fmt.Errorf("%s.analysis.order %d must be >= 0", prefix, job.Analysis.Order))
	}

	errs = append(errs, validateScales(prefix+".scales", job)...)

	// Labels
	if job.Labels.Context != nil && *job.Labels.Context < 0 {
		errs = append(errs, fmt.Errorf("%s.labels.context %d must be >= 0", prefix, *job.Labels.Context))
	}
	if job.Labels.Target != "" && job.Labels.Source == "" {
		errs = append(errs, fmt.Errorf("%s.labels: target labels require source labels", prefix))
	}

	errs = append(errs, validateMatcher(prefix+".matcher", job)...)
	errs = append(errs, validateSmoothing(prefix+".smoothing", job.Smoothing)...)

	// Output format
	errs = appendEnum(errs, prefix+".output_format.precision", job.Format.Precision, wavio.ParsePrecision)
	errs = appendEnum(errs, prefix+".output_format.endianness", job.Format.Endianness, wavio.ParseByteOrder)
	errs = appendEnum(errs, prefix+".output_format.dither", job.Format.Dither, dither.ParseType)
	errs = appendEnum(errs, prefix+".output_format.shaping", job.Format.Shaping, dither.ParseShaping)

	return errs
}

func validateScales(prefix string, job *Job) []error {
	var errs []error

	s := job.Scales
	constants := s.Pitch != nil || s.Time != nil || s.Energy != nil || s.VocalTract != nil

	sources := 0
	for _, set := range []bool{s.File != "", constants, s.Derive} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		errs = append(errs, fmt.Errorf("%s: file, constant values and derive are mutually exclusive", prefix))
	}

	for _, c := range []struct {
		name string
		v    *float64
	}{
		{"pitch", s.Pitch}, {"time", s.Time}, {"energy", s.Energy}, {"vocal_tract", s.VocalTract},
	} {
		if c.v != nil && (math.IsNaN(*c.v) || math.IsInf(*c.v, 0) || *c.v < 0) {
			errs = append(errs, fmt.Errorf("%s.%s %v must be finite and >= 0", prefix, c.name, *c.v))
		}
	}

	if s.Derive && job.Target.Input == "" && job.Target.Contour == "" && job.Labels.Target == "" {
		errs = append(errs, fmt.Errorf("%s.derive requires target.input, target.contour or labels.target", prefix))
	}
	if s.SkipSize < 0 {
		errs = append(errs, fmt.Errorf("%s.skip_size %v must be >= 0", prefix, s.SkipSize))
	}

	return errs
}

func validateMatcher(prefix string, job *Job) []error {
	var errs []error

	m := job.Matcher
	if m.Kind != "" {
		kind, err := match.ParseKind(m.Kind)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: identity, codebook, gmm, direct", prefix, m.Kind))
		case (kind == match.KindCodebook || kind == match.KindGMM) && m.Model == "":
			errs = append(errs, fmt.Errorf("%s.model is required for kind %q", prefix, m.Kind))
		case kind == match.KindDirect && job.Target.Input == "":
			errs = append(errs, fmt.Errorf("%s: kind direct requires target.input", prefix))
		}
	}

	if m.Best < 0 {
		errs = append(errs, fmt.Errorf("%s.best %d must be >= 0", prefix, m.Best))
	}

	errs = appendEnum(errs, prefix+".distance", m.Distance, match.ParseDistance)
	errs = appendEnum(errs, prefix+".filter_mode", m.FilterMode, transform.ParseMode)

	return errs
}

func validateSmoothing(prefix string, s SmoothingConfig) []error {
	var errs []error

	mode := strings.ToLower(strings.TrimSpace(s.Mode))
	if mode != SmoothingTwoPass {
		errs = appendEnum(errs, prefix+".mode", s.Mode, smooth.ParseMode)
	}

	if mode != "" && mode != "none" && s.SideFile == "" {
		errs = append(errs, fmt.Errorf("%s.side_file is required for mode %q", prefix, s.Mode))
	}

	errs = appendEnum(errs, prefix+".domain", s.Domain, smooth.ParseDomain)

	if s.Window < 0 {
		errs = append(errs, fmt.Errorf("%s.window %d must be >= 0", prefix, s.Window))
	}

	return errs
}

// appendEnum parses a non-empty enumeration value and records a failure.
func appendEnum[T any](errs []error, field, value string, parse func(string) (T, error)) []error {
	if value == "" {
		return errs
	}
	if _, err := parse(value); err != nil {
		return append(errs, fmt.Errorf("%s %q is invalid: %w", field, value, err))
	}
	return errs
}
