// Package config defines the YAML job file of the vconv command.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// FramingMode selects pitch-synchronous or fixed-rate framing.
type FramingMode string

const (
	FramingPitch FramingMode = "pitch"
	FramingFixed FramingMode = "fixed"
)

// IsValid reports whether m is a recognised framing mode.
func (m FramingMode) IsValid() bool {
	return m == FramingPitch || m == FramingFixed
}

// SmoothingTwoPass runs an estimate pass followed by an apply pass.
const SmoothingTwoPass = "two-pass"

// Config is the root of a job file.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// Workers bounds the number of jobs converted in parallel. Zero means
	// one worker per job.
	Workers int `yaml:"workers"`

	// TempDir holds the raw output streams. Empty means the system default.
	TempDir string `yaml:"temp_dir"`

	Jobs []Job `yaml:"jobs"`
}

// Job is one conversion.
type Job struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	Pitch     PitchConfig     `yaml:"pitch"`
	Framing   FramingConfig   `yaml:"framing"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scales    ScalesConfig    `yaml:"scales"`
	Labels    LabelsConfig    `yaml:"labels"`
	Target    TargetConfig    `yaml:"target"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Smoothing SmoothingConfig `yaml:"smoothing"`
	Format    FormatConfig    `yaml:"output_format"`
}

// PitchConfig names the pitch source. Without a contour or marks file the
// F0 is tracked from the input within [MinF0, MaxF0].
type PitchConfig struct {
	Contour string  `yaml:"contour"`
	Marks   string  `yaml:"marks"`
	MinF0   float64 `yaml:"min_f0"`
	MaxF0   float64 `yaml:"max_f0"`
}

// FramingConfig selects the frame segmentation.
type FramingConfig struct {
	Mode FramingMode `yaml:"mode"`
	// Periods per pitch-synchronous frame.
	Periods int `yaml:"periods"`
	// WindowSize and SkipSize in seconds for fixed-rate framing.
	WindowSize float64 `yaml:"window_size"`
	SkipSize   float64 `yaml:"skip_size"`
}

// AnalysisConfig selects windows, LSF unit and LPC order.
type AnalysisConfig struct {
	Window          string `yaml:"window"`
	SynthesisWindow string `yaml:"synthesis_window"`
	LSFScale        string `yaml:"lsf_scale"`
	Order           int    `yaml:"order"`
}

// ScalesConfig gives the modification factors: a scale file, constant
// values or a schedule derived from the target recording.
type ScalesConfig struct {
	File       string   `yaml:"file"`
	Pitch      *float64 `yaml:"pitch"`
	Time       *float64 `yaml:"time"`
	Energy     *float64 `yaml:"energy"`
	VocalTract *float64 `yaml:"vocal_tract"`

	// Derive builds the schedule from the target recording, labels and
	// contours every SkipSize seconds.
	Derive   bool    `yaml:"derive"`
	SkipSize float64 `yaml:"skip_size"`
}

// LabelsConfig names the phoneme label files.
type LabelsConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`

	// Context is the number of neighbouring labels on each side handed to
	// the matcher. Unset, a codebook's own context size is used.
	Context *int `yaml:"context"`
}

// TargetConfig describes a parallel target recording.
type TargetConfig struct {
	Input   string `yaml:"input"`
	Contour string `yaml:"contour"`
}

// MatcherConfig selects the vocal tract mapping.
type MatcherConfig struct {
	// Kind is empty for no vocal tract mapping.
	Kind                string `yaml:"kind"`
	Model               string `yaml:"model"`
	Best                int    `yaml:"best"`
	Distance            string `yaml:"distance"`
	ContextPreselection bool   `yaml:"context_preselection"`
	FilterMode          string `yaml:"filter_mode"`
	NormalizeSource     bool   `yaml:"normalize_source"`
}

// SmoothingConfig selects the smoothing pass.
type SmoothingConfig struct {
	// Mode is none, estimate, apply or two-pass.
	Mode     string `yaml:"mode"`
	Domain   string `yaml:"domain"`
	SideFile string `yaml:"side_file"`
	Window   int    `yaml:"window"`
}

// FormatConfig controls the raw output stream and the final quantization.
type FormatConfig struct {
	Precision  string `yaml:"precision"`
	Endianness string `yaml:"endianness"`
	Dither     string `yaml:"dither"`
	Shaping    string `yaml:"shaping"`
}
