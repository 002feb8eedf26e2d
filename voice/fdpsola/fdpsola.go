// Package fdpsola converts a voice recording frame by frame with
// frequency-domain pitch-synchronous overlap-add: every pitch-synchronous
// frame is analyzed into an all-pole envelope and an excitation residual,
// optionally mapped to a target voice, resampled to the new pitch period and
// overlap-added at the new hop, repeated or skipped as the duration schedule
// demands.
package fdpsola

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-vconv/dsp/core"
	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
	"github.com/cwbudde/algo-vconv/dsp/spectrum"
	"github.com/cwbudde/algo-vconv/dsp/window"
	"github.com/cwbudde/algo-vconv/voice/analysis"
	"github.com/cwbudde/algo-vconv/voice/frame"
	"github.com/cwbudde/algo-vconv/voice/label"
	"github.com/cwbudde/algo-vconv/voice/match"
	"github.com/cwbudde/algo-vconv/voice/ola"
	"github.com/cwbudde/algo-vconv/voice/scale"
	"github.com/cwbudde/algo-vconv/voice/schedule"
	"github.com/cwbudde/algo-vconv/voice/smooth"
	"github.com/cwbudde/algo-vconv/voice/transform"
)

// DefaultContextSize is the number of label neighbours on each side passed
// to the matcher.
const DefaultContextSize = 2

var (
	// ErrNoSamples is returned for an empty input buffer.
	ErrNoSamples = errors.New("fdpsola: empty input")
	// ErrInvalidSampleRate is returned for a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("fdpsola: sample rate must be > 0")
	// ErrNoMarks is returned in pitch-synchronous mode without pitch marks.
	ErrNoMarks = errors.New("fdpsola: pitch marks required")
)

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.log = l
		}
	}
}

// WithWindows sets the analysis and synthesis windows.
func WithWindows(analysisWin, synthesisWin window.Type) Option {
	return func(c *Converter) {
		c.analysisWin = analysisWin
		c.synthesisWin = synthesisWin
	}
}

// WithLSFScale selects the unit of the LSF features handed to the matcher.
func WithLSFScale(s analysis.LSFScale) Option {
	return func(c *Converter) { c.lsfScale = s }
}

// WithOrder overrides the LPC order derived from the sample rate.
func WithOrder(order int) Option {
	return func(c *Converter) { c.order = order }
}

// WithMatcher enables vocal tract transformation with m.
func WithMatcher(m match.Matcher) Option {
	return func(c *Converter) { c.matcher = m }
}

// WithFilterMode selects how matched envelopes become filters.
func WithFilterMode(m transform.Mode) Option {
	return func(c *Converter) { c.filterMode = m }
}

// WithSourceNormalization divides ratio filters by the matcher's source
// estimate instead of the analyzed frame.
func WithSourceNormalization(enabled bool) Option {
	return func(c *Converter) { c.normalizeSource = enabled }
}

// WithSmoothing enables a smoothing pass.
func WithSmoothing(cfg smooth.Config) Option {
	return func(c *Converter) { c.smoothing = cfg }
}

// WithFixedRate switches to fixed-rate framing with the given window and
// skip sizes in seconds. All fixed-rate frames count as unvoiced.
func WithFixedRate(windowSize, skipSize float64) Option {
	return func(c *Converter) {
		c.fixedWindow = windowSize
		c.fixedSkip = skipSize
	}
}

// WithPeriods sets the number of pitch periods per frame.
func WithPeriods(n int) Option {
	return func(c *Converter) { c.periods = n }
}

// WithContextSize sets the number of label neighbours on each side.
func WithContextSize(n int) Option {
	return func(c *Converter) { c.contextSize = n }
}

// Converter holds the conversion settings. A Converter carries no
// per-conversion state and may be shared between goroutines.
type Converter struct {
	log             *slog.Logger
	analysisWin     window.Type
	synthesisWin    window.Type
	lsfScale        analysis.LSFScale
	order           int
	matcher         match.Matcher
	filterMode      transform.Mode
	normalizeSource bool
	smoothing       smooth.Config
	fixedWindow     float64
	fixedSkip       float64
	periods         int
	contextSize     int
}

// New returns a converter with Hamming analysis and synthesis windows,
// Hz-scaled LSFs, three periods per frame and no vocal tract mapping.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{
		log:          slog.Default(),
		analysisWin:  window.TypeHamming,
		synthesisWin: window.TypeHamming,
		lsfScale:     analysis.ScaleHz,
		filterMode:   transform.ModeRatio,
		periods:      frame.DefaultPeriods,
		contextSize:  DefaultContextSize,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.periods <= 0 {
		return nil, fmt.Errorf("fdpsola: %w", frame.ErrInvalidPeriods)
	}

	if c.contextSize < 0 {
		return nil, fmt.Errorf("fdpsola: context size must be >= 0, got %d", c.contextSize)
	}

	if err := c.smoothing.Validate(); err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	return c, nil
}

// Input is one conversion job.
type Input struct {
	Samples    []float64
	SampleRate float64
	// Marks are the pitch marks over Samples. Ignored in fixed-rate mode.
	Marks *pitchmark.Marks
	// Scales holds the modification factors over time; nil means identity.
	Scales *scale.Schedule
	// Labels provide phonetic context to the matcher. Optional.
	Labels label.Sequence
}

// Result summarizes a finished conversion.
type Result struct {
	Frames    int
	Instances int
	Skipped   int
	Repeated  int
	// Written is the number of output samples handed to the sink.
	Written int
	// Requested is the requested output length in samples.
	Requested float64
}

type job struct {
	seg      *frame.Segmenter
	analyzer *analysis.Analyzer
	engine   *transform.Engine
	synth    *ola.Synthesizer
	sched    schedule.Scheduler
	scales   *scale.Schedule
	labels   label.Sequence
	writer   *smooth.Writer
	reader   *smooth.Reader
}

// Convert runs one conversion and writes the output to sink. The context is
// checked between frames; on cancellation the samples already written are
// valid output and the error wraps ctx.Err().
func (c *Converter) Convert(ctx context.Context, in Input, sink ola.Sink) (Result, error) {
	j, err := c.prepare(in, sink)
	if err != nil {
		return Result{}, err
	}

	if j.writer != nil {
		defer j.writer.Close()
	}

	c.log.Debug("conversion started",
		"samples", len(in.Samples),
		"sample_rate", in.SampleRate,
		"frames", j.seg.Len(),
		"order", j.analyzer.Order(),
		"ola_capacity", j.synth.Capacity(),
		"transform", c.matcher != nil,
		"smoothing", c.smoothing.Mode.String())

	var (
		res     Result
		lastHop = 1
	)

	for {
		if err := ctx.Err(); err != nil {
			res.Written = j.synth.Written()

			return res, fmt.Errorf("fdpsola: conversion interrupted after %d frames: %w", res.Frames, err)
		}

		f, ok := j.seg.Next()
		if !ok {
			break
		}

		sf, err := c.synthesize(j, f)
		if err != nil {
			res.Written = j.synth.Written()

			return res, fmt.Errorf("fdpsola: frame %d: %w", f.Index, err)
		}

		step := schedule.Step{
			Period:    float64(f.Period),
			NewPeriod: float64(sf.hop),
			TimeScale: sf.params.Time,
			Last:      f.Last,
		}
		if f.Last {
			step.TailRequested, step.TailProduced = schedule.Tail(f.Size, f.Period, len(sf.samples), sf.hop, f.Size-f.Valid, sf.params.Time)
		}

		d := j.sched.Next(step)

		for k := range d.Count {
			if err := j.synth.Emit(sf.samples, sf.hop, d.Finalize && k == d.Count-1, sf.tapered); err != nil {
				res.Written = j.synth.Written()

				return res, fmt.Errorf("fdpsola: frame %d: %w", f.Index, err)
			}
		}

		res.Frames++
		res.Instances += d.Count

		switch d.State {
		case schedule.StateSkip:
			res.Skipped++
		case schedule.StateRepeat:
			res.Repeated++
		}

		lastHop = sf.hop
	}

	if err := c.finish(j, sink, len(in.Samples), lastHop); err != nil {
		res.Written = j.synth.Written()

		return res, err
	}

	if j.writer != nil {
		if err := j.writer.Close(); err != nil {
			return res, fmt.Errorf("fdpsola: %w", err)
		}

		c.log.Debug("smoothing records written", "path", c.smoothing.Path, "records", j.writer.Count())
	}

	res.Written = j.synth.Written()
	res.Requested = j.sched.Requested()

	c.log.Info("conversion finished",
		"frames", res.Frames,
		"instances", res.Instances,
		"repeated", res.Repeated,
		"skipped", res.Skipped,
		"written", res.Written)

	return res, nil
}

func (c *Converter) prepare(in Input, sink ola.Sink) (*job, error) {
	if len(in.Samples) == 0 {
		return nil, ErrNoSamples
	}

	if !(in.SampleRate > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, in.SampleRate)
	}

	if sink == nil {
		return nil, errors.New("fdpsola: nil sink")
	}

	scales := in.Scales
	if scales == nil {
		scales = scale.Constant(scale.Identity())
	}

	if err := scales.Validate(); err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	seg, err := c.segmenter(in)
	if err != nil {
		return nil, err
	}

	analyzer, err := c.newAnalyzer(in.SampleRate)
	if err != nil {
		return nil, err
	}

	synth, err := ola.New(ola.Capacity(seg.MaxSize(), scale.MinPitch), sink, c.synthesisWin, c.analysisWin)
	if err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	j := &job{
		seg:      seg,
		analyzer: analyzer,
		engine:   transform.New(analyzer, c.filterMode, c.normalizeSource),
		synth:    synth,
		scales:   scales,
		labels:   in.Labels,
	}

	switch c.smoothing.Mode {
	case smooth.ModeEstimate:
		j.writer, err = smooth.Create(c.smoothing.Path, c.smoothing.Domain, c.recordDim(analyzer))
	case smooth.ModeApply:
		j.reader, err = smooth.Open(c.smoothing.Path, c.smoothing.Domain, c.recordDim(analyzer), seg.Len(), c.smoothing.Window)
	}

	if err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	return j, nil
}

func (c *Converter) newAnalyzer(fs float64) (*analysis.Analyzer, error) {
	opts := []analysis.Option{analysis.WithWindow(c.analysisWin), analysis.WithLSFScale(c.lsfScale)}
	if c.order > 0 {
		opts = append(opts, analysis.WithOrder(c.order))
	}

	a, err := analysis.New(fs, opts...)
	if err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	return a, nil
}

func (c *Converter) segmenter(in Input) (*frame.Segmenter, error) {
	if c.fixedSkip > 0 {
		seg, err := frame.NewFixedRate(in.Samples, in.SampleRate, c.fixedWindow, c.fixedSkip)
		if err != nil {
			return nil, fmt.Errorf("fdpsola: %w", err)
		}

		return seg, nil
	}

	if in.Marks == nil {
		return nil, ErrNoMarks
	}

	seg, err := frame.NewPitchSynchronous(in.Samples, in.SampleRate, in.Marks, c.periods)
	if err != nil {
		return nil, fmt.Errorf("fdpsola: %w", err)
	}

	return seg, nil
}

func (c *Converter) recordDim(a *analysis.Analyzer) int {
	if c.smoothing.Domain == smooth.DomainFilter {
		return c.smoothing.FilterBins
	}

	return a.Order()
}

// synthesized is one output frame and its output hop.
type synthesized struct {
	samples []float64
	hop     int
	params  scale.Params
	// tapered is set while samples still carry the analysis window.
	tapered bool
}

// synthesize turns one input frame into its output frame and output hop.
func (c *Converter) synthesize(j *job, f frame.Frame) (synthesized, error) {
	p := j.scales.At(f.Time)
	if !f.Voiced {
		p = p.Unvoiced()
	}

	sf := synthesized{
		hop:    max(1, int(math.Round(float64(f.Period)/p.Pitch))),
		params: p,
	}

	var inEnergy float64

	if !f.Voiced && c.matcher == nil && p.VocalTract == 1 && c.smoothing.Mode == smooth.ModeNone {
		sf.samples = make([]float64, f.Size)
		copy(sf.samples, f.Samples)
		window.Apply(c.analysisWin, sf.samples)
		sf.tapered = true
		inEnergy = core.Energy(sf.samples)
	} else {
		res, err := j.analyzer.Analyze(minimalFrame(f.Samples, j.analyzer.MinFrameSize()))
		if err != nil {
			return sf, err
		}

		newSize := core.EvenSize(int(math.Round(float64(f.Size)/p.Pitch)), frame.MinSize)

		filter, err := c.filter(j, f, res, newSize, p.VocalTract)
		if err != nil {
			return sf, err
		}

		sf.samples = j.engine.Apply(res, filter, newSize)
		sf.tapered = res.Size() == newSize
		inEnergy = res.Energy
	}

	if g := ola.Gain(inEnergy, f.Size, sf.samples, p.Energy); g != 1 {
		vecmath.ScaleBlock(sf.samples, sf.samples, g)
	}

	return sf, nil
}

// minimalFrame centres frames shorter than size in a zero-padded buffer of
// size samples, so that clusters of marks closer than the prediction order
// still analyze.
func minimalFrame(samples []float64, size int) []float64 {
	if len(samples) >= size {
		return samples
	}

	out := make([]float64, size)
	core.PaddedCopy(out, samples, -(size-len(samples))/2)

	return out
}

// filter returns the vocal tract filter of one frame, or nil when the
// analyzed envelope is kept unchanged.
func (c *Converter) filter(j *job, f frame.Frame, res *analysis.Result, newSize int, vscale float64) ([]float64, error) {
	if c.matcher == nil && vscale == 1 && c.smoothing.Mode == smooth.ModeNone {
		return nil, nil
	}

	m := match.Result{Target: res.Features}
	if c.matcher != nil {
		q := match.Query{Features: res.Features, Time: f.Time}
		if len(j.labels) > 0 {
			q.Context = j.labels.ContextAt(f.Time, c.contextSize)
		}

		var err error
		if m, err = c.matcher.Match(q); err != nil {
			return nil, err
		}
	}

	lsfDomain := c.smoothing.Domain == smooth.DomainLSF

	switch {
	case lsfDomain && j.writer != nil:
		if err := j.writer.Write(m.Target); err != nil {
			return nil, err
		}
	case lsfDomain && j.reader != nil:
		rec, err := j.reader.Next()
		if err != nil {
			return nil, err
		}

		m.Target = rec
	}

	filter := j.engine.Filter(res, res.Features, m, newSize, vscale)

	switch {
	case !lsfDomain && j.writer != nil:
		if err := j.writer.Write(spectrum.Resample(filter, c.smoothing.FilterBins)); err != nil {
			return nil, err
		}
	case !lsfDomain && j.reader != nil:
		rec, err := j.reader.Next()
		if err != nil {
			return nil, err
		}

		filter = spectrum.Resample(rec, len(filter))
	}

	return filter, nil
}

// finish drains the overlap ring. Unity-duration output is fitted to the
// input length when the sink supports it; otherwise the output is capped one
// hop past the requested length.
func (c *Converter) finish(j *job, sink ola.Sink, inputLen, lastHop int) error {
	if j.scales.IsUnityDuration() {
		if err := j.synth.Finish(0); err != nil {
			return fmt.Errorf("fdpsola: %w", err)
		}

		fitter, ok := sink.(ola.Fitter)
		if !ok {
			c.log.Debug("sink cannot be fitted to the input length", "written", j.synth.Written(), "input", inputLen)
			return nil
		}

		if err := fitter.Fit(inputLen); err != nil {
			return fmt.Errorf("fdpsola: fitting output: %w", err)
		}

		return nil
	}

	limit := int(math.Ceil(j.sched.Requested())) + lastHop
	if err := j.synth.Finish(limit); err != nil {
		return fmt.Errorf("fdpsola: %w", err)
	}

	return nil
}
