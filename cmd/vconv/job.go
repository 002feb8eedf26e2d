package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwbudde/algo-vconv/audio/pitchfile"
	"github.com/cwbudde/algo-vconv/audio/wavio"
	"github.com/cwbudde/algo-vconv/dsp/dither"
	"github.com/cwbudde/algo-vconv/dsp/f0"
	"github.com/cwbudde/algo-vconv/dsp/pitchmark"
	"github.com/cwbudde/algo-vconv/dsp/resample"
	"github.com/cwbudde/algo-vconv/dsp/window"
	"github.com/cwbudde/algo-vconv/internal/config"
	"github.com/cwbudde/algo-vconv/stats/level"
	"github.com/cwbudde/algo-vconv/voice/analysis"
	"github.com/cwbudde/algo-vconv/voice/fdpsola"
	"github.com/cwbudde/algo-vconv/voice/label"
	"github.com/cwbudde/algo-vconv/voice/match"
	"github.com/cwbudde/algo-vconv/voice/ola"
	"github.com/cwbudde/algo-vconv/voice/scale"
	"github.com/cwbudde/algo-vconv/voice/smooth"
	"github.com/cwbudde/algo-vconv/voice/transform"
)

const defaultDeriveSkip = 0.01

// discard drops the output of an estimate-only smoothing pass.
type discard struct{}

func (discard) Write([]float64) error { return nil }

var _ ola.Sink = discard{}

// recording is one decoded file with its pitch information.
type recording struct {
	audio   *wavio.Audio
	contour *pitchmark.Contour
	marks   *pitchmark.Marks
}

func (r *recording) input() fdpsola.Input {
	return fdpsola.Input{
		Samples:    r.audio.Samples,
		SampleRate: float64(r.audio.SampleRate),
		Marks:      r.marks,
	}
}

func runJob(ctx context.Context, cfg *config.Config, job config.Job, log *slog.Logger) error {
	src, err := loadRecording(job.Input, job.Pitch.Contour, job.Pitch.Marks, job.Pitch, 0, log)
	if err != nil {
		return err
	}

	log.Info("input loaded",
		"path", job.Input,
		"samples", len(src.audio.Samples),
		"sample_rate", src.audio.SampleRate,
		"channels", src.audio.Channels,
		"bits", src.audio.BitDepth,
		"marks", src.marks.Len())

	var tgt *recording
	if job.Target.Input != "" {
		if tgt, err = loadRecording(job.Target.Input, job.Target.Contour, "", job.Pitch, src.audio.SampleRate, log); err != nil {
			return err
		}
	}

	srcLabels, alignment, err := loadLabels(job.Labels)
	if err != nil {
		return err
	}

	in := src.input()
	in.Labels = srcLabels

	if in.Scales, err = loadScales(job, src, tgt, alignment); err != nil {
		return err
	}

	opts, err := converterOptions(job, log)
	if err != nil {
		return err
	}

	if job.Matcher.Kind != "" {
		m, err := buildMatcher(ctx, job, opts, tgt, alignment)
		if err != nil {
			return err
		}

		opts = append(opts, fdpsola.WithMatcher(m))

		if cm, ok := m.(*match.CodebookMatcher); ok {
			opts = append(opts, fdpsola.WithContextSize(cm.ContextSize()))
		}
	}

	smoothing, err := smoothingConfig(job.Smoothing)
	if err != nil {
		return err
	}

	if strings.EqualFold(job.Smoothing.Mode, config.SmoothingTwoPass) {
		estimate := smoothing
		estimate.Mode = smooth.ModeEstimate

		if err := convertOnce(ctx, in, append(opts, fdpsola.WithSmoothing(estimate)), discard{}); err != nil {
			return fmt.Errorf("estimate pass: %w", err)
		}

		log.Debug("smoothing estimate pass done", "side_file", smoothing.Path)
		smoothing.Mode = smooth.ModeApply
	}

	opts = append(opts, fdpsola.WithSmoothing(smoothing))

	return writeOutput(ctx, cfg, job, in, opts, src.audio.Format, log)
}

func convertOnce(ctx context.Context, in fdpsola.Input, opts []fdpsola.Option, sink ola.Sink) error {
	conv, err := fdpsola.New(opts...)
	if err != nil {
		return err
	}

	_, err = conv.Convert(ctx, in, sink)
	return err
}

func writeOutput(ctx context.Context, cfg *config.Config, job config.Job, in fdpsola.Input, opts []fdpsola.Option, format wavio.Format, log *slog.Logger) error {
	precision, err := wavio.ParsePrecision(job.Format.Precision)
	if err != nil {
		return err
	}

	order, err := wavio.ParseByteOrder(job.Format.Endianness)
	if err != nil {
		return err
	}

	q, err := quantizer(job.Format, format.BitDepth)
	if err != nil {
		return err
	}

	stream, err := wavio.NewRawStream(cfg.TempDir, precision, order)
	if err != nil {
		return err
	}
	defer stream.Close()

	conv, err := fdpsola.New(opts...)
	if err != nil {
		return err
	}

	res, err := conv.Convert(ctx, in, stream)
	if err != nil {
		return err
	}

	out, err := stream.Levels()
	if err != nil {
		return err
	}

	if out.Clipped > 0 {
		log.Warn("output clips", "samples", out.Clipped, "peak_db", out.PeakdB)
	}

	if err := stream.Finalize(job.Output, format, q); err != nil {
		return err
	}

	log.Info("output written",
		"path", job.Output,
		"samples", stream.Len(),
		"frames", res.Frames,
		"repeated", res.Repeated,
		"skipped", res.Skipped,
		"in_rms_db", level.Measure(in.Samples).RMSdB,
		"out_rms_db", out.RMSdB,
		"out_peak_db", out.PeakdB)

	return nil
}

func quantizer(f config.FormatConfig, bits int) (*dither.Quantizer, error) {
	opts := []dither.Option{}

	if f.Dither != "" {
		t, err := dither.ParseType(f.Dither)
		if err != nil {
			return nil, err
		}

		opts = append(opts, dither.WithType(t))
	}

	if f.Shaping != "" {
		s, err := dither.ParseShaping(f.Shaping)
		if err != nil {
			return nil, err
		}

		opts = append(opts, dither.WithShaping(s))
	}

	return dither.NewQuantizer(bits, opts...)
}

// loadRecording reads a WAV file and its pitch: a mark file, a contour file
// or a contour tracked from the audio. A non-zero rate resamples the audio
// first.
func loadRecording(path, contourPath, marksPath string, pc config.PitchConfig, rate int, log *slog.Logger) (*recording, error) {
	a, err := wavio.Read(path)
	if err != nil {
		return nil, err
	}

	if rate > 0 && a.SampleRate != rate {
		if a.Samples, err = resample.Convert(a.Samples, float64(a.SampleRate), float64(rate)); err != nil {
			return nil, fmt.Errorf("resample %q: %w", path, err)
		}

		log.Debug("resampled", "path", path, "from", a.SampleRate, "to", rate)
		a.SampleRate = rate
	}

	r := &recording{audio: a}
	fs := float64(a.SampleRate)

	if marksPath != "" {
		if r.marks, err = pitchfile.ReadMarks(marksPath); err != nil {
			return nil, err
		}

		return r, nil
	}

	var c pitchmark.Contour

	if contourPath != "" {
		if c, err = pitchfile.ReadContour(contourPath); err != nil {
			return nil, err
		}
	} else {
		tracker, err := f0.NewTracker(fs, f0.WithRange(pc.MinF0, pc.MaxF0))
		if err != nil {
			return nil, err
		}

		if c, err = tracker.Track(a.Samples); err != nil {
			return nil, err
		}

		log.Debug("F0 tracked", "path", path, "frames", len(c.Values))
	}

	// Marks are placed in audio samples whatever rate the contour was tracked at.
	c.SampleRate = fs

	r.contour = &c

	if r.marks, err = pitchmark.FromContour(c, len(a.Samples), true, 0); err != nil {
		return nil, err
	}

	return r, nil
}

func loadLabels(lc config.LabelsConfig) (label.Sequence, *label.Alignment, error) {
	if lc.Source == "" {
		return nil, nil, nil
	}

	src, err := label.Load(lc.Source)
	if err != nil {
		return nil, nil, err
	}

	if lc.Target == "" {
		return src, nil, nil
	}

	tgt, err := label.Load(lc.Target)
	if err != nil {
		return nil, nil, err
	}

	alignment, err := label.Align(src, tgt)
	if err != nil {
		return nil, nil, err
	}

	return src, alignment, nil
}

func loadScales(job config.Job, src, tgt *recording, alignment *label.Alignment) (*scale.Schedule, error) {
	s := job.Scales

	switch {
	case s.File != "":
		return scale.Load(s.File)
	case s.Derive:
		skip := s.SkipSize
		if skip == 0 {
			skip = defaultDeriveSkip
		}

		tg := scale.Targets{
			Alignment:  alignment,
			SourceF0:   src.contour,
			Source:     src.audio.Samples,
			SampleRate: float64(src.audio.SampleRate),
		}

		if tgt != nil {
			tg.TargetF0 = tgt.contour
			tg.Target = tgt.audio.Samples
		} else if job.Target.Contour != "" {
			c, err := pitchfile.ReadContour(job.Target.Contour)
			if err != nil {
				return nil, err
			}

			tg.TargetF0 = &c
		}

		duration := float64(len(src.audio.Samples)) / float64(src.audio.SampleRate)

		return scale.Derive(tg, skip, duration)
	default:
		p := scale.Identity()
		for _, v := range []struct {
			dst *float64
			src *float64
		}{
			{&p.Pitch, s.Pitch}, {&p.Time, s.Time}, {&p.Energy, s.Energy}, {&p.VocalTract, s.VocalTract},
		} {
			if v.src != nil {
				*v.dst = *v.src
			}
		}

		return scale.Constant(p), nil
	}
}

func converterOptions(job config.Job, log *slog.Logger) ([]fdpsola.Option, error) {
	opts := []fdpsola.Option{fdpsola.WithLogger(log)}

	aw, sw := window.TypeHamming, window.TypeHamming

	if job.Analysis.Window != "" {
		t, err := window.ParseType(job.Analysis.Window)
		if err != nil {
			return nil, err
		}

		aw = t
	}

	if job.Analysis.SynthesisWindow != "" {
		t, err := window.ParseType(job.Analysis.SynthesisWindow)
		if err != nil {
			return nil, err
		}

		sw = t
	}

	opts = append(opts, fdpsola.WithWindows(aw, sw))

	lsf, err := analysis.ParseLSFScale(job.Analysis.LSFScale)
	if err != nil {
		return nil, err
	}

	opts = append(opts, fdpsola.WithLSFScale(lsf))

	if job.Analysis.Order > 0 {
		opts = append(opts, fdpsola.WithOrder(job.Analysis.Order))
	}

	if job.Framing.Mode == config.FramingFixed {
		opts = append(opts, fdpsola.WithFixedRate(job.Framing.WindowSize, job.Framing.SkipSize))
	}

	if job.Framing.Periods > 0 {
		opts = append(opts, fdpsola.WithPeriods(job.Framing.Periods))
	}

	if job.Labels.Context != nil {
		opts = append(opts, fdpsola.WithContextSize(*job.Labels.Context))
	}

	mode, err := transform.ParseMode(job.Matcher.FilterMode)
	if err != nil {
		return nil, err
	}

	opts = append(opts, fdpsola.WithFilterMode(mode), fdpsola.WithSourceNormalization(job.Matcher.NormalizeSource))

	return opts, nil
}

func buildMatcher(ctx context.Context, job config.Job, opts []fdpsola.Option, tgt *recording, alignment *label.Alignment) (match.Matcher, error) {
	kind, err := match.ParseKind(job.Matcher.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case match.KindCodebook:
		cb, err := match.LoadCodebook(job.Matcher.Model)
		if err != nil {
			return nil, err
		}

		if n := job.Labels.Context; n != nil && *n != cb.ContextSize && job.Matcher.ContextPreselection {
			return nil, fmt.Errorf("labels.context %d does not match context size %d of codebook %s",
				*n, cb.ContextSize, job.Matcher.Model)
		}

		dist, err := match.ParseDistance(job.Matcher.Distance)
		if err != nil {
			return nil, err
		}

		copts := []match.CodebookOption{match.WithDistance(dist), match.WithContextPreselection(job.Matcher.ContextPreselection)}
		if job.Matcher.Best > 0 {
			copts = append(copts, match.WithBest(job.Matcher.Best))
		}

		return match.NewCodebookMatcher(cb, copts...)
	case match.KindGMM:
		g, err := match.LoadGMM(job.Matcher.Model)
		if err != nil {
			return nil, err
		}

		return match.NewGMMMatcher(g)
	case match.KindDirect:
		if tgt == nil {
			return nil, fmt.Errorf("direct matcher needs a target recording")
		}

		conv, err := fdpsola.New(opts...)
		if err != nil {
			return nil, err
		}

		frames, err := conv.TargetFrames(ctx, tgt.input())
		if err != nil {
			return nil, err
		}

		return match.NewDirectMatcher(frames, alignment)
	default:
		return match.Identity{}, nil
	}
}

func smoothingConfig(sc config.SmoothingConfig) (smooth.Config, error) {
	cfg := smooth.Config{Path: sc.SideFile, Window: sc.Window}

	mode := sc.Mode
	if strings.EqualFold(mode, config.SmoothingTwoPass) {
		mode = "estimate"
	}

	var err error
	if cfg.Mode, err = smooth.ParseMode(mode); err != nil {
		return cfg, err
	}

	if cfg.Domain, err = smooth.ParseDomain(sc.Domain); err != nil {
		return cfg, err
	}

	return cfg, nil
}
