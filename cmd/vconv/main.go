// Command vconv converts the pitch, duration, loudness and vocal tract of
// voice recordings.
//
// Usage:
//
//	vconv -config jobs.yaml
//	vconv [flags] -in input.wav -out output.wav
//
// A job file may list several jobs; they run in parallel. Without -config a
// single job is built from the flags.
//
// Examples:
//
//	vconv -in a.wav -out b.wav -pitch 1.2
//	vconv -in a.wav -out b.wav -time 1.5 -marks a.pm
//	vconv -config jobs.yaml -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-vconv/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "path to a YAML job file")
		logLevel   = flag.String("log-level", "", "override the log level (debug, info, warn, error)")
		input      = flag.String("in", "", "input WAV file")
		output     = flag.String("out", "", "output WAV file")
		contour    = flag.String("contour", "", "binary F0 contour of the input")
		marks      = flag.String("marks", "", "text pitch-mark file of the input")
		scales     = flag.String("scales", "", "YAML scale schedule")
		pitch      = flag.Float64("pitch", 1, "constant pitch scale")
		duration   = flag.Float64("time", 1, "constant duration scale")
		energy     = flag.Float64("energy", 1, "constant energy scale")
		vocalTract = flag.Float64("vt", 1, "constant vocal tract scale")
	)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)

	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		job := config.Job{
			Input:  *input,
			Output: *output,
			Pitch:  config.PitchConfig{Contour: *contour, Marks: *marks},
		}

		if *scales != "" {
			job.Scales.File = *scales
		} else {
			job.Scales.Pitch, job.Scales.Time, job.Scales.Energy, job.Scales.VocalTract = pitch, duration, energy, vocalTract
		}

		cfg = &config.Config{Jobs: []config.Job{job}}
		err = config.Validate(cfg)
	}

	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vconv: job file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vconv: %v\n", err)
		}
		flag.Usage()
		return 2
	}

	if *logLevel != "" {
		cfg.LogLevel = config.LogLevel(*logLevel)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}

	for i, job := range cfg.Jobs {
		name := job.Name
		if name == "" {
			name = fmt.Sprintf("job%d", i)
		}

		log := logger.With("job", name)

		g.Go(func() error {
			if err := runJob(ctx, cfg, job, log); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("conversion failed", "err", err)
		return 1
	}

	return 0
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
