package fdpsola

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-vconv/voice/match"
)

// TargetFrames analyzes a parallel target recording with the converter's
// framing and analysis settings and returns the time-stamped LSF features
// the direct matcher copies from.
func (c *Converter) TargetFrames(ctx context.Context, in Input) ([]match.Frame, error) {
	if len(in.Samples) == 0 {
		return nil, ErrNoSamples
	}

	if !(in.SampleRate > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, in.SampleRate)
	}

	seg, err := c.segmenter(in)
	if err != nil {
		return nil, err
	}

	analyzer, err := c.newAnalyzer(in.SampleRate)
	if err != nil {
		return nil, err
	}

	frames := make([]match.Frame, 0, seg.Len())

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fdpsola: target analysis interrupted: %w", err)
		}

		f, ok := seg.Next()
		if !ok {
			break
		}

		features, err := analyzer.Features(minimalFrame(f.Samples, analyzer.MinFrameSize()))
		if err != nil {
			return nil, fmt.Errorf("fdpsola: target frame %d: %w", f.Index, err)
		}

		frames = append(frames, match.Frame{Time: f.Time, Features: features})
	}

	return frames, nil
}
