// Package match maps source vocal-tract features (LSF vectors) onto target
// features. Strategies are selected by configuration and share the Matcher
// interface: a codebook of paired exemplars, a joint Gaussian mixture
// regression, a direct copy of aligned target frames, and the identity.
package match

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when vectors do not agree in length.
	ErrDimensionMismatch = errors.New("match: feature dimension mismatch")
	// ErrEmptyModel is returned for models without entries or components.
	ErrEmptyModel = errors.New("match: empty model")
	// ErrInvalidModel is returned for models that fail validation.
	ErrInvalidModel = errors.New("match: invalid model")
)

// Query is the input of one match.
type Query struct {
	// Features is the source feature vector of the frame.
	Features []float64
	// Time is the frame center in seconds.
	Time float64
	// Context holds the phones of the 2N+1 labels around the frame, the
	// current phone in the middle. It may be nil.
	Context []string
}

// Phone returns the center phone of the context, or "" without context.
func (q Query) Phone() string {
	if len(q.Context) == 0 {
		return ""
	}

	return q.Context[len(q.Context)/2]
}

// Result pairs the target estimate with the model's own estimate of the
// source. Source is nil when the strategy has no model of the source.
type Result struct {
	Target []float64
	Source []float64
}

// Matcher returns a target feature estimate for a source frame.
type Matcher interface {
	Match(q Query) (Result, error)
}

// Kind names a matching strategy.
type Kind int

const (
	KindIdentity Kind = iota
	KindCodebook
	KindGMM
	KindDirect
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindCodebook:
		return "codebook"
	case KindGMM:
		return "gmm"
	case KindDirect:
		return "direct"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind resolves a strategy name (case-insensitive).
func ParseKind(name string) (Kind, error) {
	for _, k := range []Kind{KindIdentity, KindCodebook, KindGMM, KindDirect} {
		if strings.EqualFold(strings.TrimSpace(name), k.String()) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("match: unknown matcher %q", name)
}

// Identity returns the source features as the target.
type Identity struct{}

// Match implements Matcher.
func (Identity) Match(q Query) (Result, error) {
	return Result{Target: clone(q.Features)}, nil
}

func clone(x []float64) []float64 {
	if x == nil {
		return nil
	}

	out := make([]float64, len(x))
	copy(out, x)

	return out
}

func checkDim(got, want int) error {
	if got != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, got, want)
	}

	return nil
}
