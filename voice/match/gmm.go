package match

import (
	"fmt"
	"math"
)

// minVariance bounds the diagonal variances from below.
const minVariance = 1e-10

// Component is one diagonal component of a joint source/target Gaussian
// mixture. CovYX holds the diagonal of the target/source cross-covariance.
type Component struct {
	Weight float64   `json:"weight"`
	MeanX  []float64 `json:"meanX"`
	MeanY  []float64 `json:"meanY"`
	VarX   []float64 `json:"varX"`
	CovYX  []float64 `json:"covYX"`
}

// GMM is a joint Gaussian mixture over stacked source/target features.
type GMM struct {
	Dimension  int         `json:"dimension"`
	Components []Component `json:"components"`
	// Classes optionally replaces the component priors per phone: the
	// weights of Classes[phone] are used when the query's center phone is
	// listed. One-hot rows pin a phone to a single component.
	Classes map[string][]float64 `json:"classes,omitempty"`
}

// Validate checks dimensions and variances and normalizes the weights.
func (g *GMM) Validate() error {
	if len(g.Components) == 0 {
		return ErrEmptyModel
	}

	if g.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidModel, g.Dimension)
	}

	for i, c := range g.Components {
		for _, v := range [][]float64{c.MeanX, c.MeanY, c.VarX, c.CovYX} {
			if len(v) != g.Dimension {
				return fmt.Errorf("%w: component %d has a vector of %d values, want %d",
					ErrDimensionMismatch, i, len(v), g.Dimension)
			}
		}

		for d, v := range c.VarX {
			if !(v > 0) {
				return fmt.Errorf("%w: component %d variance %d is %v", ErrInvalidModel, i, d, v)
			}
		}
	}

	priors := g.priors()
	if err := normalizeWeights(priors); err != nil {
		return fmt.Errorf("%w: component weights: %w", ErrInvalidModel, err)
	}

	for i := range g.Components {
		g.Components[i].Weight = priors[i]
	}

	for phone, w := range g.Classes {
		if len(w) != len(g.Components) {
			return fmt.Errorf("%w: class %q has %d weights, want %d", ErrInvalidModel, phone, len(w), len(g.Components))
		}

		if err := normalizeWeights(w); err != nil {
			return fmt.Errorf("%w: class %q: %w", ErrInvalidModel, phone, err)
		}
	}

	return nil
}

func (g *GMM) priors() []float64 {
	out := make([]float64, len(g.Components))
	for i, c := range g.Components {
		out[i] = c.Weight
	}

	return out
}

// normalizeWeights scales w in place to sum to one.
func normalizeWeights(w []float64) error {
	sum := 0.0
	for _, v := range w {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("negative or NaN weight %v", v)
		}

		sum += v
	}

	if sum <= 0 {
		return fmt.Errorf("weights sum to %v", sum)
	}

	for i := range w {
		w[i] /= sum
	}

	return nil
}

// GMMMatcher performs the minimum mean squared error regression
// E[y|x] = sum_m p(m|x) (muY_m + CovYX_m/VarX_m (x - muX_m)).
type GMMMatcher struct {
	g *GMM
}

// NewGMMMatcher validates g and returns a matcher over it.
func NewGMMMatcher(g *GMM) (*GMMMatcher, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &GMMMatcher{g: g}, nil
}

// Match implements Matcher. Source is the responsibility weighted mean of
// the source means.
func (m *GMMMatcher) Match(q Query) (Result, error) {
	if err := checkDim(len(q.Features), m.g.Dimension); err != nil {
		return Result{}, err
	}

	post := m.Responsibilities(q.Features, q.Phone())

	res := Result{
		Target: make([]float64, m.g.Dimension),
		Source: make([]float64, m.g.Dimension),
	}

	for i, c := range m.g.Components {
		p := post[i]
		if p == 0 {
			continue
		}

		for d, x := range q.Features {
			res.Target[d] += p * (c.MeanY[d] + c.CovYX[d]/math.Max(c.VarX[d], minVariance)*(x-c.MeanX[d]))
			res.Source[d] += p * c.MeanX[d]
		}
	}

	return res, nil
}

// Responsibilities returns p(m|x) for every component, using the class
// weights of phone as priors when the model lists it.
func (m *GMMMatcher) Responsibilities(x []float64, phone string) []float64 {
	priors := m.g.priors()
	if w, ok := m.g.Classes[phone]; ok && phone != "" {
		priors = w
	}

	logp := make([]float64, len(m.g.Components))
	best := math.Inf(-1)

	for i, c := range m.g.Components {
		if priors[i] <= 0 {
			logp[i] = math.Inf(-1)
			continue
		}

		logp[i] = math.Log(priors[i]) + logGaussian(x, c.MeanX, c.VarX)
		best = math.Max(best, logp[i])
	}

	post := make([]float64, len(logp))
	if math.IsInf(best, -1) {
		return post
	}

	sum := 0.0
	for i, l := range logp {
		post[i] = math.Exp(l - best)
		sum += post[i]
	}

	for i := range post {
		post[i] /= sum
	}

	return post
}

func logGaussian(x, mean, variance []float64) float64 {
	sum := 0.0
	for d := range x {
		v := math.Max(variance[d], minVariance)
		diff := x[d] - mean[d]
		sum -= 0.5 * (diff*diff/v + math.Log(2*math.Pi*v))
	}

	return sum
}
