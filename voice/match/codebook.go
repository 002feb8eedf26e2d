package match

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// distanceFloor keeps inverse-distance weights finite on exact matches.
const distanceFloor = 1e-9

// Entry is one paired exemplar.
type Entry struct {
	Source []float64 `json:"source"`
	Target []float64 `json:"target"`
	// Context holds the phones of the 2N+1 labels around the exemplar.
	Context []string `json:"context,omitempty"`
}

// Codebook is a table of paired source/target exemplars.
type Codebook struct {
	Dimension   int     `json:"dimension"`
	ContextSize int     `json:"contextSize"`
	Entries     []Entry `json:"entries"`
}

// Validate checks that every entry has the codebook dimension and, when the
// codebook carries context, 2*ContextSize+1 context phones.
func (c *Codebook) Validate() error {
	if len(c.Entries) == 0 {
		return ErrEmptyModel
	}

	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrInvalidModel, c.Dimension)
	}

	for i, e := range c.Entries {
		if len(e.Source) != c.Dimension || len(e.Target) != c.Dimension {
			return fmt.Errorf("%w: entry %d has %d/%d values, want %d",
				ErrDimensionMismatch, i, len(e.Source), len(e.Target), c.Dimension)
		}

		if e.Context != nil && len(e.Context) != 2*c.ContextSize+1 {
			return fmt.Errorf("%w: entry %d has %d context phones, want %d",
				ErrInvalidModel, i, len(e.Context), 2*c.ContextSize+1)
		}
	}

	return nil
}

// Distance selects the spectral distance used by the codebook matcher.
type Distance int

const (
	// DistanceEuclidean is the plain Euclidean distance.
	DistanceEuclidean Distance = iota
	// DistanceInverseHarmonic weights each LSF by the inverse of its
	// distances to its neighbours, emphasizing closely spaced (formant) pairs.
	DistanceInverseHarmonic
)

func (d Distance) String() string {
	switch d {
	case DistanceEuclidean:
		return "euclidean"
	case DistanceInverseHarmonic:
		return "inverse-harmonic"
	default:
		return fmt.Sprintf("distance(%d)", int(d))
	}
}

// ParseDistance resolves "euclidean" or "inverse-harmonic".
func ParseDistance(name string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euclidean", "":
		return DistanceEuclidean, nil
	case "inverse-harmonic", "inverseharmonic":
		return DistanceInverseHarmonic, nil
	default:
		return 0, fmt.Errorf("match: unknown distance %q", name)
	}
}

// CodebookOption configures a CodebookMatcher.
type CodebookOption func(*CodebookMatcher)

// WithBest averages the k nearest entries (default 1).
func WithBest(k int) CodebookOption {
	return func(m *CodebookMatcher) { m.best = max(1, k) }
}

// WithDistance selects the distance measure.
func WithDistance(d Distance) CodebookOption {
	return func(m *CodebookMatcher) { m.distance = d }
}

// WithContextPreselection enables phonetic context preselection.
func WithContextPreselection(enabled bool) CodebookOption {
	return func(m *CodebookMatcher) { m.useContext = enabled }
}

// CodebookMatcher finds the nearest codebook entries to a source vector.
type CodebookMatcher struct {
	cb         *Codebook
	best       int
	distance   Distance
	useContext bool
}

// NewCodebookMatcher validates cb and returns a matcher over it.
func NewCodebookMatcher(cb *Codebook, opts ...CodebookOption) (*CodebookMatcher, error) {
	if err := cb.Validate(); err != nil {
		return nil, err
	}

	m := &CodebookMatcher{cb: cb, best: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// ContextSize returns the number of context labels on each side the
// codebook entries were recorded with.
func (m *CodebookMatcher) ContextSize() int { return m.cb.ContextSize }

// Match implements Matcher. Target and Source are the inverse-distance
// weighted averages of the best entries' target and source vectors.
func (m *CodebookMatcher) Match(q Query) (Result, error) {
	if err := checkDim(len(q.Features), m.cb.Dimension); err != nil {
		return Result{}, err
	}

	candidates := m.Preselect(q.Context)

	type scored struct {
		idx  int
		dist float64
	}

	ranked := make([]scored, len(candidates))
	for i, idx := range candidates {
		ranked[i] = scored{idx: idx, dist: m.dist(q.Features, m.cb.Entries[idx].Source)}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })

	k := min(m.best, len(ranked))
	res := Result{
		Target: make([]float64, m.cb.Dimension),
		Source: make([]float64, m.cb.Dimension),
	}

	wsum := 0.0
	for _, r := range ranked[:k] {
		w := 1 / math.Max(r.dist, distanceFloor)
		e := m.cb.Entries[r.idx]

		for d := range res.Target {
			res.Target[d] += w * e.Target[d]
			res.Source[d] += w * e.Source[d]
		}

		wsum += w
	}

	for d := range res.Target {
		res.Target[d] /= wsum
		res.Source[d] /= wsum
	}

	return res, nil
}

// Preselect returns the indices of the entries whose context scores highest
// against ctx. Without preselection, without a query context, or when no
// entry shares any context phone, every index is returned.
func (m *CodebookMatcher) Preselect(ctx []string) []int {
	all := make([]int, len(m.cb.Entries))
	for i := range all {
		all[i] = i
	}

	if !m.useContext || len(ctx) != 2*m.cb.ContextSize+1 {
		return all
	}

	best := 0.0

	var selected []int

	for i, e := range m.cb.Entries {
		s := ContextScore(ctx, e.Context)

		switch {
		case s <= 0 || s < best:
			continue
		case s > best:
			best = s
			selected = selected[:0]
		}

		selected = append(selected, i)
	}

	if len(selected) == 0 {
		return all
	}

	return selected
}

// ContextScore rates how well two context windows of equal length 2N+1
// agree. A matching center phone scores N+2, more than all neighbours
// together; a matching neighbour at distance d scores (N-d+1)/N.
func ContextScore(query, entry []string) float64 {
	if len(query) != len(entry) || len(query) == 0 {
		return 0
	}

	n := len(query) / 2
	score := 0.0

	for i := range query {
		if query[i] == "" || query[i] != entry[i] {
			continue
		}

		d := i - n
		if d < 0 {
			d = -d
		}

		if d == 0 {
			score += float64(n + 2)
		} else {
			score += float64(n-d+1) / float64(n)
		}
	}

	return score
}

func (m *CodebookMatcher) dist(x, y []float64) float64 {
	if m.distance == DistanceInverseHarmonic {
		return inverseHarmonicDistance(x, y)
	}

	sum := 0.0
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// inverseHarmonicDistance weights squared differences by the inverse
// spacing of each query LSF to its neighbours.
func inverseHarmonicDistance(x, y []float64) float64 {
	const minGap = 1e-6

	sum, wsum := 0.0, 0.0

	for i := range x {
		w := 0.0
		if i > 0 {
			w += 1 / math.Max(x[i]-x[i-1], minGap)
		}

		if i+1 < len(x) {
			w += 1 / math.Max(x[i+1]-x[i], minGap)
		}

		if len(x) == 1 {
			w = 1
		}

		d := x[i] - y[i]
		sum += w * d * d
		wsum += w
	}

	if wsum <= 0 {
		return 0
	}

	return math.Sqrt(sum / wsum)
}
