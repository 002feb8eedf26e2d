package match

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-vconv/voice/label"
)

func near(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}

	return true
}

func testCodebook() *Codebook {
	return &Codebook{
		Dimension:   2,
		ContextSize: 1,
		Entries: []Entry{
			{Source: []float64{0, 0}, Target: []float64{10, 10}, Context: []string{"a", "b", "c"}},
			{Source: []float64{1, 1}, Target: []float64{20, 20}, Context: []string{"x", "b", "y"}},
			{Source: []float64{5, 5}, Target: []float64{30, 30}, Context: []string{"a", "e", "c"}},
		},
	}
}

func TestIdentity(t *testing.T) {
	in := []float64{1, 2, 3}

	res, err := Identity{}.Match(Query{Features: in})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	in[0] = 99
	if res.Target[0] != 1 || res.Source != nil {
		t.Fatalf("Result = %+v", res)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindIdentity, KindCodebook, KindGMM, KindDirect} {
		got, err := ParseKind(strings.ToUpper(k.String()))
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}

	if _, err := ParseKind("dtw"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCodebookNearest(t *testing.T) {
	m, err := NewCodebookMatcher(testCodebook())
	if err != nil {
		t.Fatalf("NewCodebookMatcher() error = %v", err)
	}

	res, err := m.Match(Query{Features: []float64{0.9, 0.8}})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if !near(res.Target, []float64{20, 20}, 1e-12) || !near(res.Source, []float64{1, 1}, 1e-12) {
		t.Fatalf("Result = %+v", res)
	}

	if _, err := m.Match(Query{Features: []float64{1}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
}

func TestCodebookBestAveraging(t *testing.T) {
	m, _ := NewCodebookMatcher(testCodebook(), WithBest(2))

	// Equidistant from the first two entries: equal weights.
	res, err := m.Match(Query{Features: []float64{0.5, 0.5}})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if !near(res.Target, []float64{15, 15}, 1e-9) {
		t.Fatalf("Target = %v, want [15 15]", res.Target)
	}
}

func TestCodebookContextPreselection(t *testing.T) {
	m, _ := NewCodebookMatcher(testCodebook(), WithContextPreselection(true))

	tests := []struct {
		name    string
		context []string
		want    []int
	}{
		{name: "center and neighbours", context: []string{"a", "b", "c"}, want: []int{0}},
		{name: "center only", context: []string{"q", "b", "r"}, want: []int{0, 1}},
		{name: "neighbours only", context: []string{"a", "z", "c"}, want: []int{0, 2}},
		{name: "no match falls back", context: []string{"q", "z", "r"}, want: []int{0, 1, 2}},
		{name: "wrong size falls back", context: []string{"b"}, want: []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Preselect(tt.context)
			if len(got) != len(tt.want) {
				t.Fatalf("Preselect() = %v, want %v", got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Preselect() = %v, want %v", got, tt.want)
				}
			}
		})
	}

	// The preselected entry wins even though another one is spectrally closer.
	res, err := m.Match(Query{Features: []float64{5, 5}, Context: []string{"x", "b", "y"}})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if !near(res.Target, []float64{20, 20}, 1e-12) {
		t.Fatalf("Target = %v, want [20 20]", res.Target)
	}
}

func TestContextScore(t *testing.T) {
	q := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		entry []string
		want  float64
	}{
		{entry: []string{"", "", "c", "", ""}, want: 4},
		{entry: []string{"", "b", "", "", ""}, want: 1},
		{entry: []string{"a", "", "", "", ""}, want: 0.5},
		{entry: q, want: 4 + 2*1 + 2*0.5},
		{entry: []string{"a"}, want: 0},
	}

	for _, tt := range tests {
		if got := ContextScore(q, tt.entry); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("ContextScore(%v) = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestInverseHarmonicDistance(t *testing.T) {
	m, _ := NewCodebookMatcher(testCodebook(), WithDistance(DistanceInverseHarmonic))

	if d := m.dist([]float64{1, 2, 4}, []float64{1, 2, 4}); d != 0 {
		t.Fatalf("distance to itself = %v", d)
	}

	// Deviations next to a close neighbour weigh more.
	x := []float64{1, 1.1, 3}
	closePair := m.dist(x, []float64{1.05, 1.1, 3})
	isolated := m.dist(x, []float64{1, 1.1, 3.05})

	if closePair <= isolated {
		t.Fatalf("close pair distance %v <= isolated %v", closePair, isolated)
	}

	if _, err := ParseDistance("inverse-harmonic"); err != nil {
		t.Fatalf("ParseDistance() error = %v", err)
	}
}

func TestCodebookValidate(t *testing.T) {
	if _, err := NewCodebookMatcher(&Codebook{Dimension: 2}); !errors.Is(err, ErrEmptyModel) {
		t.Fatalf("error = %v, want ErrEmptyModel", err)
	}

	cb := testCodebook()
	cb.Entries[1].Target = []float64{1}

	if _, err := NewCodebookMatcher(cb); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
}

func testGMM() *GMM {
	return &GMM{
		Dimension: 1,
		Components: []Component{
			{Weight: 1, MeanX: []float64{0}, MeanY: []float64{1}, VarX: []float64{1}, CovYX: []float64{0.5}},
			{Weight: 3, MeanX: []float64{100}, MeanY: []float64{-5}, VarX: []float64{1}, CovYX: []float64{0}},
		},
		Classes: map[string][]float64{"s": {0, 1}},
	}
}

func TestGMMRegression(t *testing.T) {
	m, err := NewGMMMatcher(testGMM())
	if err != nil {
		t.Fatalf("NewGMMMatcher() error = %v", err)
	}

	if w := m.g.Components[1].Weight; math.Abs(w-0.75) > 1e-12 {
		t.Fatalf("normalized weight = %v, want 0.75", w)
	}

	res, err := m.Match(Query{Features: []float64{2}})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	// The far component has negligible responsibility.
	if math.Abs(res.Target[0]-2) > 1e-9 || math.Abs(res.Source[0]) > 1e-9 {
		t.Fatalf("Result = %+v, want target 2 source 0", res)
	}

	post := m.Responsibilities([]float64{50}, "")
	if math.Abs(post[0]+post[1]-1) > 1e-12 {
		t.Fatalf("responsibilities %v do not sum to 1", post)
	}

	// One-hot class weights pin the phone to the second component.
	res, _ = m.Match(Query{Features: []float64{2}, Context: []string{"a", "s", "b"}})
	if math.Abs(res.Target[0]+5) > 1e-12 || math.Abs(res.Source[0]-100) > 1e-12 {
		t.Fatalf("class weighted Result = %+v", res)
	}
}

func TestGMMValidate(t *testing.T) {
	g := testGMM()
	g.Components[0].VarX = []float64{0}

	if _, err := NewGMMMatcher(g); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("error = %v, want ErrInvalidModel", err)
	}

	g = testGMM()
	g.Classes["t"] = []float64{1}

	if _, err := NewGMMMatcher(g); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("error = %v, want ErrInvalidModel", err)
	}

	if _, err := NewGMMMatcher(&GMM{Dimension: 1}); !errors.Is(err, ErrEmptyModel) {
		t.Fatalf("error = %v, want ErrEmptyModel", err)
	}
}

func TestDirectMatcher(t *testing.T) {
	frames := []Frame{
		{Time: 0.2, Features: []float64{3}},
		{Time: 0.0, Features: []float64{1}},
		{Time: 0.1, Features: []float64{2}},
	}

	m, err := NewDirectMatcher(frames, nil)
	if err != nil {
		t.Fatalf("NewDirectMatcher() error = %v", err)
	}

	tests := []struct {
		t    float64
		want float64
	}{
		{t: -1, want: 1},
		{t: 0.04, want: 1},
		{t: 0.07, want: 2},
		{t: 0.5, want: 3},
	}

	for _, tt := range tests {
		res, err := m.Match(Query{Features: []float64{0.5}, Time: tt.t})
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}

		if res.Target[0] != tt.want {
			t.Fatalf("Match(t=%v) = %v, want %v", tt.t, res.Target[0], tt.want)
		}

		if len(res.Source) != 1 || res.Source[0] != 0.5 {
			t.Fatalf("Match(t=%v) source = %v, want the query frame", tt.t, res.Source)
		}
	}

	al, err := label.Align(
		label.Sequence{{Start: 0, End: 0.1, Phone: "a"}},
		label.Sequence{{Start: 0, End: 0.2, Phone: "a"}},
	)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	m, _ = NewDirectMatcher(frames, al)

	res, _ := m.Match(Query{Features: []float64{0}, Time: 0.05})
	if res.Target[0] != 2 {
		t.Fatalf("aligned Match() = %v, want 2", res.Target[0])
	}
}

func TestModelJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, testCodebook()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cb, err := DecodeCodebook(&buf)
	if err != nil {
		t.Fatalf("DecodeCodebook() error = %v", err)
	}

	if len(cb.Entries) != 3 || cb.Entries[2].Context[1] != "e" {
		t.Fatalf("decoded codebook = %+v", cb)
	}

	buf.Reset()

	if err := Save(&buf, testGMM()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	g, err := DecodeGMM(&buf)
	if err != nil {
		t.Fatalf("DecodeGMM() error = %v", err)
	}

	if len(g.Components) != 2 || len(g.Classes["s"]) != 2 {
		t.Fatalf("decoded GMM = %+v", g)
	}

	if _, err := DecodeGMM(strings.NewReader(`{"dimension": 1, "mixtures": []}`)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
