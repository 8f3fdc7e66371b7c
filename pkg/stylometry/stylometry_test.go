package stylometry

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"testing"
)

const epsilon = 1e-9

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Wait... what? No!")
	want := []string{"Wait", "what", "No!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitSentences = %v, want %v", got, want)
	}

	if got := splitSentences(""); len(got) != 0 {
		t.Errorf("splitSentences(empty) = %v, want none", got)
	}
}

func TestTypeTokenRatio(t *testing.T) {
	if got := typeTokenRatio([]string{"the", "cat", "the", "mat"}); !almostEqual(got, 0.75) {
		t.Errorf("TTR = %v, want 0.75", got)
	}
	if got := typeTokenRatio(nil); got != 0 {
		t.Errorf("TTR(nil) = %v, want 0", got)
	}
	// Raw tokens: case variants are distinct types.
	if got := typeTokenRatio([]string{"The", "the"}); !almostEqual(got, 1.0) {
		t.Errorf("TTR with case variants = %v, want 1.0", got)
	}
}

func TestMSTTRUsesFullSegmentsOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.MSTTRSegmentSize = 2
	e := New(opts, nil, nil, quietLogger())

	// Segments: [a b] TTR 1.0, [a a] TTR 0.5; trailing [c] is dropped.
	got := e.msttr([]string{"a", "b", "a", "a", "c"})
	if !almostEqual(got, 0.75) {
		t.Errorf("msttr = %v, want 0.75", got)
	}

	// Shorter than one segment reports 0.
	short := New(DefaultOptions(), nil, nil, quietLogger())
	if got := short.msttr([]string{"a", "b", "c"}); got != 0 {
		t.Errorf("msttr(short) = %v, want 0", got)
	}
}

func TestMTLD(t *testing.T) {
	e := New(DefaultOptions(), nil, nil, quietLogger())

	// "The the" folds to one type, closing a factor of length 2; the
	// trailing "x" counts as its own factor.
	if got := e.mtld([]string{"The", "the", "x"}); !almostEqual(got, 1.5) {
		t.Errorf("mtld = %v, want 1.5", got)
	}

	// All-unique text never closes a factor; the whole text is one.
	if got := e.mtld([]string{"a", "b", "c"}); !almostEqual(got, 3.0) {
		t.Errorf("mtld(unique) = %v, want 3.0", got)
	}

	if got := e.mtld(nil); got != 0 {
		t.Errorf("mtld(nil) = %v, want 0", got)
	}
}

func TestYulesK(t *testing.T) {
	// Counts a=2, b=1: 10000 * (5 - 3) / 9.
	got := yulesK([]string{"a", "a", "b"})
	if want := 10000.0 * 2.0 / 9.0; !almostEqual(got, want) {
		t.Errorf("yulesK = %v, want %v", got, want)
	}

	if got := yulesK([]string{"a", "b", "c"}); !almostEqual(got, 0) {
		t.Errorf("yulesK(unique) = %v, want 0", got)
	}
}

func TestLengthStats(t *testing.T) {
	e := New(DefaultOptions(), nil, nil, quietLogger())
	f := e.Extract("One two three. Four five.")

	if !almostEqual(f.AvgCharsPerWord, 21.0/5.0) {
		t.Errorf("AvgCharsPerWord = %v, want %v", f.AvgCharsPerWord, 21.0/5.0)
	}
	if !almostEqual(f.AvgCharsPerSentence, 11.5) {
		t.Errorf("AvgCharsPerSentence = %v, want 11.5", f.AvgCharsPerSentence)
	}
	if !almostEqual(f.AvgWordsPerSentence, 2.5) {
		t.Errorf("AvgWordsPerSentence = %v, want 2.5", f.AvgWordsPerSentence)
	}
	if !almostEqual(f.StdWordsPerSentence, math.Sqrt(0.5)) {
		t.Errorf("StdWordsPerSentence = %v, want %v", f.StdWordsPerSentence, math.Sqrt(0.5))
	}
	if !almostEqual(f.MedianWordsPerSentence, 2.5) {
		t.Errorf("MedianWordsPerSentence = %v, want 2.5", f.MedianWordsPerSentence)
	}
}

func TestLengthStatsSingleSentence(t *testing.T) {
	e := New(DefaultOptions(), nil, nil, quietLogger())
	f := e.Extract("Just one sentence here")

	if f.StdWordsPerSentence != 0 {
		t.Errorf("StdWordsPerSentence = %v, want 0 for one sentence", f.StdWordsPerSentence)
	}
	if !almostEqual(f.AvgWordsPerSentence, 4.0) {
		t.Errorf("AvgWordsPerSentence = %v, want 4.0", f.AvgWordsPerSentence)
	}
}

func TestPunctEntropy(t *testing.T) {
	// Two commas and one period.
	got := punctEntropy("a, b. c,")
	want := -(2.0/3.0)*math.Log2(2.0/3.0) - (1.0/3.0)*math.Log2(1.0/3.0)
	if !almostEqual(got, want) {
		t.Errorf("punctEntropy = %v, want %v", got, want)
	}

	if got := punctEntropy("..."); !almostEqual(got, 0) {
		t.Errorf("punctEntropy(single symbol) = %v, want 0", got)
	}
	if got := punctEntropy("no punctuation at all"); got != 0 {
		t.Errorf("punctEntropy(none) = %v, want 0", got)
	}
}

func TestLexicalOverlap(t *testing.T) {
	got := lexicalOverlap([]string{"the cat sat", "the dog sat here"})
	// Shared {the, sat} over the larger set of four words.
	if !almostEqual(got, 0.5) {
		t.Errorf("lexicalOverlap = %v, want 0.5", got)
	}

	if got := lexicalOverlap([]string{"only one"}); got != 0 {
		t.Errorf("lexicalOverlap(one sentence) = %v, want 0", got)
	}
}

func TestConnectiveDensity(t *testing.T) {
	density, count := connectiveDensity("I came and went because it was so late")
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if !almostEqual(density, 3.0/9.0) {
		t.Errorf("density = %v, want %v", density, 3.0/9.0)
	}

	// Attached punctuation defeats the exact match.
	_, count = connectiveDensity("Stop and, go")
	if count != 0 {
		t.Errorf("count with trailing comma = %d, want 0", count)
	}
}

func TestExtractDisabledMetrics(t *testing.T) {
	e := New(Options{}, nil, nil, quietLogger())
	f := e.Extract("Some words. More words here.")

	if f.TTR != 0 || f.MTLD != 0 || f.AvgWordsPerSentence != 0 || f.ConnectiveCount != 0 {
		t.Errorf("disabled metrics produced values: %+v", f)
	}
	if f.Syntax != nil || f.Readability != nil {
		t.Error("capabilities produced output without being injected")
	}
}

type fakeSyntax struct {
	info SyntaxInfo
	err  error
}

func (f fakeSyntax) Analyze(string) (SyntaxInfo, error) { return f.info, f.err }

type fakeScorer struct {
	scores ReadabilityScores
	err    error
}

func (f fakeScorer) Score(string) (ReadabilityScores, error) { return f.scores, f.err }

func TestExtractWithCapabilities(t *testing.T) {
	syntax := fakeSyntax{info: SyntaxInfo{
		AvgDependencyDepth: 2.4,
		MaxDependencyDepth: 3.1,
		HasDepth:           true,
		POSRatios:          map[string]float64{"pos_noun_ratio": 0.25},
	}}
	scorer := fakeScorer{scores: ReadabilityScores{FleschKincaid: 8.2}}

	e := New(DefaultOptions(), syntax, scorer, quietLogger())
	f := e.Extract("Some words. More words here.")

	if f.Syntax == nil || !almostEqual(f.Syntax.AvgDependencyDepth, 2.4) {
		t.Fatalf("Syntax = %+v, want injected analysis", f.Syntax)
	}
	if f.Syntax.POSRatios["pos_noun_ratio"] != 0.25 {
		t.Errorf("POSRatios not passed through: %v", f.Syntax.POSRatios)
	}
	if f.Readability == nil || !almostEqual(f.Readability.FleschKincaid, 8.2) {
		t.Fatalf("Readability = %+v, want injected scores", f.Readability)
	}
}

func TestExtractIsolatesCapabilityFailures(t *testing.T) {
	syntax := fakeSyntax{err: errors.New("parser unavailable")}
	scorer := fakeScorer{err: errors.New("scorer unavailable")}

	e := New(DefaultOptions(), syntax, scorer, quietLogger())
	f := e.Extract("Still works. Core metrics survive capability failures.")

	if f.Syntax != nil || f.Readability != nil {
		t.Error("failed capabilities must not produce output")
	}
	if f.TTR == 0 {
		t.Error("core metrics must survive capability failures")
	}
}

func TestHeuristicSyntaxDepth(t *testing.T) {
	h := DefaultHeuristicSyntax()

	// One sentence, one comma, one subordinate marker.
	info, err := h.Analyze("It works, which helps.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !almostEqual(info.AvgDependencyDepth, 1.795+0.3+0.2) {
		t.Errorf("depth = %v, want %v", info.AvgDependencyDepth, 1.795+0.3+0.2)
	}
	if !info.HasDepth {
		t.Error("HasDepth should be set on any non-empty text")
	}
	if !almostEqual(info.PunctPerSentence, 1.0) || !almostEqual(info.ClausesPerSentence, 1.0) {
		t.Errorf("per-sentence counts = %v/%v, want 1/1", info.PunctPerSentence, info.ClausesPerSentence)
	}
	if info.MaxDependencyDepth != info.AvgDependencyDepth {
		t.Error("heuristic reports a single depth for avg and max")
	}
}

func TestHeuristicSyntaxBaseline(t *testing.T) {
	h := DefaultHeuristicSyntax()

	info, err := h.Analyze("Plain words here")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !almostEqual(info.AvgDependencyDepth, 1.795) {
		t.Errorf("baseline depth = %v, want 1.795", info.AvgDependencyDepth)
	}
}

func TestHeuristicSyntaxCounting(t *testing.T) {
	h := DefaultHeuristicSyntax()

	// Hyphens count toward punctuation.
	info, _ := h.Analyze("A well-known fact.")
	if !almostEqual(info.PunctPerSentence, 1.0) {
		t.Errorf("hyphen PunctPerSentence = %v, want 1.0", info.PunctPerSentence)
	}

	// Marker substrings inside longer words do not count.
	info, _ = h.Analyze("The thatch roof held.")
	if info.ClausesPerSentence != 0 {
		t.Errorf("ClausesPerSentence = %v, want 0 for embedded substring", info.ClausesPerSentence)
	}

	// Two sentences halve the per-sentence rates.
	info, _ = h.Analyze("A b, c. D e.")
	if !almostEqual(info.PunctPerSentence, 0.5) {
		t.Errorf("PunctPerSentence = %v, want 0.5", info.PunctPerSentence)
	}
}

func TestHeuristicSyntaxEmpty(t *testing.T) {
	h := DefaultHeuristicSyntax()
	info, err := h.Analyze("   ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if info.HasDepth || info.AvgDependencyDepth != 0 {
		t.Errorf("Analyze(blank) = %+v, want zero info", info)
	}
}

func TestIndexReadability(t *testing.T) {
	r := NewIndexReadability()
	scores, err := r.Score("The cat sat on the mat. The dog ran to the park. The sun was hot today.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// 17 words, 3 sentences, 52 letters, 18 syllables, no polysyllables.
	wantFK := 0.39*(17.0/3.0) + 11.8*(18.0/17.0) - 15.59
	if !almostEqual(scores.FleschKincaid, wantFK) {
		t.Errorf("FleschKincaid = %v, want %v", scores.FleschKincaid, wantFK)
	}
	wantARI := 4.71*(52.0/17.0) + 0.5*(17.0/3.0) - 21.43
	if !almostEqual(scores.ARI, wantARI) {
		t.Errorf("ARI = %v, want %v", scores.ARI, wantARI)
	}
	if !almostEqual(scores.LIX, 17.0/3.0) {
		t.Errorf("LIX = %v, want %v", scores.LIX, 17.0/3.0)
	}
	if !almostEqual(scores.SMOG, 3.1291) {
		t.Errorf("SMOG = %v, want 3.1291 with zero polysyllables", scores.SMOG)
	}
}

func TestIndexReadabilitySMOGNeedsThreeSentences(t *testing.T) {
	r := NewIndexReadability()
	scores, err := r.Score("One two. Three four.")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if scores.SMOG != 0 {
		t.Errorf("SMOG = %v, want 0 below three sentences", scores.SMOG)
	}
	if scores.FleschKincaid == 0 {
		t.Error("FleschKincaid should still be computed")
	}
}

func TestIndexReadabilityEmpty(t *testing.T) {
	r := NewIndexReadability()
	if _, err := r.Score(""); err == nil {
		t.Fatal("Score(empty) should report an error")
	}
}

func TestSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":       1,
		"today":     2,
		"beautiful": 3,
		"rhythm":    1,
		"tsk":       1,
		"committee": 3,
		"cake":      1,
		"beside":    2,
		"the":       1,
	}
	for word, want := range cases {
		if got := syllables(word); got != want {
			t.Errorf("syllables(%q) = %d, want %d", word, got, want)
		}
	}
}
