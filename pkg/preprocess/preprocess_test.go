package preprocess

import (
	"fmt"
	"strings"
	"testing"
)

func newTestPreprocessor() *Preprocessor {
	opts := DefaultOptions()
	opts.MinTokensProse = 10
	return New(opts, nil)
}

// wordSoup returns n distinct tokens, none of which trips the
// low-character-variety repetition filter.
func wordSoup(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("tok%d", i)
	}
	return strings.Join(words, " ")
}

func TestProcessRejectsShortText(t *testing.T) {
	p := New(DefaultOptions(), nil)

	res := p.Process("only five tokens right here", ModeProse)

	if res.Valid {
		t.Fatal("Process() valid = true, want rejection")
	}
	if want := "Text too short: 5 tokens (minimum: 200)"; res.Reason != want {
		t.Errorf("Reason = %q, want %q", res.Reason, want)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty on rejection", res.Text)
	}
	if res.Metadata.TokenCount != 5 {
		t.Errorf("Metadata.TokenCount = %d, want 5", res.Metadata.TokenCount)
	}
}

func TestProcessVocabModeUsesLowerMinimum(t *testing.T) {
	p := New(DefaultOptions(), nil)
	text := wordSoup(20)

	if res := p.Process(text, ModeVocab); !res.Valid {
		t.Errorf("vocab mode rejected 20 tokens: %s", res.Reason)
	}
	if res := p.Process(text, ModeProse); res.Valid {
		t.Error("prose mode accepted 20 tokens, want rejection")
	}
}

func TestProcessRejectsHighRepetition(t *testing.T) {
	p := newTestPreprocessor()

	// 8 of 20 tokens (40%) are low-variety runs longer than two runes.
	parts := strings.Fields(wordSoup(12))
	for i := 0; i < 8; i++ {
		parts = append(parts, "aaa")
	}
	res := p.Process(strings.Join(parts, " "), ModeProse)

	if res.Valid {
		t.Fatal("Process() valid = true, want repetition rejection")
	}
	if want := "High repetition detected: 40.00%"; res.Reason != want {
		t.Errorf("Reason = %q, want %q", res.Reason, want)
	}
}

func TestProcessRepetitionOverridesLengthReason(t *testing.T) {
	p := New(DefaultOptions(), nil) // minimum 200: short AND repetitive

	res := p.Process("aaa bbb ccc", ModeProse)

	if res.Valid {
		t.Fatal("Process() valid = true, want rejection")
	}
	if !strings.HasPrefix(res.Reason, "High repetition detected") {
		t.Errorf("Reason = %q, want repetition verdict to win", res.Reason)
	}
}

func TestProcessRejectsEmptyInput(t *testing.T) {
	p := newTestPreprocessor()

	res := p.Process("", ModeProse)

	if res.Valid {
		t.Fatal("Process(\"\") valid = true")
	}
	if want := "Empty or invalid input"; res.Reason != want {
		t.Errorf("Reason = %q, want %q", res.Reason, want)
	}
}

func TestProcessNormalizesSmartPunctuation(t *testing.T) {
	p := newTestPreprocessor()

	res := p.Process("“quoted” ‘words’ dash–here em—dash wait… "+wordSoup(10), ModeProse)

	if !res.Valid {
		t.Fatalf("Process() rejected: %s", res.Reason)
	}
	// Smart quotes become ASCII quotes, which the quote strip then removes.
	if strings.ContainsAny(res.Text, "“”‘’–—…\"'") {
		t.Errorf("Text = %q, want smart punctuation canonicalized and quotes stripped", res.Text)
	}
	if !strings.Contains(res.Text, "dash-here") || !strings.Contains(res.Text, "em--dash") {
		t.Errorf("Text = %q, want en dash -> - and em dash -> --", res.Text)
	}
	if !strings.Contains(res.Text, "wait...") {
		t.Errorf("Text = %q, want ellipsis -> ...", res.Text)
	}
}

func TestProcessStripsURLsAndCode(t *testing.T) {
	p := newTestPreprocessor()

	text := "see https://example.com/a?b=1 and `inline()` plus ```\nfenced block\n``` then " + wordSoup(12)
	res := p.Process(text, ModeProse)

	if !res.Valid {
		t.Fatalf("Process() rejected: %s", res.Reason)
	}
	for _, gone := range []string{"https://", "inline()", "fenced block", "`"} {
		if strings.Contains(res.Text, gone) {
			t.Errorf("Text = %q, still contains %q", res.Text, gone)
		}
	}
}

func TestProcessCollapsesWhitespace(t *testing.T) {
	p := newTestPreprocessor()

	res := p.Process("  spaced \t out\n\nlines  "+wordSoup(10), ModeProse)

	if !res.Valid {
		t.Fatalf("Process() rejected: %s", res.Reason)
	}
	if strings.Contains(res.Text, "  ") || strings.ContainsAny(res.Text, "\t\n") {
		t.Errorf("Text = %q, want single-space separation", res.Text)
	}
	if strings.HasPrefix(res.Text, " ") || strings.HasSuffix(res.Text, " ") {
		t.Errorf("Text = %q, want trimmed", res.Text)
	}
}

func TestProcessLanguageMetadataIsAdvisory(t *testing.T) {
	opts := DefaultOptions()
	opts.MinTokensProse = 5
	p := New(opts, nil)

	// Non-English-looking text still passes; detection only fills metadata.
	res := p.Process(wordSoup(40), ModeProse)

	if !res.Valid {
		t.Fatalf("Process() rejected: %s", res.Reason)
	}
	if res.Metadata.DetectedLanguage != "unknown" {
		t.Errorf("DetectedLanguage = %q, want %q", res.Metadata.DetectedLanguage, "unknown")
	}
	// unknown + expected "en" still counts as a match.
	if !res.Metadata.LanguageMatch {
		t.Error("LanguageMatch = false, want true for unknown vs en")
	}
}

func TestProcessKeepsOriginalAndMetadataOnRejection(t *testing.T) {
	p := New(DefaultOptions(), nil)
	text := "too short but “still” recorded"

	res := p.Process(text, ModeProse)

	if res.Valid {
		t.Fatal("Process() valid = true, want rejection")
	}
	if res.Original != text {
		t.Errorf("Original = %q, want input retained", res.Original)
	}
	if res.Metadata.OriginalLength == 0 || res.Metadata.ProcessedLength == 0 {
		t.Errorf("Metadata lengths = %+v, want retained on rejection", res.Metadata)
	}
}

func TestProcessDeterministic(t *testing.T) {
	p := newTestPreprocessor()
	text := "Repeated “runs” of https://x.io text " + wordSoup(30)

	a := p.Process(text, ModeProse)
	b := p.Process(text, ModeProse)

	if a != b {
		t.Errorf("Process() not deterministic:\n a = %+v\n b = %+v", a, b)
	}
}

func TestRepetitionRatioIgnoresShortTokens(t *testing.T) {
	// "aa" has only two runes and must not count as a repetition token.
	tokens := []string{"aa", "bb", "cc", "dd"}

	if got := repetitionRatio(tokens); got != 0 {
		t.Errorf("repetitionRatio = %v, want 0", got)
	}
}
