// Package preprocess normalizes raw text and gates it through quality
// control before feature extraction. Processing is a pure function: the same
// input and options always produce the same result.
package preprocess

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/textiq/pkg/langdetect"
)

// Mode selects the admission threshold for an input.
type Mode string

const (
	// ModeProse applies the free-prose token minimum.
	ModeProse Mode = "prose"
	// ModeVocab applies the lower vocabulary-response minimum.
	ModeVocab Mode = "vocab"
)

// maxRepetitionRatio rejects inputs where too many tokens are low-variety
// character runs (aaa, xxxx), a spam signature.
const maxRepetitionRatio = 0.3

var (
	urlPattern   = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	codePattern  = regexp.MustCompile("```[\\s\\S]*?```|`[^`]*`")
	quotePattern = regexp.MustCompile("[\"“”]|['‘’]")
	spacePattern = regexp.MustCompile(`\s+`)

	// Smart punctuation is canonicalized to ASCII before any stripping.
	unicodeReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "--",
		"…", "...",
	)
)

// LanguageDetector reports a lowercase language code for a text, or
// langdetect.Unknown. Detection feeds metadata only.
type LanguageDetector interface {
	Detect(text string) string
}

// Options configure normalization and the admission gate.
type Options struct {
	MinTokensProse   int
	MinTokensVocab   int
	StripURLs        bool
	StripCode        bool
	StripQuotes      bool
	NormalizeUnicode bool
	Language         string // expected language code
}

// DefaultOptions returns the calibrated defaults.
func DefaultOptions() Options {
	return Options{
		MinTokensProse:   200,
		MinTokensVocab:   15,
		StripURLs:        true,
		StripCode:        true,
		StripQuotes:      true,
		NormalizeUnicode: true,
		Language:         "en",
	}
}

// StripFlags records which stripping passes were configured for a run.
type StripFlags struct {
	URLs   bool `json:"urls"`
	Code   bool `json:"code"`
	Quotes bool `json:"quotes"`
}

// Metadata is retained even for rejected input, for diagnostics.
type Metadata struct {
	OriginalLength   int        `json:"original_length"`
	ProcessedLength  int        `json:"processed_length"`
	TokenCount       int        `json:"num_tokens"`
	DetectedLanguage string     `json:"language_detected"`
	LanguageMatch    bool       `json:"language_match"`
	StripsApplied    StripFlags `json:"strips_applied"`
}

// Result is the immutable outcome of one preprocessing call. Text is empty
// when the input was rejected; Original and Metadata survive either way.
type Result struct {
	Original   string
	Text       string
	TokenCount int
	Valid      bool
	Reason     string
	Metadata   Metadata
}

// Preprocessor applies the configured normalization pipeline. Safe for
// concurrent use; it holds no per-call state.
type Preprocessor struct {
	opts     Options
	detector LanguageDetector
}

// New builds a Preprocessor. A nil detector falls back to the common-word
// heuristic.
func New(opts Options, detector LanguageDetector) *Preprocessor {
	if detector == nil {
		detector = langdetect.Heuristic{}
	}
	return &Preprocessor{opts: opts, detector: detector}
}

// Process runs normalization, stripping, and admission checks in order.
func (p *Preprocessor) Process(text string, mode Mode) Result {
	if text == "" {
		return Result{
			Valid:  false,
			Reason: "Empty or invalid input",
		}
	}

	original := text
	originalLength := utf8.RuneCountInString(text)

	if p.opts.NormalizeUnicode {
		text = unicodeReplacer.Replace(text)
	}
	if p.opts.StripURLs {
		text = urlPattern.ReplaceAllString(text, " ")
	}
	if p.opts.StripCode {
		text = codePattern.ReplaceAllString(text, " ")
	}
	if p.opts.StripQuotes {
		text = quotePattern.ReplaceAllString(text, " ")
	}
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))

	tokens := strings.Fields(text)
	numTokens := len(tokens)

	valid := true
	reason := ""

	minTokens := p.opts.MinTokensProse
	if mode == ModeVocab {
		minTokens = p.opts.MinTokensVocab
	}
	if numTokens < minTokens {
		valid = false
		reason = fmt.Sprintf("Text too short: %d tokens (minimum: %d)", numTokens, minTokens)
	}

	// The repetition verdict overrides the length verdict, matching the
	// original check order.
	if numTokens > 0 {
		if ratio := repetitionRatio(tokens); ratio > maxRepetitionRatio {
			valid = false
			reason = fmt.Sprintf("High repetition detected: %.2f%%", ratio*100)
		}
	}

	detected := p.detector.Detect(text)
	langMatch := detected == p.opts.Language ||
		(detected == langdetect.Unknown && p.opts.Language == "en")

	meta := Metadata{
		OriginalLength:   originalLength,
		ProcessedLength:  utf8.RuneCountInString(text),
		TokenCount:       numTokens,
		DetectedLanguage: detected,
		LanguageMatch:    langMatch,
		StripsApplied: StripFlags{
			URLs:   p.opts.StripURLs,
			Code:   p.opts.StripCode,
			Quotes: p.opts.StripQuotes,
		},
	}

	processed := text
	if !valid {
		processed = ""
	}

	return Result{
		Original:   original,
		Text:       processed,
		TokenCount: numTokens,
		Valid:      valid,
		Reason:     reason,
		Metadata:   meta,
	}
}

// repetitionRatio is the fraction of tokens longer than two runes whose
// lowered form uses at most two distinct runes.
func repetitionRatio(tokens []string) float64 {
	repeated := 0
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		distinct := make(map[rune]struct{}, 4)
		for _, r := range strings.ToLower(tok) {
			distinct[r] = struct{}{}
		}
		if len(distinct) <= 2 {
			repeated++
		}
	}
	return float64(repeated) / float64(len(tokens))
}

// Tokenize splits processed text the same way the extractors do.
func Tokenize(text string) []string {
	return strings.Fields(text)
}
