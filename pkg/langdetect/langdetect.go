// Package langdetect provides the language-detection strategies used by the
// preprocessing gate. Detection is advisory metadata only and never
// invalidates input.
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Unknown is reported when no supported language is recognized.
const Unknown = "unknown"

// commonEnglish are high-frequency function words used by the heuristic
// detector. More than 10 hits among the first 100 tokens reads as English.
var commonEnglish = map[string]struct{}{
	"the": {}, "be": {}, "to": {}, "of": {}, "and": {}, "a": {}, "in": {}, "that": {},
	"have": {}, "i": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {}, "he": {},
}

// Heuristic detects English by counting common function words. It is the
// default detector: deterministic, dependency-free, and cheap.
type Heuristic struct{}

// Detect returns "en" or Unknown.
func (Heuristic) Detect(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 100 {
		words = words[:100]
	}

	hits := 0
	for _, w := range words {
		if _, ok := commonEnglish[w]; ok {
			hits++
		}
	}
	if hits > 10 {
		return "en"
	}
	return Unknown
}

// Lingua detects languages with the lingua-go statistical models. Use it
// when input may arrive in languages other than the configured one; the
// estimation formulas themselves stay single-language.
type Lingua struct {
	detector lingua.LanguageDetector
}

// NewLingua builds a detector over the given candidate languages. With no
// candidates it covers the common European set.
func NewLingua(languages ...lingua.Language) *Lingua {
	if len(languages) == 0 {
		languages = []lingua.Language{
			lingua.English,
			lingua.Spanish,
			lingua.French,
			lingua.German,
			lingua.Portuguese,
			lingua.Italian,
		}
	}
	return &Lingua{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			Build(),
	}
}

// Detect returns the lowercase ISO 639-1 code of the most likely language,
// or Unknown when lingua is not confident enough to commit.
func (l *Lingua) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}
	language, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return Unknown
	}
	return strings.ToLower(language.IsoCode639_1().String())
}
