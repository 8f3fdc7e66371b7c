// Package lexicon implements the collegiate-word-ratio (CWR) vocabulary
// sophistication extractor: the fraction of tokens matching a curated
// academic lexicon, z-scored against a background corpus and mapped onto a
// 100-mean, 15-SD scale.
package lexicon

import (
	"bufio"
	"bytes"
	_ "embed"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed data/collegiate.txt
var defaultLexicon []byte

// sampleLimit caps the matched-word sample kept for diagnostics.
const sampleLimit = 20

var stemSuffixes = []string{"ing", "ed", "er", "est", "ly", "s", "es"}

// Features is the typed output of one CWR computation. Estimate is not
// clipped here; downstream combiners clip at their boundaries.
type Features struct {
	Ratio         float64  `json:"cwr" yaml:"cwr"`
	ZScore        float64  `json:"z_score" yaml:"z_score"`
	Estimate      float64  `json:"iq_estimate" yaml:"iq_estimate"`
	Matched       int      `json:"num_collegiate_words" yaml:"num_collegiate_words"`
	Total         int      `json:"total_words" yaml:"total_words"`
	MatchedSample []string `json:"collegiate_words,omitempty" yaml:"collegiate_words,omitempty"`
}

// Options configure lexicon loading and calibration.
type Options struct {
	// LexiconPath points at a newline-delimited word list. Empty selects
	// the bundled collegiate lexicon.
	LexiconPath    string
	BackgroundMean float64
	BackgroundStd  float64
	// StripSuffixes removes one common suffix from tokens longer than
	// three runes before matching.
	StripSuffixes bool
}

// DefaultOptions returns the calibrated background-corpus parameters.
func DefaultOptions() Options {
	return Options{
		BackgroundMean: 0.15,
		BackgroundStd:  0.05,
	}
}

// Extractor matches tokens against an immutable lexicon loaded once at
// construction. Safe for concurrent use.
type Extractor struct {
	words map[string]struct{}
	opts  Options
	log   *slog.Logger
}

// New loads the lexicon and returns a ready extractor. A configured path
// that cannot be read degrades to an empty lexicon with a warning; the
// pipeline keeps running with a zero ratio.
func New(opts Options, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	e := &Extractor{
		words: make(map[string]struct{}),
		opts:  opts,
		log:   log,
	}

	var r io.Reader
	if opts.LexiconPath == "" {
		r = bytes.NewReader(defaultLexicon)
	} else {
		f, err := os.Open(opts.LexiconPath)
		if err != nil {
			log.Warn("lexicon not readable, matching with empty lexicon", "path", opts.LexiconPath, "error", err)
			return e
		}
		defer f.Close()
		r = f
	}

	e.load(r)
	log.Debug("lexicon loaded", "entries", len(e.words), "path", opts.LexiconPath)
	return e
}

// load reads one headword per line, skipping blanks and # comments, and
// stores each entry in lower, upper, and capitalized forms.
func (e *Extractor) load(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e.words[strings.ToLower(line)] = struct{}{}
		e.words[strings.ToUpper(line)] = struct{}{}
		e.words[capitalize(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		e.log.Warn("lexicon read interrupted", "error", err)
	}
}

// Size reports the number of stored lexicon forms.
func (e *Extractor) Size() int {
	return len(e.words)
}

// Extract tokenizes on whitespace and computes the ratio features.
func (e *Extractor) Extract(text string) Features {
	return e.Compute(strings.Fields(text))
}

// Compute counts lexicon matches over the token list.
//
// The match rule is deliberately loose: after normalization a token matches
// when it equals an entry or shares a prefix with one in either direction.
// Short tokens over-match as a consequence; callers tolerate the inflated
// ratio. Kept as-is pending a calibration review.
func (e *Extractor) Compute(tokens []string) Features {
	if len(tokens) == 0 {
		return Features{Estimate: 100.0}
	}

	matched := 0
	var sample []string
	for _, tok := range tokens {
		norm := e.normalize(tok)
		if e.matches(norm) {
			matched++
			if len(sample) < sampleLimit {
				sample = append(sample, tok)
			}
		}
	}

	ratio := float64(matched) / float64(len(tokens))
	z := 0.0
	if e.opts.BackgroundStd > 0 {
		z = (ratio - e.opts.BackgroundMean) / e.opts.BackgroundStd
	}

	return Features{
		Ratio:         ratio,
		ZScore:        z,
		Estimate:      100 + 15*z,
		Matched:       matched,
		Total:         len(tokens),
		MatchedSample: sample,
	}
}

func (e *Extractor) matches(norm string) bool {
	if _, ok := e.words[norm]; ok {
		return true
	}
	for w := range e.words {
		if strings.HasPrefix(norm, w) || strings.HasPrefix(w, norm) {
			return true
		}
	}
	return false
}

// normalize strips punctuation, lowercases, and optionally removes one
// common suffix from tokens longer than three runes.
func (e *Extractor) normalize(tok string) string {
	word := strings.ToLower(stripPunct(tok))

	if e.opts.StripSuffixes && utf8.RuneCountInString(word) > 3 {
		for _, suffix := range stemSuffixes {
			if strings.HasSuffix(word, suffix) {
				word = word[:len(word)-len(suffix)]
				break
			}
		}
	}
	return word
}

// stripPunct keeps word characters and whitespace only.
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
