// Package stylometry measures writing style: lexical richness, sentence
// shape, punctuation habits, cohesion. The core metrics are pure token and
// character arithmetic; syntax and readability arrive through injected
// capabilities and degrade to absent when unavailable.
package stylometry

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// sentencePattern ends a sentence at terminal punctuation followed by
// whitespace, so abbreviation-free prose splits cleanly and a trailing
// period stays attached to the last sentence.
var sentencePattern = regexp.MustCompile(`[.!?]+\s+`)

const punctClass = `.,;:!?()-[]{}"'`

var connectives = map[string]struct{}{
	"and": {}, "but": {}, "or": {}, "so": {}, "because": {}, "since": {},
	"although": {}, "however": {}, "therefore": {}, "furthermore": {},
	"moreover": {}, "nevertheless": {}, "thus": {}, "consequently": {},
	"hence": {}, "meanwhile": {}, "additionally": {},
}

// Features is the typed output of one stylometry pass. Core metrics are
// always present; Syntax and Readability are nil when the capability is
// absent or failed.
type Features struct {
	TTR    float64 `json:"ttr" yaml:"ttr"`
	MSTTR  float64 `json:"msttr" yaml:"msttr"`
	MTLD   float64 `json:"mtld" yaml:"mtld"`
	YulesK float64 `json:"yules_k" yaml:"yules_k"`

	AvgCharsPerWord        float64 `json:"avg_chars_per_word" yaml:"avg_chars_per_word"`
	AvgCharsPerSentence    float64 `json:"avg_chars_per_sentence" yaml:"avg_chars_per_sentence"`
	AvgWordsPerSentence    float64 `json:"avg_words_per_sentence" yaml:"avg_words_per_sentence"`
	StdWordsPerSentence    float64 `json:"std_words_per_sentence" yaml:"std_words_per_sentence"`
	MedianWordsPerSentence float64 `json:"median_words_per_sentence" yaml:"median_words_per_sentence"`

	PunctEntropy      float64 `json:"punct_entropy" yaml:"punct_entropy"`
	AvgLexicalOverlap float64 `json:"avg_lexical_overlap" yaml:"avg_lexical_overlap"`
	ConnectiveDensity float64 `json:"connective_density" yaml:"connective_density"`
	ConnectiveCount   int     `json:"connective_count" yaml:"connective_count"`

	Syntax      *SyntaxInfo        `json:"syntax,omitempty" yaml:"syntax,omitempty"`
	Readability *ReadabilityScores `json:"readability,omitempty" yaml:"readability,omitempty"`
}

// Options toggle individual metric groups. Disabled metrics stay at their
// zero value in Features.
type Options struct {
	TTR            bool
	MSTTR          bool
	MTLD           bool
	YulesK         bool
	LengthStats    bool
	PunctEntropy   bool
	LexicalOverlap bool
	Connectives    bool

	MSTTRSegmentSize int
	MTLDThreshold    float64
}

func DefaultOptions() Options {
	return Options{
		TTR:            true,
		MSTTR:          true,
		MTLD:           true,
		YulesK:         true,
		LengthStats:    true,
		PunctEntropy:   true,
		LexicalOverlap: true,
		Connectives:    true,

		MSTTRSegmentSize: 100,
		MTLDThreshold:    0.72,
	}
}

type Extractor struct {
	opts        Options
	syntax      SyntaxAnalyzer
	readability ReadabilityScorer
	log         *slog.Logger
}

// New builds an extractor. Either capability may be nil; the corresponding
// feature group is then never produced.
func New(opts Options, syntax SyntaxAnalyzer, readability ReadabilityScorer, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	if opts.MSTTRSegmentSize <= 0 {
		opts.MSTTRSegmentSize = 100
	}
	if opts.MTLDThreshold <= 0 {
		opts.MTLDThreshold = 0.72
	}
	return &Extractor{opts: opts, syntax: syntax, readability: readability, log: log}
}

// Extract computes every enabled metric over the raw text. Tokens keep
// their punctuation; TTR and Yule's K are case-sensitive on purpose, MTLD
// folds case per its definition.
func (e *Extractor) Extract(text string) Features {
	tokens := strings.Fields(text)
	sentences := splitSentences(text)

	var f Features
	if e.opts.TTR {
		f.TTR = typeTokenRatio(tokens)
	}
	if e.opts.MSTTR {
		f.MSTTR = e.msttr(tokens)
	}
	if e.opts.MTLD {
		f.MTLD = e.mtld(tokens)
	}
	if e.opts.YulesK {
		f.YulesK = yulesK(tokens)
	}
	if e.opts.LengthStats {
		e.lengthStats(&f, sentences, tokens)
	}
	if e.opts.PunctEntropy {
		f.PunctEntropy = punctEntropy(text)
	}
	if e.opts.LexicalOverlap {
		f.AvgLexicalOverlap = lexicalOverlap(sentences)
	}
	if e.opts.Connectives {
		f.ConnectiveDensity, f.ConnectiveCount = connectiveDensity(text)
	}

	if e.syntax != nil {
		info, err := e.syntax.Analyze(text)
		if err != nil {
			e.log.Warn("syntax analysis failed", "error", err)
		} else {
			f.Syntax = &info
		}
	}
	if e.readability != nil {
		scores, err := e.readability.Score(text)
		if err != nil {
			e.log.Warn("readability scoring failed", "error", err)
		} else {
			f.Readability = &scores
		}
	}
	return f
}

func splitSentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func typeTokenRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	types := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		types[tok] = struct{}{}
	}
	return float64(len(types)) / float64(len(tokens))
}

// msttr averages the TTR of consecutive full segments; a trailing partial
// segment is discarded so short texts report 0.
func (e *Extractor) msttr(tokens []string) float64 {
	size := e.opts.MSTTRSegmentSize
	var ttrs []float64
	for i := 0; i+size <= len(tokens); i += size {
		ttrs = append(ttrs, typeTokenRatio(tokens[i:i+size]))
	}
	if len(ttrs) == 0 {
		return 0
	}
	return mean(ttrs)
}

// mtld grows a factor until its type-token ratio drops below the threshold,
// then starts a new one. The trailing factor counts whole regardless of how
// far its ratio got.
func (e *Extractor) mtld(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var factorLengths []float64
	factorLen := 0
	types := make(map[string]struct{})
	for _, tok := range tokens {
		factorLen++
		types[strings.ToLower(tok)] = struct{}{}
		if float64(len(types))/float64(factorLen) < e.opts.MTLDThreshold {
			factorLengths = append(factorLengths, float64(factorLen))
			factorLen = 0
			types = make(map[string]struct{})
		}
	}
	if factorLen > 0 {
		factorLengths = append(factorLengths, float64(factorLen))
	}
	if len(factorLengths) == 0 {
		return 0
	}
	return mean(factorLengths)
}

// yulesK is 10000 * (sum of squared frequencies - N) / N^2. Higher values
// mean more repetition.
func yulesK(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	sumSquared := 0
	for _, c := range counts {
		sumSquared += c * c
	}
	n := float64(len(tokens))
	return 10000 * (float64(sumSquared) - n) / (n * n)
}

func (e *Extractor) lengthStats(f *Features, sentences, tokens []string) {
	if len(sentences) == 0 || len(tokens) == 0 {
		return
	}

	runeSum := 0
	for _, tok := range tokens {
		runeSum += utf8.RuneCountInString(tok)
	}
	f.AvgCharsPerWord = float64(runeSum) / float64(len(tokens))

	sentRunes := 0
	wordsPer := make([]float64, len(sentences))
	for i, s := range sentences {
		sentRunes += utf8.RuneCountInString(s)
		wordsPer[i] = float64(len(strings.Fields(s)))
	}
	f.AvgCharsPerSentence = float64(sentRunes) / float64(len(sentences))
	f.AvgWordsPerSentence = mean(wordsPer)
	f.StdWordsPerSentence = sampleStd(wordsPer)
	f.MedianWordsPerSentence = median(wordsPer)
}

func punctEntropy(text string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range text {
		if strings.ContainsRune(punctClass, r) {
			counts[r]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	// Summed in class order so the float accumulation is reproducible.
	entropy := 0.0
	for _, r := range punctClass {
		c := counts[r]
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// lexicalOverlap measures word reuse between adjacent sentences as the
// intersection size over the larger sentence's vocabulary.
func lexicalOverlap(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}
	var overlaps []float64
	for i := 0; i < len(sentences)-1; i++ {
		a := wordSet(sentences[i])
		b := wordSet(sentences[i+1])
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		shared := 0
		for w := range a {
			if _, ok := b[w]; ok {
				shared++
			}
		}
		larger := len(a)
		if len(b) > larger {
			larger = len(b)
		}
		overlaps = append(overlaps, float64(shared)/float64(larger))
	}
	if len(overlaps) == 0 {
		return 0
	}
	return mean(overlaps)
}

func wordSet(sentence string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(sentence)) {
		set[w] = struct{}{}
	}
	return set
}

// connectiveDensity counts exact matches against a fixed connective list.
// A connective with trailing punctuation does not match; the list targets
// mid-clause usage.
func connectiveDensity(text string) (float64, int) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return 0, 0
	}
	count := 0
	for _, tok := range tokens {
		if _, ok := connectives[tok]; ok {
			count++
		}
	}
	return float64(count) / float64(len(tokens)), count
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStd uses n-1 degrees of freedom and reports 0 for fewer than two
// observations.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
