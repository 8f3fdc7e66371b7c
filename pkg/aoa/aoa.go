// Package aoa estimates vocabulary sophistication from age-of-acquisition
// norms: the age or school grade at which each word is typically learned.
// Matched tokens contribute their acquisition age to the statistics;
// unmatched tokens are excluded rather than penalized.
package aoa

import (
	"bytes"
	"compress/gzip"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed data/aoa.csv
var defaultTable []byte

const (
	// advancedAge is the acquisition age above which a word counts as
	// college-level for PctAdvanced.
	advancedAge = 10.0

	sampleLimit = 10
)

var (
	ErrNotLoaded = errors.New("AoA data not loaded")
	ErrEmptyText = errors.New("Empty text")
)

var stemSuffixes = []string{"ing", "ed", "er", "est", "ly", "s", "es"}

// Features holds acquisition-age statistics over the matched tokens of one
// text. When no token matches, the test statistics are NaN, not zero; callers
// must treat unavailable and low as different things.
type Features struct {
	MeanTest    float64 `json:"mean_aoa_test" yaml:"mean_aoa_test"`
	StdTest     float64 `json:"std_aoa_test" yaml:"std_aoa_test"`
	MedianTest  float64 `json:"median_aoa_test" yaml:"median_aoa_test"`
	MaxTest     float64 `json:"max_aoa_test" yaml:"max_aoa_test"`
	MinTest     float64 `json:"min_aoa_test" yaml:"min_aoa_test"`
	PctAdvanced float64 `json:"pct_advanced_test" yaml:"pct_advanced_test"`
	MatchRate   float64 `json:"match_rate" yaml:"match_rate"`
	MeanRating  float64 `json:"mean_aoa_rating" yaml:"mean_aoa_rating"`
	StdRating   float64 `json:"std_aoa_rating" yaml:"std_aoa_rating"`
	NumMatched  int     `json:"num_matched" yaml:"num_matched"`
	TotalWords  int     `json:"total_words" yaml:"total_words"`

	MatchedSample []string `json:"matched_words_sample,omitempty" yaml:"matched_words_sample,omitempty"`
}

// HasTest reports whether at least one token matched the test-based column.
func (f Features) HasTest() bool { return !math.IsNaN(f.MeanTest) }

// HasRating reports whether any matched token carried an adult-rated age.
func (f Features) HasRating() bool { return !math.IsNaN(f.MeanRating) }

// MarshalJSON writes unavailable statistics as null. encoding/json rejects
// NaN, and the rating keys disappear entirely when nothing was rated.
func (f Features) MarshalJSON() ([]byte, error) {
	type wire struct {
		MeanTest      *float64 `json:"mean_aoa_test"`
		StdTest       *float64 `json:"std_aoa_test"`
		MedianTest    *float64 `json:"median_aoa_test"`
		MaxTest       *float64 `json:"max_aoa_test"`
		MinTest       *float64 `json:"min_aoa_test"`
		PctAdvanced   float64  `json:"pct_advanced_test"`
		MatchRate     float64  `json:"match_rate"`
		MeanRating    *float64 `json:"mean_aoa_rating,omitempty"`
		StdRating     *float64 `json:"std_aoa_rating,omitempty"`
		NumMatched    int      `json:"num_matched"`
		TotalWords    int      `json:"total_words"`
		MatchedSample []string `json:"matched_words_sample,omitempty"`
	}
	nullable := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(wire{
		MeanTest:      nullable(f.MeanTest),
		StdTest:       nullable(f.StdTest),
		MedianTest:    nullable(f.MedianTest),
		MaxTest:       nullable(f.MaxTest),
		MinTest:       nullable(f.MinTest),
		PctAdvanced:   f.PctAdvanced,
		MatchRate:     f.MatchRate,
		MeanRating:    nullable(f.MeanRating),
		StdRating:     nullable(f.StdRating),
		NumMatched:    f.NumMatched,
		TotalWords:    f.TotalWords,
		MatchedSample: f.MatchedSample,
	})
}

type Options struct {
	// TablePath points at a CSV table with WORD, AoAtestbased and AoArating
	// columns, or a compact JSON object of word to age. A ".gz" suffix means
	// gzip on either format. Empty selects the bundled table.
	TablePath string

	// StripSuffixes removes one common inflectional suffix before lookup.
	StripSuffixes bool
}

func DefaultOptions() Options { return Options{} }

// Extractor looks up acquisition ages in reference tables loaded once at
// construction. Words can carry several observations; lookups average them.
type Extractor struct {
	test   map[string][]float64
	rating map[string][]float64
	opts   Options
	log    *slog.Logger
}

// New loads the table at opts.TablePath, or the bundled norms when the path
// is empty. An unreadable table degrades to an empty extractor with a
// warning; Extract then reports ErrNotLoaded per call.
func New(opts Options, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	e := &Extractor{
		test:   make(map[string][]float64),
		rating: make(map[string][]float64),
		opts:   opts,
		log:    log,
	}

	var err error
	if opts.TablePath == "" {
		err = e.loadCSV(bytes.NewReader(defaultTable))
	} else {
		err = e.loadFile(opts.TablePath)
	}
	if err != nil {
		log.Warn("acquisition-age table not loaded", "path", opts.TablePath, "error", err)
		e.test = make(map[string][]float64)
		e.rating = make(map[string][]float64)
		return e
	}

	log.Debug("acquisition-age table loaded",
		"test_words", len(e.test), "rating_words", len(e.rating))
	return e
}

// Size returns how many distinct words carry a test-based age.
func (e *Extractor) Size() int { return len(e.test) }

func (e *Extractor) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}
	if strings.HasSuffix(name, ".json") {
		return e.loadJSON(r)
	}
	return e.loadCSV(r)
}

func (e *Extractor) loadCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	wordCol, ok := cols["WORD"]
	if !ok {
		return errors.New("missing WORD column")
	}
	testCol, hasTestCol := cols["AoAtestbased"]
	ratingCol, hasRatingCol := cols["AoArating"]

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if wordCol >= len(rec) {
			continue
		}
		word := strings.ToLower(strings.TrimSpace(rec[wordCol]))
		if word == "" {
			continue
		}
		if hasTestCol && testCol < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[testCol]), 64); err == nil {
				e.test[word] = append(e.test[word], v)
			}
		}
		if hasRatingCol && ratingCol < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[ratingCol]), 64); err == nil {
				e.rating[word] = append(e.rating[word], v)
			}
		}
	}
	return nil
}

// loadJSON reads the compact word-to-age object produced for the test-based
// column. Single-letter entries are dropped; they are artifacts of the
// extraction, not vocabulary.
func (e *Extractor) loadJSON(r io.Reader) error {
	var table map[string]float64
	if err := json.NewDecoder(r).Decode(&table); err != nil {
		return err
	}
	for word, age := range table {
		word = strings.ToLower(strings.TrimSpace(word))
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		e.test[word] = append(e.test[word], age)
	}
	return nil
}

// Extract tokenizes on whitespace and computes acquisition-age features.
func (e *Extractor) Extract(text string) (Features, error) {
	return e.Compute(strings.Fields(text))
}

// Compute looks up every token and summarizes the ages of those that match.
func (e *Extractor) Compute(tokens []string) (Features, error) {
	if len(e.test) == 0 {
		return Features{}, ErrNotLoaded
	}
	if len(tokens) == 0 {
		return Features{}, ErrEmptyText
	}

	var (
		testVals   []float64
		ratingVals []float64
		matched    []string
	)
	for _, tok := range tokens {
		age, ok := e.lookup(e.test, tok)
		if !ok {
			continue
		}
		testVals = append(testVals, age)
		matched = append(matched, tok)
		if rated, ok := e.lookup(e.rating, tok); ok {
			ratingVals = append(ratingVals, rated)
		}
	}

	f := Features{TotalWords: len(tokens)}
	if len(testVals) == 0 {
		nan := math.NaN()
		f.MeanTest, f.StdTest, f.MedianTest = nan, nan, nan
		f.MaxTest, f.MinTest = nan, nan
		f.MeanRating, f.StdRating = nan, nan
		return f, nil
	}

	f.MeanTest = mean(testVals)
	f.StdTest = popStd(testVals)
	f.MedianTest = median(testVals)
	f.MaxTest, f.MinTest = bounds(testVals)

	advanced := 0
	for _, age := range testVals {
		if age > advancedAge {
			advanced++
		}
	}
	f.PctAdvanced = float64(advanced) / float64(len(testVals)) * 100
	f.MatchRate = float64(len(testVals)) / float64(len(tokens)) * 100
	f.NumMatched = len(testVals)

	f.MeanRating = math.NaN()
	f.StdRating = math.NaN()
	if len(ratingVals) > 0 {
		f.MeanRating = mean(ratingVals)
	}
	if len(ratingVals) > 1 {
		f.StdRating = popStd(ratingVals)
	}

	if len(matched) > sampleLimit {
		matched = matched[:sampleLimit]
	}
	f.MatchedSample = matched
	return f, nil
}

func (e *Extractor) lookup(table map[string][]float64, token string) (float64, bool) {
	vals, ok := table[e.normalize(token)]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return mean(vals), true
}

// normalize strips punctuation, lowercases, and optionally removes a single
// inflectional suffix from words longer than three runes.
func (e *Extractor) normalize(token string) string {
	word := strings.ToLower(stripPunct(token))
	if e.opts.StripSuffixes && utf8.RuneCountInString(word) > 3 {
		for _, suffix := range stemSuffixes {
			if strings.HasSuffix(word, suffix) {
				return word[:len(word)-len(suffix)]
			}
		}
	}
	return word
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// popStd is the population standard deviation, zero degrees of freedom.
func popStd(vals []float64) float64 {
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
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

func bounds(vals []float64) (max, min float64) {
	max, min = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}
