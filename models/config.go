// Package models defines shared configuration and result structures.
package models

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration, loadable from a YAML file.
// Every field has a documented default so a missing or partial file still
// yields a usable configuration.
type Config struct {
	Processing  ProcessingConfig  `yaml:"processing"`
	Features    FeaturesConfig    `yaml:"features"`
	Combiner    CombinerConfig    `yaml:"combiner"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Store       StoreConfig       `yaml:"store"`
	Server      ServerConfig      `yaml:"server"`
}

// ProcessingConfig controls the preprocessing and admission gate.
type ProcessingConfig struct {
	MinLengthTokens  int    `yaml:"min_length_tokens"` // minimum tokens for prose mode
	MinLengthVocab   int    `yaml:"min_length_vocab"`  // minimum tokens for vocab mode
	StripURLs        bool   `yaml:"strip_urls"`
	StripCode        bool   `yaml:"strip_code"`
	StripQuotes      bool   `yaml:"strip_quotes"`
	NormalizeUnicode bool   `yaml:"normalize_unicode"`
	Language         string `yaml:"language"` // expected language code
	Detector         string `yaml:"detector"` // "heuristic" or "lingua"
}

// FeaturesConfig toggles and parameterizes the feature extractors.
type FeaturesConfig struct {
	CWR         CWRConfig        `yaml:"cwr"`
	AoA         AoAConfig        `yaml:"aoa"`
	Stylometry  StylometryConfig `yaml:"stylometry"`
	Embeddings  EmbeddingsConfig `yaml:"embeddings"`
	VocabScorer VocabConfig      `yaml:"vocab_scorer"`
}

// CWRConfig parameterizes the collegiate-word-ratio extractor.
type CWRConfig struct {
	Enabled        *bool   `yaml:"enabled"`
	LexiconFile    string  `yaml:"lexicon_file"` // empty = bundled default lexicon
	BackgroundMean float64 `yaml:"background_corpus_mean"`
	BackgroundStd  float64 `yaml:"background_corpus_std"`
	StripSuffixes  bool    `yaml:"strip_suffixes"`
}

// AoAConfig parameterizes the age-of-acquisition extractor.
type AoAConfig struct {
	Enabled       *bool  `yaml:"enabled"`
	TableFile     string `yaml:"aoa_file"` // empty = bundled default table
	StripSuffixes bool   `yaml:"strip_suffixes"`
}

// StylometryConfig toggles individual stylometry metrics and the optional
// syntax/readability capabilities.
type StylometryConfig struct {
	Enabled               *bool  `yaml:"enabled"`
	ComputeTTR            *bool  `yaml:"compute_ttr"`
	ComputeMSTTR          *bool  `yaml:"compute_msttr"`
	ComputeMTLD           *bool  `yaml:"compute_mtld"`
	ComputeYulesK         *bool  `yaml:"compute_yules_k"`
	ComputeLengthStats    *bool  `yaml:"compute_length_stats"`
	ComputePunctEntropy   *bool  `yaml:"compute_punctuation_entropy"`
	ComputeLexicalOverlap *bool  `yaml:"compute_lexical_overlap"`
	ComputeConnectives    *bool  `yaml:"compute_connectives"`
	Syntax                string `yaml:"syntax"`      // "heuristic" or "none"
	Readability           *bool  `yaml:"readability"` // built-in index scorer
}

// EmbeddingsConfig configures the optional remote embedding capability.
// Disabled by default; estimation runs fully without it.
type EmbeddingsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	CacheDir string `yaml:"cache_dir"`
}

// VocabConfig configures the vocabulary-test scorer thresholds.
type VocabConfig struct {
	Enabled      *bool   `yaml:"enabled"`
	Threshold1Pt float64 `yaml:"cosine_threshold_1pt"`
	Threshold2Pt float64 `yaml:"cosine_threshold_2pt"`
}

// CombinerConfig selects the combination path and its weights.
type CombinerConfig struct {
	Method      string      `yaml:"method"` // "knowledge" or "rule"
	RuleWeights RuleWeights `yaml:"rule_weights"`
}

// RuleWeights are the base weights of the rule-based combiner, normalized
// at construction time.
type RuleWeights struct {
	CWR        float64 `yaml:"cwr"`
	Stylometry float64 `yaml:"stylometry"`
	Embeddings float64 `yaml:"embeddings"`
	AoA        float64 `yaml:"aoa"`
}

// CalibrationConfig overrides individual calibration constants. Zero values
// mean "use the built-in calibration"; see combiner.DefaultCalibration.
type CalibrationConfig struct {
	Version          string  `yaml:"version"`
	DepthIntercept   float64 `yaml:"depth_intercept"`
	DepthPunctCoeff  float64 `yaml:"depth_punct_coeff"`
	DepthClauseCoeff float64 `yaml:"depth_clause_coeff"`
}

// StoreConfig configures the estimation-run store.
type StoreConfig struct {
	Path string `yaml:"path"` // sqlite database file
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutSec int    `yaml:"read_timeout_sec"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Processing: ProcessingConfig{
			MinLengthTokens:  200,
			MinLengthVocab:   15,
			StripURLs:        true,
			StripCode:        true,
			StripQuotes:      true,
			NormalizeUnicode: true,
			Language:         "en",
			Detector:         "heuristic",
		},
		Features: FeaturesConfig{
			CWR: CWRConfig{
				BackgroundMean: 0.15,
				BackgroundStd:  0.05,
			},
			VocabScorer: VocabConfig{
				Threshold1Pt: 0.3,
				Threshold2Pt: 0.5,
			},
			Stylometry: StylometryConfig{
				Syntax: "heuristic",
			},
		},
		Combiner: CombinerConfig{
			Method: "knowledge",
			RuleWeights: RuleWeights{
				CWR:        0.40,
				Stylometry: 0.30,
				Embeddings: 0.20,
				AoA:        0.10,
			},
		},
		Store: StoreConfig{
			Path: "textiq.db",
		},
		Server: ServerConfig{
			Addr:           ":8470",
			ReadTimeoutSec: 30,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file or a
// partially malformed one degrades to defaults option-by-option; loading
// never aborts the program.
func LoadConfig(path string, log *slog.Logger) *Config {
	cfg := DefaultConfig()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("config file not readable, using defaults", "path", path, "error", err)
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		// yaml.v3 fills every decodable field before reporting type errors,
		// so a partial decode is still usable.
		if _, ok := err.(*yaml.TypeError); ok {
			log.Warn("config has malformed options, those fall back to defaults", "path", path, "error", err)
		} else {
			log.Warn("config not parseable, using defaults", "path", path, "error", err)
			return DefaultConfig()
		}
	}

	cfg.sanitize(log)
	return cfg
}

// sanitize pushes out-of-range options back to their defaults.
func (c *Config) sanitize(log *slog.Logger) {
	def := DefaultConfig()

	if c.Processing.MinLengthTokens <= 0 {
		c.Processing.MinLengthTokens = def.Processing.MinLengthTokens
	}
	if c.Processing.MinLengthVocab <= 0 {
		c.Processing.MinLengthVocab = def.Processing.MinLengthVocab
	}
	if c.Processing.Language == "" {
		c.Processing.Language = def.Processing.Language
	}
	switch c.Processing.Detector {
	case "heuristic", "lingua":
	default:
		if c.Processing.Detector != "" {
			log.Warn("unknown language detector, using heuristic", "detector", c.Processing.Detector)
		}
		c.Processing.Detector = "heuristic"
	}

	if c.Features.CWR.BackgroundStd <= 0 {
		c.Features.CWR.BackgroundStd = def.Features.CWR.BackgroundStd
	}
	if c.Features.CWR.BackgroundMean <= 0 {
		c.Features.CWR.BackgroundMean = def.Features.CWR.BackgroundMean
	}
	if c.Features.VocabScorer.Threshold1Pt <= 0 {
		c.Features.VocabScorer.Threshold1Pt = def.Features.VocabScorer.Threshold1Pt
	}
	if c.Features.VocabScorer.Threshold2Pt <= 0 {
		c.Features.VocabScorer.Threshold2Pt = def.Features.VocabScorer.Threshold2Pt
	}
	switch c.Features.Stylometry.Syntax {
	case "heuristic", "none":
	default:
		c.Features.Stylometry.Syntax = def.Features.Stylometry.Syntax
	}

	switch c.Combiner.Method {
	case "knowledge", "rule":
	default:
		if c.Combiner.Method != "" {
			log.Warn("unknown combiner method, using knowledge", "method", c.Combiner.Method)
		}
		c.Combiner.Method = "knowledge"
	}
	w := c.Combiner.RuleWeights
	if w.CWR < 0 || w.Stylometry < 0 || w.Embeddings < 0 || w.AoA < 0 ||
		w.CWR+w.Stylometry+w.Embeddings+w.AoA <= 0 {
		c.Combiner.RuleWeights = def.Combiner.RuleWeights
	}

	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = def.Server.ReadTimeoutSec
	}
}

// Bool resolves an optional feature toggle, defaulting to enabled.
func Bool(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

// String renders the effective configuration for debug logging.
func (c *Config) String() string {
	return fmt.Sprintf("combiner=%s detector=%s min_tokens=%d",
		c.Combiner.Method, c.Processing.Detector, c.Processing.MinLengthTokens)
}
