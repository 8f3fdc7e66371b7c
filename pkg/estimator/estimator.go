// Package estimator assembles the full pipeline behind a single call:
// normalize the input, run every enabled methodology against it, and
// combine whatever survived into one estimate with a confidence.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/aoa"
	"github.com/dtnitsch/textiq/pkg/combiner"
	"github.com/dtnitsch/textiq/pkg/embedding"
	"github.com/dtnitsch/textiq/pkg/langdetect"
	"github.com/dtnitsch/textiq/pkg/lexicon"
	"github.com/dtnitsch/textiq/pkg/preprocess"
	"github.com/dtnitsch/textiq/pkg/stylometry"
	"github.com/dtnitsch/textiq/pkg/vocab"
)

// ErrVocabDisabled is returned by EstimateVocab when the vocabulary scorer
// was switched off in the configuration.
var ErrVocabDisabled = errors.New("vocabulary scorer disabled")

// Estimator runs the configured estimation pipeline. Construction loads
// reference data once; an Estimator is safe for concurrent use.
type Estimator struct {
	cfg       *models.Config
	pre       *preprocess.Preprocessor
	cwr       *lexicon.Extractor
	aoa       *aoa.Extractor
	sty       *stylometry.Extractor
	emb       *embedding.Extractor
	embedder  embedding.Embedder
	knowledge *combiner.KnowledgeBased
	rule      *combiner.RuleBased
	scorer    *vocab.Scorer
	log       *slog.Logger
}

// New builds an estimator from cfg. A nil cfg selects the defaults, a nil
// logger falls back to slog.Default. Disabled methodologies are simply not
// constructed; an unreachable embedding service downgrades to a warning so
// the text-only pipeline keeps working.
func New(cfg *models.Config, log *slog.Logger) (*Estimator, error) {
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	cal := buildCalibration(cfg.Calibration)
	knowledge, err := combiner.NewKnowledgeBased(cal, log)
	if err != nil {
		return nil, fmt.Errorf("building knowledge combiner: %w", err)
	}
	rule, err := combiner.NewRuleBased(cal, combiner.RuleWeights{
		CWR:        cfg.Combiner.RuleWeights.CWR,
		Stylometry: cfg.Combiner.RuleWeights.Stylometry,
		Embeddings: cfg.Combiner.RuleWeights.Embeddings,
		AoA:        cfg.Combiner.RuleWeights.AoA,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("building rule combiner: %w", err)
	}

	e := &Estimator{
		cfg:       cfg,
		pre:       preprocess.New(preprocessOptions(cfg.Processing), detectorFor(cfg.Processing.Detector)),
		knowledge: knowledge,
		rule:      rule,
		log:       log,
	}

	if models.Bool(cfg.Features.CWR.Enabled) {
		e.cwr = lexicon.New(lexicon.Options{
			LexiconPath:    cfg.Features.CWR.LexiconFile,
			BackgroundMean: cfg.Features.CWR.BackgroundMean,
			BackgroundStd:  cfg.Features.CWR.BackgroundStd,
			StripSuffixes:  cfg.Features.CWR.StripSuffixes,
		}, log)
	}
	if models.Bool(cfg.Features.AoA.Enabled) {
		e.aoa = aoa.New(aoa.Options{
			TablePath:     cfg.Features.AoA.TableFile,
			StripSuffixes: cfg.Features.AoA.StripSuffixes,
		}, log)
	}
	if models.Bool(cfg.Features.Stylometry.Enabled) {
		e.sty = stylometry.New(
			stylometryOptions(cfg.Features.Stylometry),
			syntaxFor(cfg.Features.Stylometry.Syntax, cal),
			readabilityFor(cfg.Features.Stylometry.Readability),
			log,
		)
	}
	if cfg.Features.Embeddings.Enabled {
		embedder, err := buildEmbedder(cfg.Features.Embeddings, log)
		if err != nil {
			log.Warn("embedding capability unavailable", "error", err)
		} else {
			e.embedder = embedder
			e.emb = embedding.NewExtractor(embedder, log)
		}
	}
	if models.Bool(cfg.Features.VocabScorer.Enabled) {
		e.scorer = vocab.NewScorer(e.embedder,
			cfg.Features.VocabScorer.Threshold1Pt,
			cfg.Features.VocabScorer.Threshold2Pt,
			log)
	}
	return e, nil
}

// Close releases the embedding capability, if one was built.
func (e *Estimator) Close() error {
	if e.embedder == nil {
		return nil
	}
	return e.embedder.Close()
}

// Estimate scores a single text. The result always carries preprocessing
// metadata; IQEstimate stays nil when the input was rejected. Identical
// text and configuration produce identical results, embedding service
// responses aside.
func (e *Estimator) Estimate(ctx context.Context, text string, mode preprocess.Mode) *models.EstimateResult {
	pre := e.pre.Process(text, mode)
	result := &models.EstimateResult{
		Preprocessing: &models.PreprocessInfo{
			OriginalLength:   pre.Metadata.OriginalLength,
			ProcessedLength:  pre.Metadata.ProcessedLength,
			TokenCount:       pre.Metadata.TokenCount,
			DetectedLanguage: pre.Metadata.DetectedLanguage,
			LanguageMatch:    pre.Metadata.LanguageMatch,
		},
	}
	if !pre.Valid {
		result.Error = pre.Reason
		e.log.Info("input rejected", "reason", pre.Reason, "tokens", pre.TokenCount)
		return result
	}

	bundle, methods := e.extract(ctx, pre.Text)
	result.Methods = methods
	result.FeatureCoverage = bundle.Available()

	if e.cfg.Combiner.Method == "rule" {
		est := e.rule.Combine(bundle)
		iq := est.IQ
		result.IQEstimate = &iq
		result.Confidence = est.Confidence
		result.Method = est.Method
		result.MethodEstimates = est.ByMethod
		result.WeightsUsed = est.Weights
	} else {
		est := e.knowledge.EstimateIQ(bundle)
		iq := est.IQ
		result.IQEstimate = &iq
		result.Confidence = est.Confidence
		result.Method = est.Method
		result.DimensionScores = est.Dimensions
	}
	result.IsValid = true
	return result
}

// EstimateVocab scores a graded vocabulary test. The scorer requires the
// embedding capability; without one the error is vocab.ErrNoEmbedder.
func (e *Estimator) EstimateVocab(ctx context.Context, items []vocab.Item) (*vocab.Estimate, error) {
	if e.scorer == nil {
		return nil, ErrVocabDisabled
	}
	return e.scorer.EstimateVocab(ctx, items)
}

// extract runs every constructed methodology against the cleaned text.
// Failures stay local: an extractor that errors or panics contributes an
// error entry and nothing else, and the remaining methodologies still run.
func (e *Estimator) extract(ctx context.Context, text string) (*combiner.FeatureBundle, map[string]models.MethodDetail) {
	bundle := &combiner.FeatureBundle{Errors: make(map[string]string)}
	methods := make(map[string]models.MethodDetail)

	fail := func(method string, err error) {
		bundle.Errors[method] = err.Error()
		methods[method] = models.MethodDetail{Error: err.Error()}
		e.log.Warn("methodology failed", "method", method, "error", err)
	}

	if e.cwr != nil {
		var feats lexicon.Features
		if err := guard(combiner.MethodCWR, func() error {
			feats = e.cwr.Extract(text)
			return nil
		}); err != nil {
			fail(combiner.MethodCWR, err)
		} else {
			bundle.CWR = &feats
			methods[combiner.MethodCWR] = models.MethodDetail{Features: &feats}
		}
	}
	if e.aoa != nil {
		var feats aoa.Features
		if err := guard(combiner.MethodAoA, func() error {
			var aerr error
			feats, aerr = e.aoa.Extract(text)
			return aerr
		}); err != nil {
			fail(combiner.MethodAoA, err)
		} else {
			bundle.AoA = &feats
			methods[combiner.MethodAoA] = models.MethodDetail{Features: &feats}
		}
	}
	if e.sty != nil {
		var feats stylometry.Features
		if err := guard(combiner.MethodStylometry, func() error {
			feats = e.sty.Extract(text)
			return nil
		}); err != nil {
			fail(combiner.MethodStylometry, err)
		} else {
			bundle.Stylometry = &feats
			methods[combiner.MethodStylometry] = models.MethodDetail{Features: &feats}
		}
	}
	if e.emb != nil {
		var feats *embedding.Features
		if err := guard(combiner.MethodEmbeddings, func() error {
			var xerr error
			feats, xerr = e.emb.Extract(ctx, text)
			return xerr
		}); err != nil {
			fail(combiner.MethodEmbeddings, err)
		} else {
			bundle.Embeddings = feats
			methods[combiner.MethodEmbeddings] = models.MethodDetail{Features: feats}
		}
	}
	return bundle, methods
}

// guard converts a panic inside one methodology into a plain error.
func guard(method string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s extraction panicked: %v", method, r)
		}
	}()
	return fn()
}

func buildEmbedder(cfg models.EmbeddingsConfig, log *slog.Logger) (embedding.Embedder, error) {
	var cache *embedding.Cache
	if cfg.CacheDir != "" {
		c, err := embedding.NewCache(cfg.CacheDir)
		if err != nil {
			log.Warn("embedding cache unavailable", "dir", cfg.CacheDir, "error", err)
		} else {
			cache = c
		}
	}
	return embedding.NewHTTPEmbedder(cfg.Endpoint, cfg.Model, cache, log)
}

func preprocessOptions(cfg models.ProcessingConfig) preprocess.Options {
	opts := preprocess.DefaultOptions()
	if cfg.MinLengthTokens > 0 {
		opts.MinTokensProse = cfg.MinLengthTokens
	}
	if cfg.MinLengthVocab > 0 {
		opts.MinTokensVocab = cfg.MinLengthVocab
	}
	opts.StripURLs = cfg.StripURLs
	opts.StripCode = cfg.StripCode
	opts.StripQuotes = cfg.StripQuotes
	opts.NormalizeUnicode = cfg.NormalizeUnicode
	if cfg.Language != "" {
		opts.Language = cfg.Language
	}
	return opts
}

func stylometryOptions(cfg models.StylometryConfig) stylometry.Options {
	opts := stylometry.DefaultOptions()
	opts.TTR = models.Bool(cfg.ComputeTTR)
	opts.MSTTR = models.Bool(cfg.ComputeMSTTR)
	opts.MTLD = models.Bool(cfg.ComputeMTLD)
	opts.YulesK = models.Bool(cfg.ComputeYulesK)
	opts.LengthStats = models.Bool(cfg.ComputeLengthStats)
	opts.PunctEntropy = models.Bool(cfg.ComputePunctEntropy)
	opts.LexicalOverlap = models.Bool(cfg.ComputeLexicalOverlap)
	opts.Connectives = models.Bool(cfg.ComputeConnectives)
	return opts
}

func syntaxFor(kind string, cal combiner.Calibration) stylometry.SyntaxAnalyzer {
	if kind == "none" {
		return nil
	}
	return stylometry.NewHeuristicSyntax(cal.SyntaxIntercept, cal.SyntaxPunctCoeff, cal.SyntaxClauseCoeff)
}

func readabilityFor(enabled *bool) stylometry.ReadabilityScorer {
	if !models.Bool(enabled) {
		return nil
	}
	return stylometry.NewIndexReadability()
}

func detectorFor(kind string) preprocess.LanguageDetector {
	if kind == "lingua" {
		return langdetect.NewLingua()
	}
	return langdetect.Heuristic{}
}

// buildCalibration layers the config overrides onto the built-in
// calibration. Zero values leave the default in place.
func buildCalibration(cfg models.CalibrationConfig) combiner.Calibration {
	cal := combiner.DefaultCalibration()
	if cfg.Version != "" {
		cal.Version = cfg.Version
	}
	if cfg.DepthIntercept > 0 {
		cal.SyntaxIntercept = cfg.DepthIntercept
	}
	if cfg.DepthPunctCoeff > 0 {
		cal.SyntaxPunctCoeff = cfg.DepthPunctCoeff
	}
	if cfg.DepthClauseCoeff > 0 {
		cal.SyntaxClauseCoeff = cfg.DepthClauseCoeff
	}
	return cal
}
