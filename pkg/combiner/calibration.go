package combiner

import (
	"errors"
	"fmt"
	"math"
)

// LinearMap is score = Intercept + (value - Base) * Slope.
type LinearMap struct {
	Intercept float64 `json:"intercept" yaml:"intercept"`
	Base      float64 `json:"base" yaml:"base"`
	Slope     float64 `json:"slope" yaml:"slope"`
}

func (m LinearMap) Apply(value float64) float64 {
	return m.Intercept + (value-m.Base)*m.Slope
}

// KnowledgeWeights are the fixed dimension weights of the knowledge-based
// combination. They must sum to 1.
type KnowledgeWeights struct {
	Vocabulary float64 `json:"vocabulary_sophistication" yaml:"vocabulary_sophistication"`
	Diversity  float64 `json:"lexical_diversity" yaml:"lexical_diversity"`
	Sentence   float64 `json:"sentence_complexity" yaml:"sentence_complexity"`
	Grammar    float64 `json:"grammatical_precision" yaml:"grammatical_precision"`
}

// Calibration gathers every constant behind the scoring formulas so a
// re-calibration changes one value instead of a hunt through code. The
// shipped values were fitted against graded writing samples.
type Calibration struct {
	Version string `json:"version" yaml:"version"`

	// Vocabulary sophistication. CWR estimates above CWRDeflateAbove are
	// pulled back toward the scale center; the AoA mapping adds a
	// percent-advanced term on top of the linear part.
	CWRDeflateAbove       float64   `json:"cwr_deflate_above" yaml:"cwr_deflate_above"`
	CWRDeflateSlope       float64   `json:"cwr_deflate_slope" yaml:"cwr_deflate_slope"`
	VocabularyAoA         LinearMap `json:"vocabulary_aoa" yaml:"vocabulary_aoa"`
	VocabularyAoAPctSlope float64   `json:"vocabulary_aoa_pct_slope" yaml:"vocabulary_aoa_pct_slope"`

	Diversity           LinearMap `json:"diversity" yaml:"diversity"`
	Sentence            LinearMap `json:"sentence" yaml:"sentence"`
	SentenceDefaultAvg  float64   `json:"sentence_default_avg" yaml:"sentence_default_avg"`
	Grammar             LinearMap `json:"grammar" yaml:"grammar"`
	GrammarDefaultDepth float64   `json:"grammar_default_depth" yaml:"grammar_default_depth"`

	// NeutralScore stands in for any dimension with no signal.
	NeutralScore float64 `json:"neutral_score" yaml:"neutral_score"`

	Weights KnowledgeWeights `json:"weights" yaml:"weights"`

	DimensionMin float64 `json:"dimension_min" yaml:"dimension_min"`
	DimensionMax float64 `json:"dimension_max" yaml:"dimension_max"`
	FinalMin     float64 `json:"final_min" yaml:"final_min"`
	FinalMax     float64 `json:"final_max" yaml:"final_max"`

	// Confidence blends dimension agreement with methodology availability.
	AgreementFloor     float64 `json:"agreement_floor" yaml:"agreement_floor"`
	AgreementStdSlope  float64 `json:"agreement_std_slope" yaml:"agreement_std_slope"`
	AvailabilityBase   float64 `json:"availability_base" yaml:"availability_base"`
	AvailabilityPerSet float64 `json:"availability_per_set" yaml:"availability_per_set"`
	AgreementShare     float64 `json:"agreement_share" yaml:"agreement_share"`
	ConfidenceMin      float64 `json:"confidence_min" yaml:"confidence_min"`
	ConfidenceMax      float64 `json:"confidence_max" yaml:"confidence_max"`

	// Rule-based path.
	RuleStylometryTTR      LinearMap `json:"rule_stylometry_ttr" yaml:"rule_stylometry_ttr"`
	RuleLengthBonus        LinearMap `json:"rule_length_bonus" yaml:"rule_length_bonus"`
	RuleLengthBonusMin     float64   `json:"rule_length_bonus_min" yaml:"rule_length_bonus_min"`
	RuleLengthBonusMax     float64   `json:"rule_length_bonus_max" yaml:"rule_length_bonus_max"`
	RuleAoA                LinearMap `json:"rule_aoa" yaml:"rule_aoa"`
	RuleAoAPctSlope        float64   `json:"rule_aoa_pct_slope" yaml:"rule_aoa_pct_slope"`
	RuleClipMin            float64   `json:"rule_clip_min" yaml:"rule_clip_min"`
	RuleClipMax            float64   `json:"rule_clip_max" yaml:"rule_clip_max"`
	RuleAgreementFloor     float64   `json:"rule_agreement_floor" yaml:"rule_agreement_floor"`
	RuleAgreementStdSlope  float64   `json:"rule_agreement_std_slope" yaml:"rule_agreement_std_slope"`
	RuleFallbackConfidence float64   `json:"rule_fallback_confidence" yaml:"rule_fallback_confidence"`

	// Heuristic-syntax coefficients, consumed at extractor construction.
	SyntaxIntercept   float64 `json:"syntax_intercept" yaml:"syntax_intercept"`
	SyntaxPunctCoeff  float64 `json:"syntax_punct_coeff" yaml:"syntax_punct_coeff"`
	SyntaxClauseCoeff float64 `json:"syntax_clause_coeff" yaml:"syntax_clause_coeff"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		Version: "v1",

		CWRDeflateAbove:       140,
		CWRDeflateSlope:       0.4,
		VocabularyAoA:         LinearMap{Intercept: 70, Base: 3.91, Slope: 24},
		VocabularyAoAPctSlope: 1.0,

		Diversity:           LinearMap{Intercept: 70, Base: 0.659, Slope: 170},
		Sentence:            LinearMap{Intercept: 60, Base: 11.0, Slope: 6.0},
		SentenceDefaultAvg:  10.0,
		Grammar:             LinearMap{Intercept: 53, Base: 1.795, Slope: 80},
		GrammarDefaultDepth: 3.0,

		NeutralScore: 100,

		Weights: KnowledgeWeights{
			Vocabulary: 0.35,
			Diversity:  0.25,
			Sentence:   0.20,
			Grammar:    0.20,
		},

		DimensionMin: 50,
		DimensionMax: 130,
		FinalMin:     50,
		FinalMax:     150,

		AgreementFloor:     50,
		AgreementStdSlope:  5,
		AvailabilityBase:   50,
		AvailabilityPerSet: 11,
		AgreementShare:     0.7,
		ConfidenceMin:      30,
		ConfidenceMax:      95,

		RuleStylometryTTR:      LinearMap{Intercept: 100, Base: 0.5, Slope: 60},
		RuleLengthBonus:        LinearMap{Intercept: 0, Base: 10, Slope: 2},
		RuleLengthBonusMin:     12,
		RuleLengthBonusMax:     20,
		RuleAoA:                LinearMap{Intercept: 100, Base: 8, Slope: 7},
		RuleAoAPctSlope:        0.5,
		RuleClipMin:            70,
		RuleClipMax:            150,
		RuleAgreementFloor:     50,
		RuleAgreementStdSlope:  2,
		RuleFallbackConfidence: 70,

		SyntaxIntercept:   1.795,
		SyntaxPunctCoeff:  0.3,
		SyntaxClauseCoeff: 0.2,
	}
}

// Validate checks the structural requirements the formulas rely on.
func (c Calibration) Validate() error {
	sum := c.Weights.Vocabulary + c.Weights.Diversity + c.Weights.Sentence + c.Weights.Grammar
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("dimension weights sum to %v, want 1", sum)
	}
	if c.DimensionMin >= c.DimensionMax {
		return errors.New("dimension clip range is empty")
	}
	if c.FinalMin >= c.FinalMax {
		return errors.New("final clip range is empty")
	}
	if c.ConfidenceMin >= c.ConfidenceMax {
		return errors.New("confidence clip range is empty")
	}
	if c.RuleClipMin >= c.RuleClipMax {
		return errors.New("rule clip range is empty")
	}
	if c.AgreementShare < 0 || c.AgreementShare > 1 {
		return fmt.Errorf("agreement share %v outside [0,1]", c.AgreementShare)
	}
	return nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// popStd is the population standard deviation.
func popStd(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := 0.0
	for _, v := range vals {
		m += v
	}
	m /= float64(len(vals))
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}
