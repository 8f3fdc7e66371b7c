package combiner

import (
	"fmt"
	"log/slog"
	"math"
)

// Dimension names on the common ability scale.
const (
	DimVocabulary = "vocabulary_sophistication"
	DimDiversity  = "lexical_diversity"
	DimSentence   = "sentence_complexity"
	DimGrammar    = "grammatical_precision"
)

const MethodKnowledge = "knowledge_based"

// Estimate is the knowledge-based verdict: a clipped point estimate, the
// four dimension scores behind it, and a confidence in [30,95].
type Estimate struct {
	IQ           float64
	Confidence   float64
	Dimensions   map[string]float64
	Method       string
	FeaturesUsed int
}

// KnowledgeBased maps feature bundles onto four ability dimensions with
// calibrated linear formulas and combines them by fixed weights.
type KnowledgeBased struct {
	cal Calibration
	log *slog.Logger
}

func NewKnowledgeBased(cal Calibration, log *slog.Logger) (*KnowledgeBased, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &KnowledgeBased{cal: cal, log: log}, nil
}

func (k *KnowledgeBased) EstimateIQ(bundle *FeatureBundle) Estimate {
	cal := k.cal
	dims := map[string]float64{
		DimVocabulary: k.vocabularyScore(bundle),
		DimDiversity:  k.diversityScore(bundle),
		DimSentence:   k.sentenceScore(bundle),
		DimGrammar:    k.grammarScore(bundle),
	}

	// Fixed dimension order keeps the float accumulation reproducible.
	weighted := dims[DimVocabulary]*cal.Weights.Vocabulary +
		dims[DimDiversity]*cal.Weights.Diversity +
		dims[DimSentence]*cal.Weights.Sentence +
		dims[DimGrammar]*cal.Weights.Grammar
	iq := clip(weighted, cal.FinalMin, cal.FinalMax)

	scores := []float64{dims[DimVocabulary], dims[DimDiversity], dims[DimSentence], dims[DimGrammar]}
	agreement := math.Max(cal.AgreementFloor, 100-popStd(scores)*cal.AgreementStdSlope)
	availability := cal.AvailabilityBase + float64(bundle.Available())*cal.AvailabilityPerSet
	confidence := clip(cal.AgreementShare*agreement+(1-cal.AgreementShare)*availability,
		cal.ConfidenceMin, cal.ConfidenceMax)

	return Estimate{
		IQ:           iq,
		Confidence:   confidence,
		Dimensions:   dims,
		Method:       MethodKnowledge,
		FeaturesUsed: bundle.Available(),
	}
}

// vocabularyScore averages the lexicon-ratio and acquisition-age signals.
// The dimension is deliberately unclipped; only the final combination clips.
func (k *KnowledgeBased) vocabularyScore(b *FeatureBundle) float64 {
	cal := k.cal
	var signals []float64
	if b.CWR != nil {
		est := b.CWR.Estimate
		if est > cal.CWRDeflateAbove {
			est = cal.NeutralScore + (est-cal.NeutralScore)*cal.CWRDeflateSlope
		}
		signals = append(signals, est)
	}
	// A zero-match acquisition-age pass carries no signal, which is not
	// the same as a low one.
	if b.AoA != nil && b.AoA.HasTest() {
		signals = append(signals,
			cal.VocabularyAoA.Apply(b.AoA.MeanTest)+b.AoA.PctAdvanced*cal.VocabularyAoAPctSlope)
	}
	switch len(signals) {
	case 0:
		return cal.NeutralScore
	case 1:
		return signals[0]
	default:
		return (signals[0] + signals[1]) / 2
	}
}

func (k *KnowledgeBased) diversityScore(b *FeatureBundle) float64 {
	if b.Stylometry == nil {
		return k.cal.NeutralScore
	}
	return clip(k.cal.Diversity.Apply(b.Stylometry.TTR), k.cal.DimensionMin, k.cal.DimensionMax)
}

func (k *KnowledgeBased) sentenceScore(b *FeatureBundle) float64 {
	if b.Stylometry == nil {
		return k.cal.NeutralScore
	}
	avg := b.Stylometry.AvgWordsPerSentence
	if avg <= 0 {
		avg = k.cal.SentenceDefaultAvg
	}
	return clip(k.cal.Sentence.Apply(avg), k.cal.DimensionMin, k.cal.DimensionMax)
}

func (k *KnowledgeBased) grammarScore(b *FeatureBundle) float64 {
	if b.Stylometry == nil {
		return k.cal.NeutralScore
	}
	depth := k.cal.GrammarDefaultDepth
	if syn := b.Stylometry.Syntax; syn != nil && syn.HasDepth {
		depth = syn.AvgDependencyDepth
	}
	return clip(k.cal.Grammar.Apply(depth), k.cal.DimensionMin, k.cal.DimensionMax)
}
