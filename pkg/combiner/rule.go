package combiner

import (
	"fmt"
	"log/slog"
	"math"
)

const MethodRule = "rule_based"

// methodOrder fixes the accumulation order for reproducible floats.
var methodOrder = []string{MethodCWR, MethodStylometry, MethodEmbeddings, MethodAoA}

// RuleWeights are the base votes per methodology, normalized at
// construction and re-normalized per call over the methodologies that
// actually produced an estimate.
type RuleWeights struct {
	CWR        float64 `json:"cwr" yaml:"cwr"`
	Stylometry float64 `json:"stylometry" yaml:"stylometry"`
	Embeddings float64 `json:"embeddings" yaml:"embeddings"`
	AoA        float64 `json:"aoa" yaml:"aoa"`
}

func DefaultRuleWeights() RuleWeights {
	return RuleWeights{CWR: 0.40, Stylometry: 0.30, Embeddings: 0.20, AoA: 0.10}
}

// RuleEstimate is the rule-based verdict with its per-method breakdown.
type RuleEstimate struct {
	IQ         float64
	Confidence float64
	ByMethod   map[string]float64
	Weights    map[string]float64
	NumMethods int
	Method     string
}

// RuleBased is the simpler cross-check path: each methodology votes its own
// scaled estimate and the votes combine by weight.
type RuleBased struct {
	cal     Calibration
	weights RuleWeights
	log     *slog.Logger
}

func NewRuleBased(cal Calibration, weights RuleWeights, log *slog.Logger) (*RuleBased, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	sum := weights.CWR + weights.Stylometry + weights.Embeddings + weights.AoA
	if sum <= 0 {
		weights = DefaultRuleWeights()
		sum = 1
	}
	weights.CWR /= sum
	weights.Stylometry /= sum
	weights.Embeddings /= sum
	weights.AoA /= sum
	return &RuleBased{cal: cal, weights: weights, log: log}, nil
}

func (r *RuleBased) Combine(bundle *FeatureBundle) RuleEstimate {
	cal := r.cal
	byMethod := make(map[string]float64)

	// CWR always votes; a missing bundle votes the scale center.
	cwrEst := cal.NeutralScore
	if bundle.CWR != nil {
		cwrEst = bundle.CWR.Estimate
	}
	byMethod[MethodCWR] = cwrEst

	if sty := bundle.Stylometry; sty != nil {
		est := cal.NeutralScore
		if sty.TTR > 0 {
			est = cal.RuleStylometryTTR.Apply(sty.TTR)
		}
		avg := sty.AvgWordsPerSentence
		if avg >= cal.RuleLengthBonusMin && avg <= cal.RuleLengthBonusMax {
			est += cal.RuleLengthBonus.Apply(avg)
		}
		byMethod[MethodStylometry] = clip(est, cal.RuleClipMin, cal.RuleClipMax)
	}

	if a := bundle.AoA; a != nil && a.HasTest() {
		est := cal.RuleAoA.Apply(a.MeanTest) + a.PctAdvanced*cal.RuleAoAPctSlope
		byMethod[MethodAoA] = clip(est, cal.RuleClipMin, cal.RuleClipMax)
	}

	// Embeddings carry no scoring rule yet; their weight re-normalizes away.

	base := map[string]float64{
		MethodCWR:        r.weights.CWR,
		MethodStylometry: r.weights.Stylometry,
		MethodEmbeddings: r.weights.Embeddings,
		MethodAoA:        r.weights.AoA,
	}
	totalWeight := 0.0
	for _, m := range methodOrder {
		if _, ok := byMethod[m]; ok {
			totalWeight += base[m]
		}
	}
	if totalWeight <= 0 {
		// Degenerate weight config; split evenly over present methods.
		for _, m := range methodOrder {
			if _, ok := byMethod[m]; ok {
				base[m] = 1
				totalWeight++
			}
		}
	}

	used := make(map[string]float64, len(byMethod))
	combined := 0.0
	for _, m := range methodOrder {
		est, ok := byMethod[m]
		if !ok {
			continue
		}
		w := base[m] / totalWeight
		used[m] = w
		combined += est * w
	}

	var estimates []float64
	for _, m := range methodOrder {
		if est, ok := byMethod[m]; ok {
			estimates = append(estimates, est)
		}
	}
	confidence := cal.RuleFallbackConfidence
	if len(estimates) >= 2 {
		confidence = math.Max(cal.RuleAgreementFloor, 100-popStd(estimates)*cal.RuleAgreementStdSlope)
	}

	return RuleEstimate{
		IQ:         clip(combined, cal.FinalMin, cal.FinalMax),
		Confidence: confidence,
		ByMethod:   byMethod,
		Weights:    used,
		NumMethods: len(byMethod),
		Method:     MethodRule,
	}
}
