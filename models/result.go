package models

// EstimateResult is the terminal artifact of one estimation call. It is the
// payload shared by the CLI, the HTTP API, and the run store.
//
// IQEstimate is nil only when preprocessing rejected the input; callers must
// check IsValid before reading it.
type EstimateResult struct {
	IQEstimate      *float64           `json:"iq_estimate" yaml:"iq_estimate"`
	IsValid         bool               `json:"is_valid" yaml:"is_valid"`
	Confidence      float64            `json:"confidence" yaml:"confidence"`
	DimensionScores map[string]float64 `json:"dimension_scores,omitempty" yaml:"dimension_scores,omitempty"`
	Method          string             `json:"method,omitempty" yaml:"method,omitempty"`
	FeatureCoverage int                `json:"feature_coverage" yaml:"feature_coverage"`
	Error           string             `json:"error,omitempty" yaml:"error,omitempty"`

	// Rule-based path extras; empty on the knowledge-based path.
	MethodEstimates map[string]float64 `json:"method_estimates,omitempty" yaml:"method_estimates,omitempty"`
	WeightsUsed     map[string]float64 `json:"weights_used,omitempty" yaml:"weights_used,omitempty"`

	Preprocessing *PreprocessInfo          `json:"preprocessing,omitempty" yaml:"preprocessing,omitempty"`
	Methods       map[string]MethodDetail `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// PreprocessInfo carries the diagnostics surfaced by the admission gate.
// Key names match the historical output format.
type PreprocessInfo struct {
	OriginalLength   int    `json:"original_length" yaml:"original_length"`
	ProcessedLength  int    `json:"processed_length" yaml:"processed_length"`
	TokenCount       int    `json:"num_tokens" yaml:"num_tokens"`
	DetectedLanguage string `json:"language_detected" yaml:"language_detected"`
	LanguageMatch    bool   `json:"language_match" yaml:"language_match"`
}

// MethodDetail reports what one methodology produced for one input, or the
// error that kept it from producing anything. Extraction failures are
// isolated per methodology and never abort the other methodologies.
// Features holds the methodology's own typed feature struct.
type MethodDetail struct {
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Features any    `json:"features,omitempty" yaml:"features,omitempty"`
}

// Estimate returns the point estimate and whether one exists.
func (r *EstimateResult) Estimate() (float64, bool) {
	if r == nil || r.IQEstimate == nil {
		return 0, false
	}
	return *r.IQEstimate, true
}
