package stylometry

// External capabilities are the only potentially slow pieces of stylometry.
// They are injected at construction, may fail independently, and a failure
// only omits the corresponding feature group from the output.

// SyntaxAnalyzer produces syntactic structure features for a text. A real
// dependency parse and a punctuation-based approximation both satisfy it.
type SyntaxAnalyzer interface {
	Analyze(text string) (SyntaxInfo, error)
}

// SyntaxInfo summarizes sentence structure. AvgDependencyDepth averages the
// per-sentence mean token-to-root distances; MaxDependencyDepth is the
// largest of those per-sentence means, not the deepest single token.
type SyntaxInfo struct {
	AvgDependencyDepth float64 `json:"avg_dependency_depth" yaml:"avg_dependency_depth"`
	MaxDependencyDepth float64 `json:"max_dependency_depth" yaml:"max_dependency_depth"`

	// HasDepth reports whether the depth fields carry a measurement. A
	// tagger without a parse can return ratios with HasDepth false.
	HasDepth bool `json:"has_depth" yaml:"has_depth"`

	// Approximation diagnostics; zero for analyzers that measure directly.
	PunctPerSentence   float64 `json:"punct_per_sentence,omitempty" yaml:"punct_per_sentence,omitempty"`
	ClausesPerSentence float64 `json:"clauses_per_sentence,omitempty" yaml:"clauses_per_sentence,omitempty"`

	// POSRatios maps lowercased part-of-speech tags to their share of
	// non-punctuation tokens. Nil when the analyzer cannot tag.
	POSRatios map[string]float64 `json:"pos_ratios,omitempty" yaml:"pos_ratios,omitempty"`
}

// ReadabilityScorer computes readability indices for a text.
type ReadabilityScorer interface {
	Score(text string) (ReadabilityScores, error)
}

type ReadabilityScores struct {
	FleschKincaid float64 `json:"flesch_kincaid" yaml:"flesch_kincaid"`
	SMOG          float64 `json:"smog" yaml:"smog"`
	ARI           float64 `json:"ari" yaml:"ari"`
	LIX           float64 `json:"lix" yaml:"lix"`
}
