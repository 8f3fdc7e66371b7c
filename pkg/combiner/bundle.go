// Package combiner turns extracted feature bundles into a single ability
// estimate. Two paths exist: the knowledge-based dimension model and the
// simpler rule-based weighted vote. Both consume the same FeatureBundle and
// never mutate it.
package combiner

import (
	"github.com/dtnitsch/textiq/pkg/aoa"
	"github.com/dtnitsch/textiq/pkg/embedding"
	"github.com/dtnitsch/textiq/pkg/lexicon"
	"github.com/dtnitsch/textiq/pkg/stylometry"
)

// Methodology names as they appear in bundles, weights, and results.
const (
	MethodCWR        = "cwr"
	MethodStylometry = "stylometry"
	MethodAoA        = "aoa"
	MethodEmbeddings = "embeddings"
)

// FeatureBundle aggregates one extraction pass over one text. A nil field
// means the methodology produced nothing; Errors records why.
type FeatureBundle struct {
	CWR        *lexicon.Features
	AoA        *aoa.Features
	Stylometry *stylometry.Features
	Embeddings *embedding.Features

	// Errors maps methodology name to its failure message.
	Errors map[string]string
}

// Available counts methodologies that produced features. An errored
// methodology is absent and does not count.
func (b *FeatureBundle) Available() int {
	count := 0
	if b.CWR != nil {
		count++
	}
	if b.AoA != nil {
		count++
	}
	if b.Stylometry != nil {
		count++
	}
	if b.Embeddings != nil {
		count++
	}
	return count
}
