package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[.!?]+\s+`)

// Features carries the paragraph vector plus element-wise pooling over the
// per-sentence vectors.
type Features struct {
	Paragraph    []float32 `json:"paragraph" yaml:"paragraph"`
	SentenceMean []float32 `json:"sentence_mean,omitempty" yaml:"sentence_mean,omitempty"`
	SentenceMax  []float32 `json:"sentence_max,omitempty" yaml:"sentence_max,omitempty"`
	SentenceStd  []float32 `json:"sentence_std,omitempty" yaml:"sentence_std,omitempty"`
	NumSentences int       `json:"num_sentences" yaml:"num_sentences"`
	Dim          int       `json:"dim" yaml:"dim"`
}

// Extractor turns text into embedding features through an Embedder.
type Extractor struct {
	embedder Embedder
	log      *slog.Logger
}

func NewExtractor(embedder Embedder, log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{embedder: embedder, log: log}
}

// Extract embeds the whole text and each sentence. A failed sentence batch
// degrades to paragraph-only features rather than failing the extraction.
func (e *Extractor) Extract(ctx context.Context, text string) (*Features, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	paragraph, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding paragraph: %w", err)
	}

	feats := &Features{Paragraph: paragraph, Dim: len(paragraph)}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return feats, nil
	}

	vecs, err := e.embedder.EmbedTexts(ctx, sentences)
	if err != nil {
		e.log.Warn("sentence embedding failed, keeping paragraph features only", "error", err)
		return feats, nil
	}

	feats.NumSentences = len(vecs)
	feats.SentenceMean, feats.SentenceMax, feats.SentenceStd = poolVectors(vecs)
	return feats, nil
}

func splitSentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// poolVectors computes element-wise mean, max and population standard
// deviation across vectors. Ragged inputs pool over the smallest dimension.
func poolVectors(vecs [][]float32) (mean, max, std []float32) {
	if len(vecs) == 0 {
		return nil, nil, nil
	}
	dim := len(vecs[0])
	for _, v := range vecs[1:] {
		if len(v) < dim {
			dim = len(v)
		}
	}
	if dim == 0 {
		return nil, nil, nil
	}

	mean = make([]float32, dim)
	max = make([]float32, dim)
	std = make([]float32, dim)
	n := float64(len(vecs))

	for d := 0; d < dim; d++ {
		sum := 0.0
		hi := vecs[0][d]
		for _, v := range vecs {
			sum += float64(v[d])
			if v[d] > hi {
				hi = v[d]
			}
		}
		m := sum / n
		variance := 0.0
		for _, v := range vecs {
			diff := float64(v[d]) - m
			variance += diff * diff
		}
		mean[d] = float32(m)
		max[d] = hi
		std[d] = float32(math.Sqrt(variance / n))
	}
	return mean, max, std
}
