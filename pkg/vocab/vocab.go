// Package vocab scores open-ended vocabulary-test responses by semantic
// similarity to graded exemplar answers, the automated analogue of manual
// rubric scoring.
package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/dtnitsch/textiq/pkg/embedding"
)

// ErrNoEmbedder is returned when scoring is attempted without an embedding
// capability configured.
var ErrNoEmbedder = errors.New("vocabulary scorer requires an embedder")

// Item is one administered test item: the probe word, the examinee's
// definition, and exemplar answers grouped by the point value they earn.
type Item struct {
	Word      string           `json:"word" yaml:"word"`
	Response  string           `json:"response" yaml:"response"`
	Exemplars map[int][]string `json:"exemplars" yaml:"exemplars"`
}

// ItemScore is the grading outcome for a single item. Similarities holds
// the best cosine per exemplar group, keyed score_0/score_1/score_2.
type ItemScore struct {
	Word         string             `json:"word" yaml:"word"`
	Response     string             `json:"response" yaml:"response"`
	Score        int                `json:"score" yaml:"score"`
	Similarities map[string]float64 `json:"similarities,omitempty" yaml:"similarities,omitempty"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// TestResult aggregates a full test administration.
type TestResult struct {
	RawScore   int         `json:"raw_score" yaml:"raw_score"`
	MaxScore   int         `json:"max_possible_score" yaml:"max_possible_score"`
	VCI        float64     `json:"vci_estimate" yaml:"vci_estimate"`
	NumItems   int         `json:"num_items" yaml:"num_items"`
	ItemScores []ItemScore `json:"item_scores" yaml:"item_scores"`
}

// Estimate is the vocabulary-mode pipeline result. FSIQ2 mirrors VCI until
// a second subtest contributes.
type Estimate struct {
	VCI      float64     `json:"vci" yaml:"vci"`
	FSIQ2    float64     `json:"fsiq2" yaml:"fsiq2"`
	RawScore int         `json:"raw_score" yaml:"raw_score"`
	MaxScore int         `json:"max_score" yaml:"max_score"`
	Items    []ItemScore `json:"item_details" yaml:"item_details"`
}

// Scorer grades responses against exemplars through an Embedder. Thresholds
// are on cosine similarity: best >= high earns 2 points, >= low earns 1.
type Scorer struct {
	embedder embedding.Embedder
	low      float64
	high     float64
	log      *slog.Logger
}

func NewScorer(embedder embedding.Embedder, low, high float64, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	if low <= 0 {
		low = 0.3
	}
	if high <= 0 {
		high = 0.5
	}
	return &Scorer{embedder: embedder, low: low, high: high, log: log}
}

// ScoreItem grades one response. Embedding failures grade the item 0 with
// the error recorded, so one bad item cannot sink the whole test.
func (s *Scorer) ScoreItem(ctx context.Context, item Item) ItemScore {
	out := ItemScore{Word: item.Word, Response: item.Response}
	if s.embedder == nil {
		out.Error = ErrNoEmbedder.Error()
		return out
	}

	groups := make([]int, 0, len(item.Exemplars))
	for g := range item.Exemplars {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	// Response and exemplars embed lowercased in one batch.
	batch := []string{strings.ToLower(item.Response)}
	for _, g := range groups {
		for _, ex := range item.Exemplars[g] {
			batch = append(batch, strings.ToLower(ex))
		}
	}

	vecs, err := s.embedder.EmbedTexts(ctx, batch)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	response := vecs[0]
	out.Similarities = make(map[string]float64, len(groups))
	best := 0.0
	next := 1
	for _, g := range groups {
		groupBest := math.Inf(-1)
		if len(item.Exemplars[g]) == 0 {
			groupBest = 0
		}
		for range item.Exemplars[g] {
			if sim := embedding.Cosine(response, vecs[next]); sim > groupBest {
				groupBest = sim
			}
			next++
		}
		out.Similarities[fmt.Sprintf("score_%d", g)] = groupBest
		if groupBest > best {
			best = groupBest
		}
	}

	switch {
	case best >= s.high:
		out.Score = 2
	case best >= s.low:
		out.Score = 1
	}
	return out
}

// ScoreTest grades every item and maps the raw score onto the verbal
// comprehension scale: VCI = 100 + 15*((raw/max - 0.5)*3).
func (s *Scorer) ScoreTest(ctx context.Context, items []Item) (*TestResult, error) {
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if len(items) == 0 {
		return nil, errors.New("no items to score")
	}

	result := &TestResult{
		MaxScore:   2 * len(items),
		NumItems:   len(items),
		ItemScores: make([]ItemScore, 0, len(items)),
	}
	for _, item := range items {
		scored := s.ScoreItem(ctx, item)
		if scored.Error != "" {
			s.log.Warn("item scoring failed", "word", item.Word, "error", scored.Error)
		}
		result.RawScore += scored.Score
		result.ItemScores = append(result.ItemScores, scored)
	}

	ratio := float64(result.RawScore) / float64(result.MaxScore)
	result.VCI = 100 + 15*((ratio-0.5)*3)
	return result, nil
}

// EstimateVocab is the vocabulary-mode pipeline surface.
func (s *Scorer) EstimateVocab(ctx context.Context, items []Item) (*Estimate, error) {
	res, err := s.ScoreTest(ctx, items)
	if err != nil {
		return nil, err
	}
	return &Estimate{
		VCI:      res.VCI,
		FSIQ2:    res.VCI,
		RawScore: res.RawScore,
		MaxScore: res.MaxScore,
		Items:    res.ItemScores,
	}, nil
}

// LoadItems reads a test file shaped {"items":[{word,response,exemplars}]}.
func LoadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary test: %w", err)
	}
	var doc struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing vocabulary test: %w", err)
	}
	if len(doc.Items) == 0 {
		return nil, errors.New("vocabulary test contains no items")
	}
	return doc.Items, nil
}
