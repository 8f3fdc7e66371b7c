// Package samples loads the graded reference corpus used to check the
// estimator against known ability levels.
package samples

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Sample is one graded reference text.
type Sample struct {
	IQ    int    `json:"iq" yaml:"iq"`
	Topic string `json:"topic" yaml:"topic"`
	Text  string `json:"text" yaml:"text"`
}

// Statistics summarizes a sample set.
type Statistics struct {
	Total    int            `json:"total_samples" yaml:"total_samples"`
	IQLevels []int          `json:"iq_levels" yaml:"iq_levels"`
	Topics   []string       `json:"topics" yaml:"topics"`
	PerIQ    map[int]int    `json:"samples_per_iq" yaml:"samples_per_iq"`
	PerTopic map[string]int `json:"samples_per_topic" yaml:"samples_per_topic"`
}

// Load reads a {"samples": [...]} JSON file.
func Load(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	var file struct {
		Samples []Sample `json:"samples"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing samples %s: %w", path, err)
	}
	if len(file.Samples) == 0 {
		return nil, fmt.Errorf("no samples in %s", path)
	}
	return file.Samples, nil
}

// ByIQ returns the samples graded at the given level.
func ByIQ(all []Sample, iq int) []Sample {
	var out []Sample
	for _, s := range all {
		if s.IQ == iq {
			out = append(out, s)
		}
	}
	return out
}

// ByTopic returns the samples under the given topic.
func ByTopic(all []Sample, topic string) []Sample {
	var out []Sample
	for _, s := range all {
		if s.Topic == topic {
			out = append(out, s)
		}
	}
	return out
}

// Stats summarizes levels, topics, and their counts. Levels and topics
// come back sorted.
func Stats(all []Sample) Statistics {
	perIQ := make(map[int]int)
	perTopic := make(map[string]int)
	for _, s := range all {
		perIQ[s.IQ]++
		perTopic[s.Topic]++
	}
	levels := make([]int, 0, len(perIQ))
	for iq := range perIQ {
		levels = append(levels, iq)
	}
	sort.Ints(levels)
	topics := make([]string, 0, len(perTopic))
	for topic := range perTopic {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return Statistics{
		Total:    len(all),
		IQLevels: levels,
		Topics:   topics,
		PerIQ:    perIQ,
		PerTopic: perTopic,
	}
}
