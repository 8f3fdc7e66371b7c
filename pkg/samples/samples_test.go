package samples

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeSamples(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const fixture = `{"samples": [
	{"iq": 85, "topic": "technology", "text": "simple text one"},
	{"iq": 115, "topic": "technology", "text": "denser text two"},
	{"iq": 115, "topic": "science", "text": "denser text three"},
	{"iq": 130, "topic": "philosophy", "text": "dense text four"}
]}`

func TestLoad(t *testing.T) {
	got, err := Load(writeSamples(t, fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d samples, want 4", len(got))
	}
	want := Sample{IQ: 85, Topic: "technology", Text: "simple text one"}
	if got[0] != want {
		t.Errorf("first sample = %+v, want %+v", got[0], want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptySet(t *testing.T) {
	if _, err := Load(writeSamples(t, `{"samples": []}`)); err == nil {
		t.Fatal("expected error for empty sample set")
	}
}

func TestFilters(t *testing.T) {
	all, err := Load(writeSamples(t, fixture))
	if err != nil {
		t.Fatal(err)
	}

	if got := ByIQ(all, 115); len(got) != 2 {
		t.Errorf("ByIQ(115) returned %d samples, want 2", len(got))
	}
	if got := ByIQ(all, 70); got != nil {
		t.Errorf("ByIQ(70) = %v, want none", got)
	}
	if got := ByTopic(all, "technology"); len(got) != 2 {
		t.Errorf("ByTopic(technology) returned %d samples, want 2", len(got))
	}
	if got := ByTopic(all, "art"); got != nil {
		t.Errorf("ByTopic(art) = %v, want none", got)
	}
}

func TestStats(t *testing.T) {
	all, err := Load(writeSamples(t, fixture))
	if err != nil {
		t.Fatal(err)
	}

	stats := Stats(all)
	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if want := []int{85, 115, 130}; !reflect.DeepEqual(stats.IQLevels, want) {
		t.Errorf("levels = %v, want %v", stats.IQLevels, want)
	}
	if want := []string{"philosophy", "science", "technology"}; !reflect.DeepEqual(stats.Topics, want) {
		t.Errorf("topics = %v, want %v", stats.Topics, want)
	}
	if stats.PerIQ[115] != 2 || stats.PerTopic["technology"] != 2 {
		t.Errorf("counts = %v / %v", stats.PerIQ, stats.PerTopic)
	}
}
