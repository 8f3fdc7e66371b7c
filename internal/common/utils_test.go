package common

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/textiq/pkg/preprocess"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseEstimateMode(t *testing.T) {
	if mode, err := ParseEstimateMode(""); err != nil || mode != preprocess.ModeProse {
		t.Errorf("ParseEstimateMode(\"\") = %v, %v", mode, err)
	}
	if mode, err := ParseEstimateMode("Vocab"); err != nil || mode != preprocess.ModeVocab {
		t.Errorf("ParseEstimateMode(Vocab) = %v, %v", mode, err)
	}
	if _, err := ParseEstimateMode("essay"); err == nil {
		t.Error("ParseEstimateMode(essay) accepted an unknown mode")
	}
}

func TestMarshalOutput(t *testing.T) {
	payload := map[string]int{"count": 3}

	jsonOut, err := MarshalOutput(payload, "json")
	if err != nil {
		t.Fatalf("MarshalOutput(json) error: %v", err)
	}
	if !strings.Contains(string(jsonOut), "\"count\": 3") {
		t.Errorf("json output = %s", jsonOut)
	}

	yamlOut, err := MarshalOutput(payload, "yaml")
	if err != nil {
		t.Fatalf("MarshalOutput(yaml) error: %v", err)
	}
	if !strings.Contains(string(yamlOut), "count: 3") {
		t.Errorf("yaml output = %s", yamlOut)
	}
}

func TestSanitizeURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{" https://example.com/essay, ", "https://example.com/essay"},
		{"[read this](https://example.com/a)", "https://example.com/a"},
		{"(https://example.com)", "https://example.com"},
		{"https://example.com/path.", "https://example.com/path"},
	}
	for _, tc := range cases {
		if got := SanitizeURL(tc.in); got != tc.want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanInputs(t *testing.T) {
	inputs, invalid := CleanInputs([]string{
		"essay.txt",
		"-",
		" https://example.com/a, ",
		"https://bad host/with space",
		"",
	})

	wantInputs := []string{"essay.txt", "-", "https://example.com/a"}
	if !reflect.DeepEqual(inputs, wantInputs) {
		t.Errorf("inputs = %v, want %v", inputs, wantInputs)
	}
	if len(invalid) != 1 || !strings.Contains(invalid[0], "bad host") {
		t.Errorf("invalid = %v", invalid)
	}
}
