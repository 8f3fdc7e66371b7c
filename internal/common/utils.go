package common

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/dtnitsch/textiq/pkg/preprocess"
	"gopkg.in/yaml.v3"
)

// NewLogger builds the process logger from the global CLI flags. Logs go to
// stderr so stdout stays clean for command output.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ParseLevel maps a flag value onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseEstimateMode maps the --mode flag onto an admission mode.
func ParseEstimateMode(mode string) (preprocess.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "prose":
		return preprocess.ModeProse, nil
	case "vocab":
		return preprocess.ModeVocab, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want prose or vocab)", mode)
	}
}

// MarshalOutput renders a command payload in the requested format.
// "yaml" marshals YAML; anything else gets indented JSON.
func MarshalOutput(v any, format string) ([]byte, error) {
	if strings.EqualFold(format, "yaml") {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste
// issues: whitespace, trailing punctuation, markdown link wrappers.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// Extract URL from markdown link format: [text](url) -> url
	markdownLinkPattern := regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// CleanInputs sanitizes batch input arguments and splits off the invalid
// ones. URL arguments get copy-paste cleanup and structural validation;
// file paths and "-" pass through untouched.
func CleanInputs(args []string) (inputs []string, invalid []string) {
	urlPattern := regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](/[^\s]*)?$`)

	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if trimmed == "" {
			continue
		}
		cleaned := SanitizeURL(trimmed)
		if !strings.HasPrefix(cleaned, "http://") && !strings.HasPrefix(cleaned, "https://") {
			inputs = append(inputs, trimmed)
			continue
		}

		if strings.Contains(cleaned, " ") || !urlPattern.MatchString(cleaned) {
			invalid = append(invalid, arg)
			continue
		}
		parsed, err := url.Parse(cleaned)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			invalid = append(invalid, arg)
			continue
		}
		if strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
			invalid = append(invalid, arg)
			continue
		}
		inputs = append(inputs, cleaned)
	}

	return inputs, invalid
}
