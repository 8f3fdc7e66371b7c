package aoa

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const epsilon = 1e-9

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func writeTable(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing table: %v", err)
	}
	return path
}

func TestComputeStatistics(t *testing.T) {
	opts := DefaultOptions()
	opts.TablePath = writeTable(t, "aoa.csv",
		"WORD,AoAtestbased,AoArating\n"+
			"alpha,4.0,5.0\n"+
			"beta,6.0,7.0\n"+
			"gamma,14.0,\n"+
			"delta,,9.0\n")
	e := New(opts, quietLogger())

	got, err := e.Extract("alpha beta gamma zeta")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if !almostEqual(got.MeanTest, 8.0) {
		t.Errorf("MeanTest = %v, want 8.0", got.MeanTest)
	}
	if !almostEqual(got.StdTest, math.Sqrt(56.0/3.0)) {
		t.Errorf("StdTest = %v, want %v", got.StdTest, math.Sqrt(56.0/3.0))
	}
	if !almostEqual(got.MedianTest, 6.0) {
		t.Errorf("MedianTest = %v, want 6.0", got.MedianTest)
	}
	if !almostEqual(got.MaxTest, 14.0) || !almostEqual(got.MinTest, 4.0) {
		t.Errorf("Max/MinTest = %v/%v, want 14.0/4.0", got.MaxTest, got.MinTest)
	}
	if !almostEqual(got.PctAdvanced, 100.0/3.0) {
		t.Errorf("PctAdvanced = %v, want %v", got.PctAdvanced, 100.0/3.0)
	}
	if !almostEqual(got.MatchRate, 75.0) {
		t.Errorf("MatchRate = %v, want 75.0", got.MatchRate)
	}
	if got.NumMatched != 3 || got.TotalWords != 4 {
		t.Errorf("NumMatched/TotalWords = %d/%d, want 3/4", got.NumMatched, got.TotalWords)
	}

	// delta has no test-based age, so only alpha and beta contribute ratings.
	if !almostEqual(got.MeanRating, 6.0) {
		t.Errorf("MeanRating = %v, want 6.0", got.MeanRating)
	}
	if !almostEqual(got.StdRating, 1.0) {
		t.Errorf("StdRating = %v, want 1.0", got.StdRating)
	}
}

func TestLookupAveragesDuplicateRows(t *testing.T) {
	opts := DefaultOptions()
	opts.TablePath = writeTable(t, "aoa.csv",
		"WORD,AoAtestbased,AoArating\nEcho,4.0,\necho,6.0,\n")
	e := New(opts, quietLogger())

	got, err := e.Extract("echo")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !almostEqual(got.MeanTest, 5.0) {
		t.Errorf("MeanTest = %v, want 5.0 (mean of duplicate rows)", got.MeanTest)
	}
}

func TestComputeZeroMatches(t *testing.T) {
	opts := DefaultOptions()
	opts.TablePath = writeTable(t, "aoa.csv", "WORD,AoAtestbased,AoArating\nalpha,4.0,5.0\n")
	e := New(opts, quietLogger())

	got, err := e.Extract("zz qq")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for name, v := range map[string]float64{
		"MeanTest":   got.MeanTest,
		"StdTest":    got.StdTest,
		"MedianTest": got.MedianTest,
		"MaxTest":    got.MaxTest,
		"MinTest":    got.MinTest,
		"MeanRating": got.MeanRating,
	} {
		if !math.IsNaN(v) {
			t.Errorf("%s = %v, want NaN for zero matches", name, v)
		}
	}
	if got.PctAdvanced != 0 || got.MatchRate != 0 || got.NumMatched != 0 {
		t.Errorf("rates = %v/%v/%d, want zeros", got.PctAdvanced, got.MatchRate, got.NumMatched)
	}
	if got.TotalWords != 2 {
		t.Errorf("TotalWords = %d, want 2", got.TotalWords)
	}
	if len(got.MatchedSample) != 0 {
		t.Errorf("MatchedSample = %v, want empty", got.MatchedSample)
	}
	if got.HasTest() {
		t.Error("HasTest() = true, want false")
	}
}

func TestExtractErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.TablePath = filepath.Join(t.TempDir(), "missing.csv")
	e := New(opts, quietLogger())

	if _, err := e.Extract("some words here"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Extract with no table: err = %v, want ErrNotLoaded", err)
	}

	loaded := New(DefaultOptions(), quietLogger())
	if _, err := loaded.Extract("   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Extract of blank text: err = %v, want ErrEmptyText", err)
	}
}

func TestLoadCompactJSON(t *testing.T) {
	opts := DefaultOptions()
	opts.TablePath = writeTable(t, "aoa.json", `{"kilo":9.5,"a":3.0}`)
	e := New(opts, quietLogger())

	// Single-letter entries are dropped on load.
	if e.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", e.Size())
	}
	got, err := e.Extract("kilo")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !almostEqual(got.MeanTest, 9.5) {
		t.Errorf("MeanTest = %v, want 9.5", got.MeanTest)
	}
}

func TestLoadGzippedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aoa.json.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating gzip table: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(`{"kilo":9.5}`)); err != nil {
		t.Fatalf("writing gzip table: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing gzip table: %v", err)
	}

	opts := DefaultOptions()
	opts.TablePath = path
	e := New(opts, quietLogger())

	if e.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", e.Size())
	}
}

func TestBundledTable(t *testing.T) {
	e := New(DefaultOptions(), quietLogger())

	if e.Size() == 0 {
		t.Fatal("bundled table is empty")
	}

	got, err := e.Extract("The empirical hypothesis demonstrates rigorous methodology.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.NumMatched < 3 {
		t.Errorf("NumMatched = %d, want at least 3", got.NumMatched)
	}
	if got.PctAdvanced == 0 {
		t.Error("PctAdvanced = 0, want advanced words recognized")
	}
}

func TestMatchedSampleIsCapped(t *testing.T) {
	rows := "WORD,AoAtestbased,AoArating\n"
	text := ""
	for i := 0; i < 15; i++ {
		rows += fmt.Sprintf("word%d,5.0,\n", i)
		text += fmt.Sprintf("word%d ", i)
	}
	opts := DefaultOptions()
	opts.TablePath = writeTable(t, "aoa.csv", rows)
	e := New(opts, quietLogger())

	got, err := e.Extract(text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.NumMatched != 15 {
		t.Errorf("NumMatched = %d, want 15", got.NumMatched)
	}
	if len(got.MatchedSample) != sampleLimit {
		t.Errorf("len(MatchedSample) = %d, want %d", len(got.MatchedSample), sampleLimit)
	}
}

func TestSuffixStripping(t *testing.T) {
	opts := DefaultOptions()
	opts.StripSuffixes = true
	opts.TablePath = writeTable(t, "aoa.csv", "WORD,AoAtestbased,AoArating\nrun,3.0,\n")
	e := New(opts, quietLogger())

	got, err := e.Extract("runs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.NumMatched != 1 {
		t.Errorf("runs: NumMatched = %d, want 1 after suffix strip", got.NumMatched)
	}

	// The stemmer strips one suffix only, so "running" becomes "runn".
	got, err = e.Extract("running")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.NumMatched != 0 {
		t.Errorf("running: NumMatched = %d, want 0", got.NumMatched)
	}
}
