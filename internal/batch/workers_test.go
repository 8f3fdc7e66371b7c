package batch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/estimator"
	"github.com/dtnitsch/textiq/pkg/ingest"
	"github.com/dtnitsch/textiq/pkg/preprocess"
	"github.com/dtnitsch/textiq/pkg/store"
)

// essay clears a lowered prose minimum and reads as ordinary English for
// the heuristic language check.
const essay = `The municipal archive reopened last spring after a long renovation, and the
first visitors found the reading room almost unchanged. The catalogue, however,
had been rebuilt from scratch. Researchers who once waited days for a single
folder could now request material in the morning and read it after lunch. The
archivists argued about whether the new system honored the spirit of the old
one, but everyone agreed that the documents themselves, brittle and patient,
had outlasted another generation of procedures.`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEstimator(t *testing.T) *estimator.Estimator {
	t.Helper()
	cfg := models.DefaultConfig()
	cfg.Processing.MinLengthTokens = 40
	est, err := estimator.New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("estimator.New: %v", err)
	}
	t.Cleanup(func() { est.Close() })
	return est
}

func writeEssay(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(essay), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunKeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeEssay(t, dir, "a.txt"),
		filepath.Join(dir, "missing.txt"),
		writeEssay(t, dir, "b.txt"),
	}
	est := newTestEstimator(t)
	resolver := ingest.NewResolver(quietLogger())

	results := run(context.Background(), quietLogger(), inputs, 2, preprocess.ModeProse, est, resolver, nil)

	if len(results) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(results), len(inputs))
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d carries index %d", i, r.Index)
		}
		if r.Source != inputs[i] {
			t.Errorf("result %d source = %q, want %q", i, r.Source, inputs[i])
		}
	}

	if results[1].Err == nil || results[1].ErrType != "ingest_error" {
		t.Errorf("missing file: err=%v type=%q, want an ingest_error", results[1].Err, results[1].ErrType)
	}
	for _, i := range []int{0, 2} {
		if results[i].Err != nil {
			t.Fatalf("input %d failed: %v", i, results[i].Err)
		}
		if results[i].Estimate == nil || !results[i].Estimate.IsValid {
			t.Errorf("input %d produced no valid estimate", i)
		}
		if results[i].RunID != "" {
			t.Errorf("run id assigned without a store: %q", results[i].RunID)
		}
	}
}

func TestRunSavesToStore(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{
		writeEssay(t, dir, "a.txt"),
		writeEssay(t, dir, "b.txt"),
	}
	est := newTestEstimator(t)
	resolver := ingest.NewResolver(quietLogger())

	db, err := store.Open(":memory:", quietLogger())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer db.Close()

	results := run(context.Background(), quietLogger(), inputs, 4, preprocess.ModeProse, est, resolver, db)

	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("input %d failed: %v", i, r.Err)
		}
		if r.RunID == "" {
			t.Errorf("input %d missing its run id", i)
		}
	}

	runs, err := db.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != len(inputs) {
		t.Errorf("stored %d runs, want %d", len(runs), len(inputs))
	}
}

func TestRunClampsWorkerCount(t *testing.T) {
	dir := t.TempDir()
	inputs := []string{writeEssay(t, dir, "a.txt")}
	est := newTestEstimator(t)
	resolver := ingest.NewResolver(quietLogger())

	// Non-positive counts fall back to the default, oversized ones clamp
	// to the number of inputs; both must still drain every job.
	for _, workers := range []int{0, 16} {
		results := run(context.Background(), quietLogger(), inputs, workers, preprocess.ModeProse, est, resolver, nil)
		if len(results) != 1 {
			t.Fatalf("workers=%d: got %d results, want 1", workers, len(results))
		}
		if results[0].Err != nil {
			t.Fatalf("workers=%d: %v", workers, results[0].Err)
		}
	}
}
