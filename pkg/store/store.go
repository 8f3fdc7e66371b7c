// Package store persists estimation runs in a local SQLite database.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/textiq/models"
	"github.com/dtnitsch/textiq/pkg/combiner"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const DefaultDBName = "textiq.db"

const defaultListLimit = 20

var (
	// ErrNotOpen is returned by every operation on a nil or closed store.
	ErrNotOpen = errors.New("store not open")
	// ErrNotFound is wrapped by GetRun when no run has the given id.
	ErrNotFound = errors.New("run not found")
)

// Run is one persisted estimation.
type Run struct {
	ID         string             `json:"id" yaml:"id"`
	CreatedAt  time.Time          `json:"created_at" yaml:"created_at"`
	Source     string             `json:"source" yaml:"source"`
	TextSHA256 string             `json:"text_sha256" yaml:"text_sha256"`
	TokenCount int                `json:"num_tokens" yaml:"num_tokens"`
	IQEstimate *float64           `json:"iq_estimate" yaml:"iq_estimate"`
	Confidence float64            `json:"confidence" yaml:"confidence"`
	Method     string             `json:"method" yaml:"method"`
	Dimensions map[string]float64 `json:"dimension_scores,omitempty" yaml:"dimension_scores,omitempty"`
	Valid      bool               `json:"is_valid" yaml:"is_valid"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary aggregates the stored runs.
type Summary struct {
	Count          int            `json:"count" yaml:"count"`
	ValidCount     int            `json:"valid_count" yaml:"valid_count"`
	MeanEstimate   float64        `json:"mean_estimate" yaml:"mean_estimate"`
	MeanConfidence float64        `json:"mean_confidence" yaml:"mean_confidence"`
	MinEstimate    float64        `json:"min_estimate" yaml:"min_estimate"`
	MaxEstimate    float64        `json:"max_estimate" yaml:"max_estimate"`
	PerMethod      map[string]int `json:"per_method" yaml:"per_method"`
}

// DB wraps the SQLite handle with the run operations.
type DB struct {
	*sql.DB
	path string
	log  *slog.Logger
}

// Open opens or creates the database at path, applies the pragmas, and
// ensures the schema. Parent directories are created as needed.
func Open(path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}
	if path == "" {
		path = DefaultDBName
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases coherent across the pool
	// and serializes concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	db := &DB{DB: sqlDB, path: path, log: log}
	if err := db.InitSchema(); err != nil {
		_ = sqlDB.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("run store ready", "path", path)
	return db, nil
}

// InitSchema applies the pragmas and creates the tables.
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) ready() error {
	if db == nil || db.DB == nil {
		return ErrNotOpen
	}
	return nil
}

// NewRun builds a Run from one estimation result. The text itself is not
// persisted, only its hash.
func NewRun(source, text string, result *models.EstimateResult) *Run {
	run := &Run{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		TextSHA256: HashText(text),
		Confidence: result.Confidence,
		Method:     result.Method,
		Dimensions: result.DimensionScores,
		Valid:      result.IsValid,
		Error:      result.Error,
	}
	if result.IQEstimate != nil {
		iq := *result.IQEstimate
		run.IQEstimate = &iq
	}
	if result.Preprocessing != nil {
		run.TokenCount = result.Preprocessing.TokenCount
	}
	return run
}

// HashText returns the hex sha256 of the exact input text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SaveRun inserts a run, assigning an id and timestamp when absent.
func (db *DB) SaveRun(ctx context.Context, run *Run) error {
	if err := db.ready(); err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			id, created_at, source, text_sha256, num_tokens,
			iq_estimate, confidence, method,
			vocabulary_sophistication, lexical_diversity,
			sentence_complexity, grammatical_precision,
			is_valid, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt, run.Source, run.TextSHA256, run.TokenCount,
		nullFloat(run.IQEstimate), run.Confidence, run.Method,
		dimValue(run, combiner.DimVocabulary), dimValue(run, combiner.DimDiversity),
		dimValue(run, combiner.DimSentence), dimValue(run, combiner.DimGrammar),
		run.Valid, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, created_at, source, text_sha256, num_tokens,
	       iq_estimate, confidence, method,
	       vocabulary_sophistication, lexical_diversity,
	       sentence_complexity, grammatical_precision,
	       is_valid, error
	FROM runs
`

// GetRun loads one run by id.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	run, err := scanRun(db.QueryRowContext(ctx, selectRun+"WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// selects the default page size.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(ctx, selectRun+"ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Summary aggregates stored runs. Estimate statistics cover only runs
// that produced one.
func (db *DB) Summary(ctx context.Context) (*Summary, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	s := &Summary{PerMethod: make(map[string]int)}
	var meanEst, minEst, maxEst, meanConf sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(iq_estimate),
		       AVG(iq_estimate), MIN(iq_estimate), MAX(iq_estimate),
		       AVG(CASE WHEN iq_estimate IS NOT NULL THEN confidence END)
		FROM runs
	`).Scan(&s.Count, &s.ValidCount, &meanEst, &minEst, &maxEst, &meanConf)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize runs: %w", err)
	}
	s.MeanEstimate = meanEst.Float64
	s.MinEstimate = minEst.Float64
	s.MaxEstimate = maxEst.Float64
	s.MeanConfidence = meanConf.Float64

	rows, err := db.QueryContext(ctx, `SELECT method, COUNT(*) FROM runs GROUP BY method`)
	if err != nil {
		return nil, fmt.Errorf("failed to count methods: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, fmt.Errorf("failed to scan method count: %w", err)
		}
		s.PerMethod[method] = n
	}
	return s, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                    Run
		iq                     sql.NullFloat64
		vocab, div, sent, gram sql.NullFloat64
	)
	err := row.Scan(&run.ID, &run.CreatedAt, &run.Source, &run.TextSHA256, &run.TokenCount,
		&iq, &run.Confidence, &run.Method,
		&vocab, &div, &sent, &gram,
		&run.Valid, &run.Error)
	if err != nil {
		return nil, err
	}
	if iq.Valid {
		run.IQEstimate = &iq.Float64
	}
	dims := make(map[string]float64)
	for name, v := range map[string]sql.NullFloat64{
		combiner.DimVocabulary: vocab,
		combiner.DimDiversity:  div,
		combiner.DimSentence:   sent,
		combiner.DimGrammar:    gram,
	} {
		if v.Valid {
			dims[name] = v.Float64
		}
	}
	if len(dims) > 0 {
		run.Dimensions = dims
	}
	return &run, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func dimValue(run *Run, name string) sql.NullFloat64 {
	v, ok := run.Dimensions[name]
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
