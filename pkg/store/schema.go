package store

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;

-- Runs table: one row per estimation, keyed by uuid. The input text is
-- never stored, only its hash.
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    text_sha256 TEXT NOT NULL,
    num_tokens INTEGER NOT NULL DEFAULT 0,
    iq_estimate REAL,
    confidence REAL NOT NULL DEFAULT 0,
    method TEXT NOT NULL DEFAULT '',

    -- Knowledge-based dimension scores; NULL on the rule path and on
    -- rejected inputs
    vocabulary_sophistication REAL,
    lexical_diversity REAL,
    sentence_complexity REAL,
    grammatical_precision REAL,

    is_valid BOOLEAN NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_method ON runs(method);
CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(text_sha256);
`
