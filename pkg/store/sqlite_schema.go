package store

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the result history tables. Timestamps are stored as Unix
// nanoseconds so both drivers order them identically.
const Schema = `
CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    benchmark_id TEXT NOT NULL,
    profile_id TEXT NOT NULL DEFAULT '',
    run_trigger TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,

    start_time INTEGER NOT NULL,
    end_time INTEGER NOT NULL,
    recorded_time INTEGER NOT NULL,

    -- JSON documents
    scores TEXT,
    document TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_start_time ON results(start_time);
CREATE INDEX IF NOT EXISTS idx_results_benchmark ON results(benchmark_id, profile_id);
CREATE INDEX IF NOT EXISTS idx_results_outcome ON results(outcome);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const resultColumns = `id, benchmark_id, profile_id, run_trigger, outcome,
    start_time, end_time, recorded_time, scores, document`

const upsertResult = `
INSERT OR REPLACE INTO results (` + resultColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
