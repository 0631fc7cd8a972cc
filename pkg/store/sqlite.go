package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/result"
	"mercator-hq/auditor/pkg/scoring"
)

// Supported database/sql driver names.
const (
	DriverCGo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// SQLiteStorage implements Storage on SQLite through either driver.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating its directory and schema when
// missing.
func NewSQLiteStorage(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.sqlite")

	if cfg.Path == "" {
		cfg.Path = config.DefaultSQLitePath
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverCGo
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = config.DefaultSQLiteBusyTimeout
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewStorageError("sqlite", "mkdir", err)
		}
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", walEnabled(cfg),
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

func walEnabled(cfg config.SQLiteConfig) bool {
	return cfg.WALMode == nil || *cfg.WALMode
}

// buildDSN encodes the connection pragmas in the form each driver expects, so
// every pooled connection gets them.
func buildDSN(cfg config.SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverCGo:
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, busy)
		if walEnabled(cfg) {
			dsn += "&_journal_mode=WAL"
		}
		return dsn, nil
	case DriverPureGo:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, busy)
		if walEnabled(cfg) {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts or replaces a record.
func (s *SQLiteStorage) Save(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError("sqlite", "save", errMissingID)
	}

	document, err := json.Marshal(record.Result)
	if err != nil {
		return NewStorageError("sqlite", "save", fmt.Errorf("encode result: %w", err))
	}
	scores, err := json.Marshal(record.Scores)
	if err != nil {
		return NewStorageError("sqlite", "save", fmt.Errorf("encode scores: %w", err))
	}

	recorded := record.RecordedTime
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, upsertResult,
		record.ID, record.BenchmarkID, record.ProfileID, record.Trigger, record.Outcome.String(),
		record.StartTime.UnixNano(), record.EndTime.UnixNano(), recorded.UnixNano(),
		string(scores), string(document),
	)
	if err != nil {
		return NewStorageError("sqlite", "save", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+resultColumns+" FROM results WHERE id = ?", id)
	if err != nil {
		return nil, NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, NewStorageError("sqlite", "get", err)
		}
		return nil, ErrNotFound
	}
	record, err := scanRecord(rows)
	if err != nil {
		return nil, NewStorageError("sqlite", "scan", err)
	}
	return record, nil
}

// List returns the records matching q.
func (s *SQLiteStorage) List(ctx context.Context, q *Query) ([]*Record, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	where, args := buildWhereClause(q)
	query := "SELECT " + resultColumns + " FROM results" + where + orderAndPage(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list", err)
	}
	return records, nil
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}

	where, args := buildWhereClause(q)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results"+where, args...).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes the records List(q) would return.
func (s *SQLiteStorage) Delete(ctx context.Context, q *Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}

	where, args := buildWhereClause(q)
	query := "DELETE FROM results WHERE id IN (SELECT id FROM results" + where + orderAndPage(q) + ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(q *Query) (string, []any) {
	var conditions []string
	var args []any

	if q.BenchmarkID != "" {
		conditions = append(conditions, "benchmark_id = ?")
		args = append(args, q.BenchmarkID)
	}
	if q.ProfileID != "" {
		conditions = append(conditions, "profile_id = ?")
		args = append(args, q.ProfileID)
	}
	if q.Trigger != "" {
		conditions = append(conditions, "run_trigger = ?")
		args = append(args, q.Trigger)
	}
	if q.Outcome != 0 {
		conditions = append(conditions, "outcome = ?")
		args = append(args, q.Outcome.String())
	}
	if q.Since != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, q.Until.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderAndPage renders ORDER BY plus LIMIT/OFFSET. LIMIT -1 is SQLite for
// unbounded.
func orderAndPage(q *Query) string {
	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	limit := q.Limit
	if limit == 0 {
		limit = -1
	}
	return fmt.Sprintf(" ORDER BY start_time %s, id %s LIMIT %d OFFSET %d", order, order, limit, q.Offset)
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record               Record
		outcomeText          string
		start, end, recorded int64
		scores               sql.NullString
		document             string
	)
	err := rows.Scan(
		&record.ID, &record.BenchmarkID, &record.ProfileID, &record.Trigger, &outcomeText,
		&start, &end, &recorded, &scores, &document,
	)
	if err != nil {
		return nil, err
	}

	if record.Outcome, err = outcome.Parse(outcomeText); err != nil {
		return nil, err
	}
	record.StartTime = time.Unix(0, start).UTC()
	record.EndTime = time.Unix(0, end).UTC()
	record.RecordedTime = time.Unix(0, recorded).UTC()

	if scores.Valid && scores.String != "" {
		var decoded []*scoring.Score
		if err := json.Unmarshal([]byte(scores.String), &decoded); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
		record.Scores = decoded
	}

	record.Result = new(result.TestResult)
	if err := json.Unmarshal([]byte(document), record.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &record, nil
}
