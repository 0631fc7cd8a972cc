package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/auditor/pkg/outcome"
	"mercator-hq/auditor/pkg/result"
	"mercator-hq/auditor/pkg/scoring"
)

// MaxLimit is the largest page a single List call returns.
const MaxLimit = 10000

// Record is one stored evaluation: the result tree plus the scores computed
// for it and the trigger that started the run.
type Record struct {
	ID           string
	BenchmarkID  string
	ProfileID    string
	Trigger      string
	Outcome      outcome.Outcome
	StartTime    time.Time
	EndTime      time.Time
	RecordedTime time.Time
	Scores       []*scoring.Score
	Result       *result.TestResult
}

// NewRecord builds a record from an evaluation result. The indexed columns
// are copied from r.
func NewRecord(r *result.TestResult, scores []*scoring.Score, trigger string) *Record {
	return &Record{
		ID:          r.ID(),
		BenchmarkID: r.BenchmarkID(),
		ProfileID:   r.ProfileID(),
		Trigger:     trigger,
		Outcome:     r.Outcome(),
		StartTime:   r.StartTime(),
		EndTime:     r.EndTime(),
		Scores:      scores,
		Result:      r,
	}
}

// Query filters stored records. Records are ordered by start time, newest
// first unless Ascending is set. A zero Limit returns every match.
type Query struct {
	BenchmarkID string
	ProfileID   string
	Trigger     string
	Outcome     outcome.Outcome

	// Since and Until bound StartTime, both inclusive.
	Since *time.Time
	Until *time.Time

	Limit     int
	Offset    int
	Ascending bool
}

// Validate reports an invalid query as a *QueryError.
func (q *Query) Validate() error {
	switch {
	case q.Limit < 0:
		return &QueryError{Query: q, Cause: fmt.Errorf("limit must be >= 0, got %d", q.Limit)}
	case q.Limit > MaxLimit:
		return &QueryError{Query: q, Cause: fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit)}
	case q.Offset < 0:
		return &QueryError{Query: q, Cause: fmt.Errorf("offset must be >= 0, got %d", q.Offset)}
	case q.Since != nil && q.Until != nil && q.Since.After(*q.Until):
		return &QueryError{Query: q, Cause: errors.New("since must be before until")}
	case q.Outcome != 0 && !q.Outcome.Valid():
		return &QueryError{Query: q, Cause: fmt.Errorf("invalid outcome %d", q.Outcome)}
	}
	return nil
}

// prepare substitutes an empty query for nil and validates it.
func prepare(q *Query) (*Query, error) {
	if q == nil {
		return &Query{}, nil
	}
	return q, q.Validate()
}

// Storage persists evaluation records. Implementations are safe for
// concurrent use.
type Storage interface {
	// Save persists a record, replacing any record with the same ID.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns the records matching q. An empty slice means no match.
	List(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q, ignoring paging.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes exactly the records List(q) would return and reports
	// how many were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// Latest returns the newest record matching q, or ErrNotFound.
func Latest(ctx context.Context, s Storage, q Query) (*Record, error) {
	q.Limit, q.Offset, q.Ascending = 1, 0, false
	records, err := s.List(ctx, &q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}
