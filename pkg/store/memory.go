package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/scoring"
)

// MemoryStorage implements Storage with an in-memory map. History is lost on
// exit; it backs one-shot CLI runs and tests.
type MemoryStorage struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*Record),
	}
}

// Save stores a copy of record.
func (s *MemoryStorage) Save(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" {
		return NewStorageError("memory", "save", errMissingID)
	}

	c := copyRecord(record)
	if c.RecordedTime.IsZero() {
		c.RecordedTime = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = c
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(record), nil
}

// List returns copies of the records matching q.
func (s *MemoryStorage) List(ctx context.Context, q *Query) ([]*Record, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.page(q)
	results := make([]*Record, 0, len(matched))
	for _, record := range matched {
		results = append(results, copyRecord(record))
	}
	return results, nil
}

// Count returns the number of records matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, q) {
			count++
		}
	}
	return count, nil
}

// Delete removes the records List(q) would return.
func (s *MemoryStorage) Delete(ctx context.Context, q *Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.page(q)
	for _, record := range matched {
		delete(s.records, record.ID)
	}
	return int64(len(matched)), nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops every record.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// page filters, orders and slices the records. The caller holds the lock.
func (s *MemoryStorage) page(q *Query) []*Record {
	var matched []*Record
	for _, record := range s.records {
		if matchesQuery(record, q) {
			matched = append(matched, record)
		}
	}

	slices.SortFunc(matched, func(a, b *Record) int {
		c := a.StartTime.Compare(b.StartTime)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if !q.Ascending {
			c = -c
		}
		return c
	})

	if q.Offset >= len(matched) {
		return nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}

func matchesQuery(record *Record, q *Query) bool {
	if q.BenchmarkID != "" && record.BenchmarkID != q.BenchmarkID {
		return false
	}
	if q.ProfileID != "" && record.ProfileID != q.ProfileID {
		return false
	}
	if q.Trigger != "" && record.Trigger != q.Trigger {
		return false
	}
	if q.Outcome != 0 && record.Outcome != q.Outcome {
		return false
	}
	if q.Since != nil && record.StartTime.Before(*q.Since) {
		return false
	}
	if q.Until != nil && record.StartTime.After(*q.Until) {
		return false
	}
	return true
}

// copyRecord copies record and its scores. The result tree is immutable and
// shared.
func copyRecord(record *Record) *Record {
	c := *record
	if record.Scores != nil {
		c.Scores = make([]*scoring.Score, len(record.Scores))
		for i, sc := range record.Scores {
			v := *sc
			c.Scores[i] = &v
		}
	}
	return &c
}
