package storage

import (
	"context"
	"sync"
	"time"

	"mercator-hq/keel/pkg/trace"
)

// MemoryStorage implements the Storage interface with an in-memory arena of
// records indexed by monotonic id, never freed or mutated in place. Intended
// for tests and examples.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[int64]*trace.Record
	nextID  int64
}

// NewMemoryStorage creates a new in-memory trace store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[int64]*trace.Record),
		nextID:  1,
	}
}

// Insert persists a record and its snapshots, allocating the next trace id.
func (m *MemoryStorage) Insert(ctx context.Context, rec *trace.Record) (*trace.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyRecord(rec)
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	for _, s := range stored.Snapshots {
		s.TraceID = stored.ID
	}
	m.nextID++
	m.records[stored.ID] = stored

	return copyRecord(stored), nil
}

// Get retrieves a record by trace id, including snapshots.
func (m *MemoryStorage) Get(ctx context.Context, id int64) (*trace.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, trace.ErrTraceNotFound
	}
	return copyRecord(rec), nil
}

// List returns records matching the query, newest first, without snapshots.
func (m *MemoryStorage) List(ctx context.Context, q *trace.Query) ([]*trace.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	records := []*trace.Record{}
	skipped := 0
	for id := m.nextID - 1; id >= 1 && len(records) < limit; id-- {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if q.Decision != "" && rec.Decision != q.Decision {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		c := copyRecord(rec)
		c.Snapshots = nil
		records = append(records, c)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (m *MemoryStorage) Count(ctx context.Context, q *trace.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, rec := range m.records {
		if q.Decision != "" && rec.Decision != q.Decision {
			continue
		}
		count++
	}
	return count, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}

func copyRecord(rec *trace.Record) *trace.Record {
	c := *rec
	c.NextActions = append([]string(nil), rec.NextActions...)
	c.MatchedAnchorIDs = append([]int64(nil), rec.MatchedAnchorIDs...)
	if rec.ProfileID != nil {
		id := *rec.ProfileID
		c.ProfileID = &id
	}
	if rec.ParentID != nil {
		id := *rec.ParentID
		c.ParentID = &id
	}
	c.Snapshots = make([]*trace.Snapshot, 0, len(rec.Snapshots))
	for _, s := range rec.Snapshots {
		sc := *s
		sc.Triggers = append([]string(nil), s.Triggers...)
		sc.Fragments = append([]string(nil), s.Fragments...)
		c.Snapshots = append(c.Snapshots, &sc)
	}
	return &c
}
