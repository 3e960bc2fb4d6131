package storage

import (
	"context"

	"mercator-hq/keel/pkg/trace"
)

// Storage defines the interface for trace persistence backends.
// Implementations must be thread-safe.
type Storage interface {
	// Insert persists a record and its snapshots atomically, allocating
	// the next monotonic trace identifier. The stored record is returned
	// with ID and CreatedAt set.
	Insert(ctx context.Context, rec *trace.Record) (*trace.Record, error)

	// Get retrieves a record by trace id, including its snapshots.
	// Returns trace.ErrTraceNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*trace.Record, error)

	// List returns records matching the query, newest first, without
	// snapshots (use Get for the full record).
	List(ctx context.Context, q *trace.Query) ([]*trace.Record, error)

	// Count returns the number of records matching the query filters.
	Count(ctx context.Context, q *trace.Query) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
