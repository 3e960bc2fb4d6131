package storage

import (
	"context"

	"mercator-hq/keel/pkg/anchor"
)

// Storage defines the interface for anchor and profile persistence.
// Implementations must be thread-safe and support concurrent access.
type Storage interface {
	// CreateAnchor persists a new anchor. Level, scope, statement, and
	// optional triggers are taken from the input; ID, Hash, Active, and
	// CreatedAt are assigned by the store. Returns the stored anchor.
	CreateAnchor(ctx context.Context, a *anchor.Anchor) (*anchor.Anchor, error)

	// GetAnchor retrieves an anchor by ID.
	// Returns anchor.ErrAnchorNotFound if it does not exist.
	GetAnchor(ctx context.Context, id int64) (*anchor.Anchor, error)

	// ListAnchors returns all anchors ordered by ID. When includeInactive
	// is false, archived anchors are excluded.
	ListAnchors(ctx context.Context, includeInactive bool) ([]*anchor.Anchor, error)

	// ListActive returns all active anchors, optionally restricted to a
	// scope tag. An empty scope means all scopes.
	ListActive(ctx context.Context, scope string) ([]*anchor.Anchor, error)

	// UpdateAnchor applies an edit to level, scope, statement, or triggers
	// as a single atomic update, recomputing the content hash.
	// Returns anchor.ErrAnchorNotFound if the anchor does not exist.
	UpdateAnchor(ctx context.Context, a *anchor.Anchor) error

	// ArchiveAnchor sets the anchor's active flag to false atomically.
	// Archiving is idempotent. Returns anchor.ErrAnchorNotFound if the
	// anchor does not exist.
	ArchiveAnchor(ctx context.Context, id int64) error

	// CreateProfile persists a new profile with the given member anchors.
	// Every referenced anchor must exist.
	CreateProfile(ctx context.Context, name, description string, anchorIDs []int64) (*anchor.Profile, error)

	// GetProfile retrieves a profile by ID, including membership order.
	// Returns anchor.ErrProfileNotFound if it does not exist.
	GetProfile(ctx context.Context, id int64) (*anchor.Profile, error)

	// ListProfiles returns all profiles ordered by ID.
	ListProfiles(ctx context.Context) ([]*anchor.Profile, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
