package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/keel/pkg/anchor"
)

// MemoryStorage implements the Storage interface with in-memory maps.
// It is intended for tests and examples, not production use.
type MemoryStorage struct {
	mu            sync.RWMutex
	anchors       map[int64]*anchor.Anchor
	profiles      map[int64]*anchor.Profile
	nextAnchorID  int64
	nextProfileID int64
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		anchors:       make(map[int64]*anchor.Anchor),
		profiles:      make(map[int64]*anchor.Profile),
		nextAnchorID:  1,
		nextProfileID: 1,
	}
}

// CreateAnchor persists a new anchor.
func (m *MemoryStorage) CreateAnchor(ctx context.Context, a *anchor.Anchor) (*anchor.Anchor, error) {
	if !a.Level.Valid() || a.Statement == "" {
		return nil, fmt.Errorf("%w: level=%d statement=%q", anchor.ErrInvalidAnchor, a.Level, a.Statement)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := &anchor.Anchor{
		ID:        m.nextAnchorID,
		Level:     a.Level,
		Scope:     a.Scope,
		Statement: a.Statement,
		Triggers:  append([]string(nil), a.Triggers...),
		Active:    true,
		Hash:      anchor.ContentHash(a.Level, a.Scope, a.Statement),
		CreatedAt: time.Now().UTC(),
	}
	m.nextAnchorID++
	m.anchors[stored.ID] = stored

	return copyAnchor(stored), nil
}

// GetAnchor retrieves an anchor by ID.
func (m *MemoryStorage) GetAnchor(ctx context.Context, id int64) (*anchor.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.anchors[id]
	if !ok {
		return nil, anchor.ErrAnchorNotFound
	}
	return copyAnchor(a), nil
}

// ListAnchors returns all anchors ordered by ID.
func (m *MemoryStorage) ListAnchors(ctx context.Context, includeInactive bool) ([]*anchor.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	anchors := []*anchor.Anchor{}
	for _, a := range m.anchors {
		if !includeInactive && !a.Active {
			continue
		}
		anchors = append(anchors, copyAnchor(a))
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })

	return anchors, nil
}

// ListActive returns all active anchors, optionally restricted to a scope.
func (m *MemoryStorage) ListActive(ctx context.Context, scope string) ([]*anchor.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	anchors := []*anchor.Anchor{}
	for _, a := range m.anchors {
		if !a.Active {
			continue
		}
		if scope != "" && a.Scope != scope {
			continue
		}
		anchors = append(anchors, copyAnchor(a))
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].ID < anchors[j].ID })

	return anchors, nil
}

// UpdateAnchor applies an edit atomically, recomputing the content hash.
func (m *MemoryStorage) UpdateAnchor(ctx context.Context, a *anchor.Anchor) error {
	if !a.Level.Valid() || a.Statement == "" {
		return fmt.Errorf("%w: level=%d statement=%q", anchor.ErrInvalidAnchor, a.Level, a.Statement)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.anchors[a.ID]
	if !ok {
		return anchor.ErrAnchorNotFound
	}

	existing.Level = a.Level
	existing.Scope = a.Scope
	existing.Statement = a.Statement
	existing.Triggers = append([]string(nil), a.Triggers...)
	existing.Hash = anchor.ContentHash(a.Level, a.Scope, a.Statement)

	return nil
}

// ArchiveAnchor sets the anchor's active flag to false.
func (m *MemoryStorage) ArchiveAnchor(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.anchors[id]
	if !ok {
		return anchor.ErrAnchorNotFound
	}
	a.Active = false

	return nil
}

// CreateProfile persists a new profile with the given member anchors.
func (m *MemoryStorage) CreateProfile(ctx context.Context, name, description string, anchorIDs []int64) (*anchor.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range anchorIDs {
		if _, ok := m.anchors[id]; !ok {
			return nil, fmt.Errorf("profile member %d: %w", id, anchor.ErrAnchorNotFound)
		}
	}

	p := &anchor.Profile{
		ID:          m.nextProfileID,
		Name:        name,
		Description: description,
		Active:      true,
		AnchorIDs:   append([]int64(nil), anchorIDs...),
		CreatedAt:   time.Now().UTC(),
	}
	m.nextProfileID++
	m.profiles[p.ID] = p

	return copyProfile(p), nil
}

// GetProfile retrieves a profile by ID.
func (m *MemoryStorage) GetProfile(ctx context.Context, id int64) (*anchor.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, anchor.ErrProfileNotFound
	}
	return copyProfile(p), nil
}

// ListProfiles returns all profiles ordered by ID.
func (m *MemoryStorage) ListProfiles(ctx context.Context) ([]*anchor.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profiles := []*anchor.Profile{}
	for _, p := range m.profiles {
		profiles = append(profiles, copyProfile(p))
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })

	return profiles, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryStorage) Close() error {
	return nil
}

func copyAnchor(a *anchor.Anchor) *anchor.Anchor {
	c := *a
	c.Triggers = append([]string(nil), a.Triggers...)
	return &c
}

func copyProfile(p *anchor.Profile) *anchor.Profile {
	c := *p
	c.AnchorIDs = append([]int64(nil), p.AnchorIDs...)
	return &c
}
