package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Level is the severity level of an anchor.
type Level int

const (
	// LevelAdvisory anchors surface a warning but never block.
	LevelAdvisory Level = 1

	// LevelSoft anchors gate the request but can be acknowledged through.
	LevelSoft Level = 2

	// LevelHard anchors gate the request with no acknowledgement path.
	LevelHard Level = 3
)

// Valid reports whether the level is one of the three defined levels.
func (l Level) Valid() bool {
	return l >= LevelAdvisory && l <= LevelHard
}

// String returns the level as a short label.
func (l Level) String() string {
	switch l {
	case LevelAdvisory:
		return "advisory"
	case LevelSoft:
		return "soft"
	case LevelHard:
		return "hard"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Anchor is a single programmable policy statement.
type Anchor struct {
	// ID is the immutable, unique anchor identifier.
	ID int64 `json:"id" yaml:"id,omitempty"`

	// Level is the severity level (1-3).
	Level Level `json:"level" yaml:"level"`

	// Scope is a free-form domain label (e.g. "security").
	Scope string `json:"scope" yaml:"scope"`

	// Statement is the policy statement text.
	Statement string `json:"statement" yaml:"statement"`

	// Triggers is an optional curated set of trigger phrases for lexical
	// matching. When empty, trigger phrases are derived from the statement.
	Triggers []string `json:"triggers,omitempty" yaml:"triggers,omitempty"`

	// Active indicates whether the anchor participates in matching.
	// Archived anchors stay in storage with Active=false.
	Active bool `json:"active" yaml:"active,omitempty"`

	// Hash is the deterministic content hash over (level, scope, statement).
	Hash string `json:"hash" yaml:"-"`

	// CreatedAt is when the anchor was created.
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// ContentHash computes the deterministic SHA-256 content hash for an anchor.
// The hash covers level, scope, and statement only: the active flag and
// trigger phrases are excluded, so toggling or retagging an anchor's triggers
// never shows up as policy drift.
func ContentHash(level Level, scope, statement string) string {
	payload := fmt.Sprintf("%d|%s|%s", int(level), scope, statement)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ComputeHash returns the content hash for the anchor's current fields.
func (a *Anchor) ComputeHash() string {
	return ContentHash(a.Level, a.Scope, a.Statement)
}

// Profile is a named, ordered set of anchor references.
type Profile struct {
	// ID is the immutable, unique profile identifier.
	ID int64 `json:"id"`

	// Name is the unique profile name.
	Name string `json:"name"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`

	// Active indicates whether the profile can be used for scoping.
	Active bool `json:"active"`

	// AnchorIDs are the member anchors in membership order.
	AnchorIDs []int64 `json:"anchor_ids"`

	// CreatedAt is when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}
