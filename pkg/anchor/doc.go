// Package anchor defines the core policy types for the Keel boundary engine:
// anchors (programmable policy statements with a severity level) and policy
// profiles (named scopes restricting which anchors apply to an evaluation).
//
// # Anchors
//
// An anchor is a single policy statement with:
//   - A severity level (1 = advisory, 2 = soft gate, 3 = hard gate)
//   - A free-form scope tag (e.g. "security", "finance")
//   - The statement text itself
//   - An optional curated set of trigger phrases for lexical matching
//   - An active flag (anchors are archived, never deleted)
//   - A deterministic content hash
//
// The content hash covers exactly (level, scope, statement). It changes if
// and only if one of those fields changes, which is what makes policy drift
// detectable: a decision trace snapshots the hash at evaluation time, and
// replay compares it against the live anchor.
//
// # Profiles
//
// A profile is a named, ordered set of anchor references. Membership does not
// mutate the anchor; an anchor may belong to any number of profiles.
//
// Persistence lives in the storage subpackage. This package holds only types,
// hashing, and the error taxonomy shared across the engine.
package anchor
