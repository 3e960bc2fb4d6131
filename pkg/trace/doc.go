// Package trace defines the immutable audit record written for every
// boundary decision, together with the anchor snapshots that make a past
// decision replayable.
//
// # Truthful memory
//
// A trace's decision, reason, explanation, and anchor snapshots are never
// updated after the row is written. Reframe and acknowledge flows append new
// records linked to their origin through ParentID, forming a rooted tree: a
// record can only reference a record created strictly before it, so chains
// never cycle.
//
// # Snapshots
//
// Every anchor considered during an evaluation is snapshotted, matched or
// not, so the replay engine can both reproduce the original decision and
// detect anchors that would newly match today. Snapshots carry the match
// outcome and fragments in addition to the identity fields, so reproducing
// the recorded decision needs no matcher at all.
//
// Persistence lives in the storage subpackage; record creation goes through
// the recorder subpackage, which is the only path that writes records.
package trace
