package trace

import (
	"time"

	"mercator-hq/keel/pkg/anchor"
)

// Record is one immutable evaluation record (trace). The trace id doubles as
// the log id exposed to callers for reframe/acknowledge/replay.
type Record struct {
	// ID is the monotonic trace identifier, allocated at insert.
	ID int64 `json:"id"`

	// RequestID correlates the trace with transport-level logs.
	RequestID string `json:"request_id,omitempty"`

	// Summary is the request summary that was evaluated.
	Summary string `json:"request_summary"`

	// Arousal and Dominance are the state inputs as received
	// (low|med|high|unknown).
	Arousal   string `json:"arousal"`
	Dominance string `json:"dominance"`

	// ProfileID is the resolved profile scope; nil means unscoped.
	ProfileID *int64 `json:"profile_id,omitempty"`

	// Decision is "proceed" or "gate".
	Decision string `json:"decision"`

	// Reason is the machine-readable reason code.
	Reason string `json:"reason"`

	// Explanation names the triggering anchor(s) and matched fragment(s).
	Explanation string `json:"explanation"`

	// NextActions is the ordered next-action list offered to the caller.
	NextActions []string `json:"next_actions,omitempty"`

	// ConflictedAnchorID names the single anchor reported as conflicted
	// (lowest id at the max matched level). Zero when nothing matched.
	ConflictedAnchorID int64 `json:"conflicted_anchor_id,omitempty"`

	// MatchedAnchorIDs are all matched anchors, ordered by id.
	MatchedAnchorIDs []int64 `json:"matched_anchor_ids,omitempty"`

	// MaxMatchedLevel is the maximum level among matched anchors, zero when
	// nothing matched. Acknowledge preconditions read this.
	MaxMatchedLevel int `json:"max_matched_level,omitempty"`

	// ParentID links reframe/acknowledge records to their origin.
	ParentID *int64 `json:"parent_log_id,omitempty"`

	// Acknowledgement is the verbatim consent text, present only on
	// acknowledge records.
	Acknowledgement string `json:"acknowledgement,omitempty"`

	// Matcher is the strategy that produced the decision ("lexical",
	// "semantic"). Semantic traces are reduced-determinism mode.
	Matcher string `json:"matcher,omitempty"`

	// Degraded marks an evaluation where the semantic strategy failed and
	// lexical matching was used instead.
	Degraded bool `json:"degraded,omitempty"`

	// Snapshots are the point-in-time copies of every anchor considered.
	Snapshots []*Snapshot `json:"snapshots,omitempty"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is an immutable point-in-time copy of one anchor taken at
// evaluation time, keyed by (trace id, anchor id).
type Snapshot struct {
	TraceID  int64 `json:"trace_id"`
	AnchorID int64 `json:"anchor_id"`

	// Policy state at evaluation time.
	Level     anchor.Level `json:"level"`
	Scope     string       `json:"scope"`
	Statement string       `json:"statement"`
	Triggers  []string     `json:"triggers,omitempty"`
	Hash      string       `json:"hash"`
	Active    bool         `json:"active"`

	// Match outcome for this anchor.
	Matched   bool     `json:"matched"`
	Fragments []string `json:"fragments,omitempty"`
}

// Query defines filter parameters for listing trace records.
type Query struct {
	// Decision filters by decision ("proceed", "gate"). Empty means all.
	Decision string

	// Limit is the maximum number of records to return. Default 50.
	Limit int

	// Offset skips N records.
	Offset int
}
