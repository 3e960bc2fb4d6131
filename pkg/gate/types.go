package gate

import (
	"time"

	"mercator-hq/keel/pkg/anchor"
)

// Signal is a coarse three-valued state input (plus unknown).
type Signal string

const (
	SignalLow     Signal = "low"
	SignalMed     Signal = "med"
	SignalHigh    Signal = "high"
	SignalUnknown Signal = "unknown"
)

// ParseSignal normalizes a raw signal string; anything unrecognized maps to
// unknown rather than failing the evaluation.
func ParseSignal(s string) Signal {
	switch Signal(s) {
	case SignalLow, SignalMed, SignalHigh:
		return Signal(s)
	default:
		return SignalUnknown
	}
}

// ControlState is the normalized control-state category. It modifies
// explanation and severity wording only, never the match set.
type ControlState string

const (
	// StateRegulated is the default category.
	StateRegulated ControlState = "regulated"

	// StateDysregulated is assigned when arousal is high and dominance is
	// low: the one failure mode this classifier exists to catch.
	StateDysregulated ControlState = "dysregulated"
)

// Decision is the gate's verdict on a request.
type Decision string

const (
	// DecisionProceed allows forward progress.
	DecisionProceed Decision = "proceed"

	// DecisionGate blocks forward progress pending reframe or acknowledgement.
	DecisionGate Decision = "gate"
)

// Reason is the machine-readable reason code attached to a decision.
type Reason string

const (
	ReasonNoConflict          Reason = "no_conflict"
	ReasonL1Advisory          Reason = "l1_advisory_conflict"
	ReasonL2Conflict          Reason = "l2_anchor_conflict"
	ReasonL2StateMismatch     Reason = "state_mismatch_with_l2_anchor"
	ReasonL3Conflict          Reason = "l3_anchor_conflict"
	ReasonL3StateMismatch     Reason = "state_mismatch_with_l3_anchor"
	ReasonProceedAcknowledged Reason = "proceed_acknowledged"
)

// NextAction is a follow-up the caller can take after a decision.
type NextAction string

const (
	ActionPause               NextAction = "pause"
	ActionReframe             NextAction = "reframe"
	ActionProceedAcknowledged NextAction = "proceed_acknowledged"
	ActionViewConflicts       NextAction = "view_conflicts"
)

// MatchedAnchor is the decision function's view of one matched anchor. It is
// built either from a live anchor or from a trace snapshot, which is what
// keeps replay independent of live policy state.
type MatchedAnchor struct {
	ID        int64
	Level     anchor.Level
	Scope     string
	Statement string
	Fragments []string
}

// Outcome is the pure decision output.
type Outcome struct {
	Decision    Decision
	Reason      Reason
	Explanation string

	// Warnings carries the statements of advisory anchors surfaced on a
	// level-1 proceed.
	Warnings []string

	// NextActions is ordered; it is empty for unconflicted proceeds.
	NextActions []NextAction

	// ConflictedAnchorID is the anchor named as conflicted (lowest id at
	// the max matched level), zero when nothing matched.
	ConflictedAnchorID int64

	// MatchedAnchorIDs are all matched anchors ordered by id.
	MatchedAnchorIDs []int64

	// MaxMatchedLevel is the maximum level among matches, zero if none.
	MaxMatchedLevel int
}

// EvaluatedAnchor records the match outcome for one anchor in the resolved
// set, for snapshotting.
type EvaluatedAnchor struct {
	Anchor    *anchor.Anchor
	Matched   bool
	Fragments []string
	Score     float64
}

// EvaluateInput is a request evaluation.
type EvaluateInput struct {
	// RequestID correlates the trace with transport-level logs; optional.
	RequestID string

	// Summary is the natural-language request summary to evaluate.
	Summary string

	// Arousal and Dominance are the state inputs.
	Arousal   Signal
	Dominance Signal

	// ProfileID optionally scopes the evaluation; nil means all active
	// anchors.
	ProfileID *int64
}

// ReframeInput is a re-submission of intent linked to a prior record. The
// profile scope is inherited from the parent record, not supplied here.
type ReframeInput struct {
	RequestID string
	Summary   string
	Arousal   Signal
	Dominance Signal
}

// Result is the engine's response for evaluate, reframe, and acknowledge.
type Result struct {
	TraceID            int64        `json:"log_id"`
	Decision           Decision     `json:"decision"`
	Reason             Reason       `json:"reason"`
	Explanation        string       `json:"explanation"`
	Warnings           []string     `json:"warnings,omitempty"`
	NextActions        []NextAction `json:"next_actions,omitempty"`
	ConflictedAnchorID int64        `json:"conflicted_anchor_id,omitempty"`
	MatchedAnchorIDs   []int64      `json:"matched_anchor_ids,omitempty"`
	ControlState       ControlState `json:"control_state"`
	ParentID           *int64       `json:"parent_log_id,omitempty"`
	Degraded           bool         `json:"degraded,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// RecordInput is everything the trace recorder needs to persist one
// evaluation: inputs, outcome, and the full evaluated anchor set.
type RecordInput struct {
	RequestID       string
	Summary         string
	Arousal         Signal
	Dominance       Signal
	ProfileID       *int64
	ControlState    ControlState
	Outcome         *Outcome
	Evaluated       []*EvaluatedAnchor
	ParentID        *int64
	Acknowledgement string
	MatcherName     string
	Degraded        bool
}
