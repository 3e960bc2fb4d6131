package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/anchor/storage"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/gate/matcher"
	"mercator-hq/keel/pkg/trace"
	tracestorage "mercator-hq/keel/pkg/trace/storage"
)

// DriftEntry records one difference between an anchor's snapshotted state at
// decision time and its current live state.
type DriftEntry struct {
	AnchorID int64  `json:"anchor_id"`
	Field    string `json:"field"` // "hash", "active", "level", "missing"
	Old      string `json:"old"`
	New      string `json:"new"`
}

// Report is the result of replaying one trace.
type Report struct {
	TraceID int64 `json:"trace_id"`

	DecisionBefore    string `json:"decision_before"`
	ReasonBefore      string `json:"reason_before"`
	ExplanationBefore string `json:"explanation_before"`

	DecisionNow    string `json:"decision_now"`
	ReasonNow      string `json:"reason_now"`
	ExplanationNow string `json:"explanation_now"`

	SameDecision    bool `json:"same_decision"`
	SameReason      bool `json:"same_reason"`
	SameExplanation bool `json:"same_explanation"`

	// Reproduced reports whether re-running the decision over the stored
	// snapshots yielded the recorded decision and reason. False indicates
	// a correctness bug, not expected drift.
	Reproduced bool `json:"reproduced"`

	Drift []DriftEntry `json:"drift"`
}

// Replayer re-derives past decisions from their snapshots.
type Replayer struct {
	traces  tracestorage.Storage
	anchors storage.Storage
	lexical *matcher.Lexical
	logger  *slog.Logger
}

// NewReplayer creates a new replayer over the trace and anchor stores.
func NewReplayer(traces tracestorage.Storage, anchors storage.Storage) *Replayer {
	return &Replayer{
		traces:  traces,
		anchors: anchors,
		lexical: matcher.NewLexical(),
		logger:  slog.Default().With("component", "trace.replay"),
	}
}

// Replay reconstructs the decision for the given trace id and reports drift.
// Returns trace.ErrTraceNotFound for an unknown id.
func (r *Replayer) Replay(ctx context.Context, traceID int64) (*Report, error) {
	rec, err := r.traces.Get(ctx, traceID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TraceID:           rec.ID,
		DecisionBefore:    rec.Decision,
		ReasonBefore:      rec.Reason,
		ExplanationBefore: rec.Explanation,
		Drift:             []DriftEntry{},
	}

	// Acknowledge records evaluated nothing: the decision is the recorded
	// consent itself, there are no snapshots, and nothing can drift.
	if gate.Reason(rec.Reason) == gate.ReasonProceedAcknowledged {
		report.DecisionNow = rec.Decision
		report.ReasonNow = rec.Reason
		report.ExplanationNow = rec.Explanation
		report.SameDecision = true
		report.SameReason = true
		report.SameExplanation = true
		report.Reproduced = true
		return report, nil
	}

	state := gate.ClassifyState(gate.ParseSignal(rec.Arousal), gate.ParseSignal(rec.Dominance))

	// Step 1: reproduce the original decision from the stored snapshots.
	// The snapshots carry the match outcome, so no matcher runs here: a
	// semantic-strategy trace reproduces exactly even though the scorer is
	// long gone.
	before := gate.Decide(snapshotMatches(rec.Snapshots), state)

	report.Reproduced = string(before.Decision) == rec.Decision && string(before.Reason) == rec.Reason
	if !report.Reproduced {
		r.logger.Error("replay failed to reproduce recorded decision",
			"trace_id", rec.ID,
			"recorded_decision", rec.Decision,
			"recorded_reason", rec.Reason,
			"replayed_decision", before.Decision,
			"replayed_reason", before.Reason,
		)
	}

	// Step 2: diff every snapshotted anchor against its live state.
	for _, snap := range rec.Snapshots {
		live, err := r.anchors.GetAnchor(ctx, snap.AnchorID)
		if errors.Is(err, anchor.ErrAnchorNotFound) {
			report.Drift = append(report.Drift, DriftEntry{
				AnchorID: snap.AnchorID,
				Field:    "missing",
				Old:      "present",
				New:      "absent",
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		if live.Hash != snap.Hash {
			report.Drift = append(report.Drift, DriftEntry{
				AnchorID: snap.AnchorID,
				Field:    "hash",
				Old:      snap.Hash,
				New:      live.Hash,
			})
		}
		if live.Active != snap.Active {
			report.Drift = append(report.Drift, DriftEntry{
				AnchorID: snap.AnchorID,
				Field:    "active",
				Old:      fmt.Sprintf("%t", snap.Active),
				New:      fmt.Sprintf("%t", live.Active),
			})
		}
		if live.Level != snap.Level {
			report.Drift = append(report.Drift, DriftEntry{
				AnchorID: snap.AnchorID,
				Field:    "level",
				Old:      fmt.Sprintf("%d", int(snap.Level)),
				New:      fmt.Sprintf("%d", int(live.Level)),
			})
		}
	}

	// Step 3: recompute against the anchor set as it exists live, under
	// the same profile scope.
	liveAnchors, err := r.resolveLive(ctx, rec.ProfileID)
	if err != nil {
		return nil, err
	}

	now, err := r.decideOver(ctx, rec.Summary, liveAnchors, state)
	if err != nil {
		return nil, err
	}

	report.DecisionNow = string(now.Decision)
	report.ReasonNow = string(now.Reason)
	report.ExplanationNow = now.Explanation
	report.SameDecision = report.DecisionBefore == report.DecisionNow
	report.SameReason = report.ReasonBefore == report.ReasonNow
	report.SameExplanation = len(report.Drift) == 0 && report.ExplanationBefore == report.ExplanationNow

	return report, nil
}

// decideOver runs the lexical match pass over the given live anchors and
// feeds the matches through the pure decision function. Only the live side
// uses it: a semantic trace's decision_now is a lexical recompute, which the
// drift entries put in context.
func (r *Replayer) decideOver(ctx context.Context, summary string, anchors []*anchor.Anchor, state gate.ControlState) (*gate.Outcome, error) {
	matches := []*gate.MatchedAnchor{}
	for _, a := range anchors {
		if !a.Active {
			continue
		}
		res, err := r.lexical.Match(ctx, summary, a)
		if err != nil {
			return nil, err
		}
		if res.Matched {
			matches = append(matches, &gate.MatchedAnchor{
				ID:        a.ID,
				Level:     a.Level,
				Scope:     a.Scope,
				Statement: a.Statement,
				Fragments: res.Fragments,
			})
		}
	}
	return gate.Decide(matches, state), nil
}

// resolveLive re-resolves the trace's profile scope against live state.
func (r *Replayer) resolveLive(ctx context.Context, profileID *int64) ([]*anchor.Anchor, error) {
	if profileID == nil {
		return r.anchors.ListActive(ctx, "")
	}

	p, err := r.anchors.GetProfile(ctx, *profileID)
	if err != nil {
		return nil, err
	}

	anchors := []*anchor.Anchor{}
	for _, id := range p.AnchorIDs {
		a, err := r.anchors.GetAnchor(ctx, id)
		if errors.Is(err, anchor.ErrAnchorNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if a.Active {
			anchors = append(anchors, a)
		}
	}
	return anchors, nil
}

// snapshotMatches rebuilds the matched set as it was recorded at decision
// time, straight from the snapshot rows.
func snapshotMatches(snaps []*trace.Snapshot) []*gate.MatchedAnchor {
	matches := []*gate.MatchedAnchor{}
	for _, s := range snaps {
		if !s.Matched {
			continue
		}
		matches = append(matches, &gate.MatchedAnchor{
			ID:        s.AnchorID,
			Level:     s.Level,
			Scope:     s.Scope,
			Statement: s.Statement,
			Fragments: append([]string(nil), s.Fragments...),
		})
	}
	return matches
}
