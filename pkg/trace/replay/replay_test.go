package replay

import (
	"context"
	"errors"
	"testing"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/gate/matcher"
	"mercator-hq/keel/pkg/profile"
	"mercator-hq/keel/pkg/trace"
	"mercator-hq/keel/pkg/trace/recorder"

	anchorstorage "mercator-hq/keel/pkg/anchor/storage"
	tracestorage "mercator-hq/keel/pkg/trace/storage"
)

type replayFixture struct {
	anchors  *anchorstorage.MemoryStorage
	traces   *tracestorage.MemoryStorage
	engine   *gate.Engine
	replayer *Replayer
}

func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()
	anchors := anchorstorage.NewMemoryStorage()
	traces := tracestorage.NewMemoryStorage()
	engine := gate.NewEngine(profile.NewResolver(anchors), matcher.NewLexical(), recorder.NewRecorder(traces), traces)
	return &replayFixture{
		anchors:  anchors,
		traces:   traces,
		engine:   engine,
		replayer: NewReplayer(traces, anchors),
	}
}

func (f *replayFixture) seedBudgetAnchor(t *testing.T) *anchor.Anchor {
	t.Helper()
	a, err := f.anchors.CreateAnchor(context.Background(), &anchor.Anchor{
		Level:     anchor.LevelSoft,
		Scope:     "budget",
		Statement: "avoid unplanned spending",
		Triggers:  []string{"buy"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func (f *replayFixture) gatedTrace(t *testing.T) *gate.Result {
	t.Helper()
	result, err := f.engine.Evaluate(context.Background(), &gate.EvaluateInput{
		Summary:   "buy a new workstation",
		Arousal:   gate.SignalMed,
		Dominance: gate.SignalMed,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != gate.DecisionGate {
		t.Fatalf("setup: expected gate, got %s", result.Decision)
	}
	return result
}

func TestReplayer_Replay_NoDrift(t *testing.T) {
	f := newReplayFixture(t)
	f.seedBudgetAnchor(t)
	gated := f.gatedTrace(t)

	report, err := f.replayer.Replay(context.Background(), gated.TraceID)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if !report.Reproduced {
		t.Error("snapshot replay should reproduce the recorded decision")
	}
	if len(report.Drift) != 0 {
		t.Errorf("unexpected drift: %v", report.Drift)
	}
	if !report.SameDecision || !report.SameReason || !report.SameExplanation {
		t.Errorf("unchanged policy should replay identically: %+v", report)
	}
	if report.DecisionNow != string(gate.DecisionGate) {
		t.Errorf("decision now = %s, want gate", report.DecisionNow)
	}
}

func TestReplayer_Replay_SemanticTraceReproduces(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// A semantic-strategy gate whose match has no lexical trigger hit. The
	// stored match outcome alone must reproduce the decision; the scorer is
	// not consulted at replay time.
	seeded, err := f.anchors.CreateAnchor(ctx, &anchor.Anchor{
		Level:     anchor.LevelSoft,
		Scope:     "budget",
		Statement: "avoid unplanned spending",
		Triggers:  []string{"splurge"},
	})
	if err != nil {
		t.Fatal(err)
	}

	inserted, err := f.traces.Insert(ctx, &trace.Record{
		Summary:   "thinking about dropping money on new gear",
		Arousal:   "med",
		Dominance: "med",
		Decision:  "gate",
		Reason:    "l2_anchor_conflict",
		Matcher:   "semantic",
		Snapshots: []*trace.Snapshot{
			{
				AnchorID:  seeded.ID,
				Level:     seeded.Level,
				Scope:     seeded.Scope,
				Statement: seeded.Statement,
				Triggers:  seeded.Triggers,
				Hash:      seeded.Hash,
				Active:    true,
				Matched:   true,
				Fragments: []string{`similarity 0.82 to "avoid unplanned spending"`},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, inserted.ID)
	if err != nil {
		t.Fatal(err)
	}

	if !report.Reproduced {
		t.Errorf("stored match outcome should reproduce the decision: before %s/%s, replayed %s",
			report.DecisionBefore, report.ReasonBefore, report.ExplanationBefore)
	}
	if len(report.Drift) != 0 {
		t.Errorf("unchanged anchor should not drift: %v", report.Drift)
	}
	// The live side recomputes lexically and finds no hit; that is a
	// strategy difference, not a reproduction failure.
	if report.DecisionNow != string(gate.DecisionProceed) {
		t.Errorf("decision now = %s, want proceed", report.DecisionNow)
	}
}

func TestReplayer_Replay_StatementDrift(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()
	seeded := f.seedBudgetAnchor(t)
	gated := f.gatedTrace(t)

	// Rewriting the statement and triggers removes the lexical hit and
	// changes the content hash.
	seeded.Statement = "keep discretionary purchases under review"
	seeded.Triggers = []string{"splurge"}
	if err := f.anchors.UpdateAnchor(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, gated.TraceID)
	if err != nil {
		t.Fatal(err)
	}

	if !report.Reproduced {
		t.Error("snapshots should still reproduce the original decision")
	}
	if len(report.Drift) != 1 || report.Drift[0].Field != "hash" {
		t.Fatalf("expected one hash drift entry, got %v", report.Drift)
	}
	if report.SameDecision {
		t.Error("decision should have drifted to proceed")
	}
	if report.DecisionNow != string(gate.DecisionProceed) {
		t.Errorf("decision now = %s, want proceed", report.DecisionNow)
	}
}

func TestReplayer_Replay_ArchiveDrift(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()
	seeded := f.seedBudgetAnchor(t)
	gated := f.gatedTrace(t)

	if err := f.anchors.ArchiveAnchor(ctx, seeded.ID); err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, gated.TraceID)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Drift) != 1 || report.Drift[0].Field != "active" {
		t.Fatalf("expected one active drift entry, got %v", report.Drift)
	}
	if report.DecisionNow != string(gate.DecisionProceed) {
		t.Errorf("archived anchor should no longer gate, got %s", report.DecisionNow)
	}
}

func TestReplayer_Replay_LevelDrift(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()
	seeded := f.seedBudgetAnchor(t)
	gated := f.gatedTrace(t)

	seeded.Level = anchor.LevelHard
	if err := f.anchors.UpdateAnchor(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, gated.TraceID)
	if err != nil {
		t.Fatal(err)
	}

	// The level feeds the content hash, so both fields report drift.
	fields := map[string]bool{}
	for _, d := range report.Drift {
		fields[d.Field] = true
	}
	if !fields["level"] || !fields["hash"] {
		t.Errorf("expected level and hash drift, got %v", report.Drift)
	}

	// Still a gate either way, but the reason shifts to the harder level.
	if !report.SameDecision {
		t.Errorf("decision should hold at gate, got %s", report.DecisionNow)
	}
	if report.SameReason {
		t.Errorf("reason should drift to the level-3 code, got %s", report.ReasonNow)
	}
}

func TestReplayer_Replay_MissingAnchor(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	// A snapshot referencing an anchor that no longer exists anywhere.
	inserted, err := f.traces.Insert(ctx, &trace.Record{
		Summary:   "buy a new workstation",
		Arousal:   "med",
		Dominance: "med",
		Decision:  "gate",
		Reason:    "l2_anchor_conflict",
		Snapshots: []*trace.Snapshot{
			{
				AnchorID:  42,
				Level:     anchor.LevelSoft,
				Scope:     "budget",
				Statement: "avoid unplanned spending",
				Triggers:  []string{"buy"},
				Hash:      "deadbeef",
				Active:    true,
				Matched:   true,
				Fragments: []string{"buy"},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, inserted.ID)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Drift) != 1 || report.Drift[0].Field != "missing" {
		t.Fatalf("expected one missing drift entry, got %v", report.Drift)
	}
	if report.Drift[0].AnchorID != 42 {
		t.Errorf("drift anchor id = %d, want 42", report.Drift[0].AnchorID)
	}
}

func TestReplayer_Replay_AcknowledgeRecord(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()
	f.seedBudgetAnchor(t)
	gated := f.gatedTrace(t)

	acked, err := f.engine.Acknowledge(ctx, gated.TraceID, "I accept the risk")
	if err != nil {
		t.Fatal(err)
	}

	report, err := f.replayer.Replay(ctx, acked.TraceID)
	if err != nil {
		t.Fatal(err)
	}

	if !report.Reproduced {
		t.Error("acknowledge record should always reproduce")
	}
	if len(report.Drift) != 0 {
		t.Errorf("acknowledge record cannot drift: %v", report.Drift)
	}
	if !report.SameDecision || !report.SameReason || !report.SameExplanation {
		t.Errorf("acknowledge replay should be identical: %+v", report)
	}
}

func TestReplayer_Replay_UnknownTrace(t *testing.T) {
	f := newReplayFixture(t)

	if _, err := f.replayer.Replay(context.Background(), 404); !errors.Is(err, trace.ErrTraceNotFound) {
		t.Errorf("expected ErrTraceNotFound, got %v", err)
	}
}
