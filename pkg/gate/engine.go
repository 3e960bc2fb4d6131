package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/gate/matcher"
	"mercator-hq/keel/pkg/trace"
)

// AnchorResolver resolves an optional profile id to the effective anchor set.
type AnchorResolver interface {
	EffectiveAnchors(ctx context.Context, profileID *int64) ([]*anchor.Anchor, error)
}

// Recorder persists one evaluation as an immutable trace. It is the only
// path by which evaluation records are created.
type Recorder interface {
	Write(ctx context.Context, in *RecordInput) (*trace.Record, error)
}

// TraceReader looks up prior records for reframe/acknowledge chaining.
type TraceReader interface {
	Get(ctx context.Context, id int64) (*trace.Record, error)
}

// Metrics receives decision-level observations. A nil Metrics is valid.
type Metrics interface {
	RecordDecision(decision, reason string, duration time.Duration)
	RecordDegraded()
}

// Engine orchestrates the evaluation pipeline: resolve scope, match anchors,
// classify state, decide, record. Each invocation is stateless and appends
// exactly one trace; concurrent evaluations run fully in parallel against the
// shared, read-mostly policy store.
type Engine struct {
	resolver AnchorResolver
	matcher  matcher.Matcher
	lexical  *matcher.Lexical
	recorder Recorder
	traces   TraceReader
	metrics  Metrics
	logger   *slog.Logger
}

// NewEngine creates a new decision engine.
func NewEngine(resolver AnchorResolver, m matcher.Matcher, recorder Recorder, traces TraceReader) *Engine {
	return &Engine{
		resolver: resolver,
		matcher:  m,
		lexical:  matcher.NewLexical(),
		recorder: recorder,
		traces:   traces,
		logger:   slog.Default().With("component", "gate.engine"),
	}
}

// SetMetrics attaches a metrics sink. Safe to leave unset.
func (e *Engine) SetMetrics(m Metrics) {
	e.metrics = m
}

// Evaluate runs the full pipeline for a fresh request and appends one trace.
func (e *Engine) Evaluate(ctx context.Context, in *EvaluateInput) (*Result, error) {
	return e.evaluate(ctx, in, nil)
}

// Reframe re-runs the pipeline for new text and state under the parent
// record's profile scope, linking the new trace to its origin. It is a
// fresh, independent decision: a prior gate gets no special treatment.
func (e *Engine) Reframe(ctx context.Context, parentID int64, in *ReframeInput) (*Result, error) {
	parent, err := e.traces.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	arousal := ParseSignal(string(in.Arousal))
	dominance := ParseSignal(string(in.Dominance))

	// Omitted state inputs inherit from the parent record.
	if arousal == SignalUnknown {
		arousal = ParseSignal(parent.Arousal)
	}
	if dominance == SignalUnknown {
		dominance = ParseSignal(parent.Dominance)
	}

	return e.evaluate(ctx, &EvaluateInput{
		RequestID: in.RequestID,
		Summary:   in.Summary,
		Arousal:   arousal,
		Dominance: dominance,
		ProfileID: parent.ProfileID,
	}, &parent.ID)
}

// Acknowledge records explicit consent to proceed past a level ≤ 2 gate.
// The acknowledgement text is stored verbatim: it is the consent record and
// is never summarized or rewritten. Returns ErrInvalidOperation when the
// parent is not a gate or its maximum matched level is 3.
func (e *Engine) Acknowledge(ctx context.Context, parentID int64, acknowledgement string) (*Result, error) {
	parent, err := e.traces.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	if Decision(parent.Decision) != DecisionGate {
		return nil, fmt.Errorf("%w: record %d is not a gate (decision %q)",
			ErrInvalidOperation, parent.ID, parent.Decision)
	}
	if parent.MaxMatchedLevel > int(anchor.LevelSoft) {
		return nil, fmt.Errorf("%w: record %d gates on a level-%d anchor, which cannot be acknowledged through",
			ErrInvalidOperation, parent.ID, parent.MaxMatchedLevel)
	}

	start := time.Now()
	state := ClassifyState(ParseSignal(parent.Arousal), ParseSignal(parent.Dominance))

	outcome := &Outcome{
		Decision:    DecisionProceed,
		Reason:      ReasonProceedAcknowledged,
		Explanation: fmt.Sprintf("proceeding past gate %d with recorded acknowledgement", parent.ID),
	}

	rec, err := e.recorder.Write(ctx, &RecordInput{
		Summary:         parent.Summary,
		Arousal:         ParseSignal(parent.Arousal),
		Dominance:       ParseSignal(parent.Dominance),
		ProfileID:       parent.ProfileID,
		ControlState:    state,
		Outcome:         outcome,
		ParentID:        &parent.ID,
		Acknowledgement: acknowledgement,
	})
	if err != nil {
		return nil, err
	}

	e.observe(outcome, time.Since(start))
	e.logger.Info("gate acknowledged",
		"trace_id", rec.ID,
		"parent_id", parent.ID,
	)

	return e.buildResult(rec, outcome, state, false), nil
}

// evaluate is the shared pipeline for Evaluate and Reframe.
func (e *Engine) evaluate(ctx context.Context, in *EvaluateInput, parentID *int64) (*Result, error) {
	start := time.Now()

	anchors, err := e.resolver.EffectiveAnchors(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}

	arousal := ParseSignal(string(in.Arousal))
	dominance := ParseSignal(string(in.Dominance))
	state := ClassifyState(arousal, dominance)

	evaluated := make([]*EvaluatedAnchor, 0, len(anchors))
	matches := []*MatchedAnchor{}
	degraded := false

	for _, a := range anchors {
		res, err := e.matcher.Match(ctx, in.Summary, a)
		if errors.Is(err, matcher.ErrUnavailable) {
			// Fail closed to the deterministic strategy; the trace is
			// flagged so the degraded-mode evaluation is never silent.
			if !degraded {
				degraded = true
				e.logger.Warn("matcher unavailable, degrading to lexical strategy", "error", err)
				if e.metrics != nil {
					e.metrics.RecordDegraded()
				}
			}
			res, err = e.lexical.Match(ctx, in.Summary, a)
		}
		if err != nil {
			return nil, err
		}

		evaluated = append(evaluated, &EvaluatedAnchor{
			Anchor:    a,
			Matched:   res.Matched,
			Fragments: res.Fragments,
			Score:     res.Score,
		})

		if res.Matched {
			matches = append(matches, &MatchedAnchor{
				ID:        a.ID,
				Level:     a.Level,
				Scope:     a.Scope,
				Statement: a.Statement,
				Fragments: res.Fragments,
			})
		}
	}

	outcome := Decide(matches, state)

	matcherName := e.matcher.Name()
	if degraded {
		matcherName = e.lexical.Name()
	}

	rec, err := e.recorder.Write(ctx, &RecordInput{
		RequestID:    in.RequestID,
		Summary:      in.Summary,
		Arousal:      arousal,
		Dominance:    dominance,
		ProfileID:    in.ProfileID,
		ControlState: state,
		Outcome:      outcome,
		Evaluated:    evaluated,
		ParentID:     parentID,
		MatcherName:  matcherName,
		Degraded:     degraded,
	})
	if err != nil {
		return nil, err
	}

	e.observe(outcome, time.Since(start))
	e.logger.Info("request evaluated",
		"trace_id", rec.ID,
		"decision", outcome.Decision,
		"reason", outcome.Reason,
		"matched", len(matches),
		"evaluated", len(evaluated),
		"control_state", state,
		"degraded", degraded,
	)

	return e.buildResult(rec, outcome, state, degraded), nil
}

func (e *Engine) observe(outcome *Outcome, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordDecision(string(outcome.Decision), string(outcome.Reason), duration)
	}
}

func (e *Engine) buildResult(rec *trace.Record, outcome *Outcome, state ControlState, degraded bool) *Result {
	return &Result{
		TraceID:            rec.ID,
		Decision:           outcome.Decision,
		Reason:             outcome.Reason,
		Explanation:        outcome.Explanation,
		Warnings:           outcome.Warnings,
		NextActions:        outcome.NextActions,
		ConflictedAnchorID: outcome.ConflictedAnchorID,
		MatchedAnchorIDs:   outcome.MatchedAnchorIDs,
		ControlState:       state,
		ParentID:           rec.ParentID,
		Degraded:           degraded,
		CreatedAt:          rec.CreatedAt,
	}
}
