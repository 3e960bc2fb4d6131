package recorder

import (
	"context"
	"log/slog"

	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/trace"
	"mercator-hq/keel/pkg/trace/storage"
)

// Recorder persists evaluation records. It implements gate.Recorder.
type Recorder struct {
	storage storage.Storage
	logger  *slog.Logger
}

// NewRecorder creates a new trace recorder over the given storage backend.
func NewRecorder(st storage.Storage) *Recorder {
	return &Recorder{
		storage: st,
		logger:  slog.Default().With("component", "trace.recorder"),
	}
}

// Write builds the evaluation record, snapshots the full evaluated anchor
// set, and persists everything atomically. The returned record carries the
// allocated trace id.
func (r *Recorder) Write(ctx context.Context, in *gate.RecordInput) (*trace.Record, error) {
	rec := &trace.Record{
		RequestID:          in.RequestID,
		Summary:            in.Summary,
		Arousal:            string(in.Arousal),
		Dominance:          string(in.Dominance),
		ProfileID:          in.ProfileID,
		Decision:           string(in.Outcome.Decision),
		Reason:             string(in.Outcome.Reason),
		Explanation:        in.Outcome.Explanation,
		ConflictedAnchorID: in.Outcome.ConflictedAnchorID,
		MatchedAnchorIDs:   in.Outcome.MatchedAnchorIDs,
		MaxMatchedLevel:    in.Outcome.MaxMatchedLevel,
		ParentID:           in.ParentID,
		Acknowledgement:    in.Acknowledgement,
		Matcher:            in.MatcherName,
		Degraded:           in.Degraded,
	}
	for _, action := range in.Outcome.NextActions {
		rec.NextActions = append(rec.NextActions, string(action))
	}

	for _, ev := range in.Evaluated {
		rec.Snapshots = append(rec.Snapshots, &trace.Snapshot{
			AnchorID:  ev.Anchor.ID,
			Level:     ev.Anchor.Level,
			Scope:     ev.Anchor.Scope,
			Statement: ev.Anchor.Statement,
			Triggers:  append([]string(nil), ev.Anchor.Triggers...),
			Hash:      ev.Anchor.Hash,
			Active:    ev.Anchor.Active,
			Matched:   ev.Matched,
			Fragments: append([]string(nil), ev.Fragments...),
		})
	}

	stored, err := r.storage.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("trace recorded",
		"trace_id", stored.ID,
		"decision", stored.Decision,
		"snapshot_count", len(stored.Snapshots),
	)

	return stored, nil
}
