package profile

import (
	"context"
	"log/slog"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/anchor/storage"
)

// Resolver maps an optional profile identifier to the effective anchor set.
type Resolver struct {
	store  storage.Storage
	logger *slog.Logger
}

// NewResolver creates a new profile resolver backed by the given policy store.
func NewResolver(store storage.Storage) *Resolver {
	return &Resolver{
		store:  store,
		logger: slog.Default().With("component", "profile.resolver"),
	}
}

// EffectiveAnchors resolves the anchor set for an evaluation.
//
// When profileID is nil the effective set is all active anchors. When set,
// the profile's member anchors are loaded in membership order and filtered to
// active ones. Returns anchor.ErrProfileNotFound for an unknown profile id.
func (r *Resolver) EffectiveAnchors(ctx context.Context, profileID *int64) ([]*anchor.Anchor, error) {
	if profileID == nil {
		return r.store.ListActive(ctx, "")
	}

	p, err := r.store.GetProfile(ctx, *profileID)
	if err != nil {
		return nil, err
	}

	anchors := []*anchor.Anchor{}
	for _, id := range p.AnchorIDs {
		a, err := r.store.GetAnchor(ctx, id)
		if err == anchor.ErrAnchorNotFound {
			// Membership rows cascade on anchor delete, but guard anyway:
			// a missing member narrows the set, it does not fail resolution.
			r.logger.Warn("profile references missing anchor",
				"profile_id", p.ID,
				"anchor_id", id,
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !a.Active {
			continue
		}
		anchors = append(anchors, a)
	}

	r.logger.Debug("profile resolved",
		"profile_id", p.ID,
		"member_count", len(p.AnchorIDs),
		"effective_count", len(anchors),
	)

	return anchors, nil
}
