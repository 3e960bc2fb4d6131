package matcher

import (
	"context"
	"errors"

	"mercator-hq/keel/pkg/anchor"
)

// ErrUnavailable indicates a matching strategy could not run (e.g. the
// semantic scorer timed out). Callers recover by falling back to the lexical
// strategy; the error is never used for a non-match.
var ErrUnavailable = errors.New("matcher unavailable")

// Result is the outcome of matching request text against a single anchor.
type Result struct {
	// Matched reports whether the request conflicts with the anchor.
	Matched bool

	// Fragments are the literal fragment(s) of the anchor's trigger set
	// found in the request text, for explanation building. Empty when
	// Matched is false.
	Fragments []string

	// Score is the similarity score for the semantic strategy, zero for
	// lexical matches.
	Score float64
}

// Matcher decides whether request text conflicts with a given anchor.
// The engine runs the matcher once per anchor in the resolved set and
// collects the full set of matched anchors.
type Matcher interface {
	// Match evaluates the request text against one anchor.
	Match(ctx context.Context, text string, a *anchor.Anchor) (*Result, error)

	// Name identifies the strategy ("lexical", "semantic") for trace records.
	Name() string
}
