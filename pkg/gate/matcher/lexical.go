package matcher

import (
	"context"
	"strings"

	"mercator-hq/keel/pkg/anchor"
)

// maxDerivedTriggers caps how many tokens are derived from a statement when
// the anchor has no curated trigger set.
const maxDerivedTriggers = 8

// fillerWords are dropped when tokenizing a statement.
var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "and": {}, "or": {},
	"of": {}, "in": {}, "on": {}, "for": {},
}

// stopWords are filler words plus tokens too generic to act as triggers.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "and": {}, "or": {},
	"of": {}, "in": {}, "on": {}, "for": {},
	"i": {}, "you": {}, "we": {}, "it": {}, "is": {}, "are": {},
	"be": {}, "will": {}, "not": {}, "do": {}, "does": {},
}

// Lexical is the default, deterministic matching strategy.
type Lexical struct{}

// NewLexical creates a new lexical matcher.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Name identifies the strategy.
func (l *Lexical) Name() string {
	return "lexical"
}

// Match reports whether the request text contains any of the anchor's trigger
// phrases as a case-insensitive substring. Matched fragments are returned in
// trigger order, so identical inputs always produce identical results.
func (l *Lexical) Match(ctx context.Context, text string, a *anchor.Anchor) (*Result, error) {
	normText := normalize(text)
	if normText == "" {
		return &Result{}, nil
	}

	fragments := []string{}
	for _, trigger := range TriggerPhrases(a) {
		if strings.Contains(normText, trigger) {
			fragments = append(fragments, trigger)
		}
	}

	if len(fragments) == 0 {
		return &Result{}, nil
	}
	return &Result{Matched: true, Fragments: fragments}, nil
}

// TriggerPhrases returns the anchor's effective trigger phrase set: the
// curated triggers when present, otherwise tokens derived from the statement
// (filler and stop words removed, minimum three characters, capped at
// maxDerivedTriggers). Phrases are normalized for substring comparison.
func TriggerPhrases(a *anchor.Anchor) []string {
	if len(a.Triggers) > 0 {
		phrases := make([]string, 0, len(a.Triggers))
		for _, t := range a.Triggers {
			if norm := normalize(t); norm != "" {
				phrases = append(phrases, norm)
			}
		}
		return phrases
	}

	phrases := []string{}
	for _, tok := range strings.Fields(normalize(a.Statement)) {
		if _, ok := fillerWords[tok]; ok {
			continue
		}
		if len(phrases) >= maxDerivedTriggers {
			break
		}
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		phrases = append(phrases, tok)
	}
	return phrases
}

// normalize lowercases and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
