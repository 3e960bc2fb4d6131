package gate

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/keel/pkg/anchor"
)

// Decide is the pure decision function. Given the matched-anchor set and the
// control-state category it produces the decision, reason code, explanation,
// and next-action list. It performs no I/O and no clock reads: evaluating the
// same inputs twice always yields the identical outcome, which is what both
// the determinism guarantee and the replay engine rest on.
func Decide(matches []*MatchedAnchor, state ControlState) *Outcome {
	if len(matches) == 0 {
		return &Outcome{
			Decision:    DecisionProceed,
			Reason:      ReasonNoConflict,
			Explanation: "no conflicts detected against the effective anchor set",
		}
	}

	sorted := append([]*MatchedAnchor(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	maxLevel := anchor.Level(0)
	for _, m := range sorted {
		if m.Level > maxLevel {
			maxLevel = m.Level
		}
	}

	// All matches at the maximum level stay in the explanation set; the
	// lowest id among them is the one named as conflicted.
	top := []*MatchedAnchor{}
	matchedIDs := make([]int64, 0, len(sorted))
	for _, m := range sorted {
		matchedIDs = append(matchedIDs, m.ID)
		if m.Level == maxLevel {
			top = append(top, m)
		}
	}

	out := &Outcome{
		ConflictedAnchorID: top[0].ID,
		MatchedAnchorIDs:   matchedIDs,
		MaxMatchedLevel:    int(maxLevel),
	}

	switch maxLevel {
	case anchor.LevelAdvisory:
		out.Decision = DecisionProceed
		out.Reason = ReasonL1Advisory
		for _, m := range top {
			out.Warnings = append(out.Warnings, m.Statement)
		}

	case anchor.LevelSoft:
		out.Decision = DecisionGate
		if state == StateDysregulated {
			out.Reason = ReasonL2StateMismatch
			out.NextActions = []NextAction{ActionPause, ActionReframe, ActionProceedAcknowledged, ActionViewConflicts}
		} else {
			out.Reason = ReasonL2Conflict
			out.NextActions = []NextAction{ActionReframe, ActionProceedAcknowledged, ActionViewConflicts}
		}

	default: // LevelHard: proceed_acknowledged is never offered here.
		out.Decision = DecisionGate
		if state == StateDysregulated {
			out.Reason = ReasonL3StateMismatch
			out.NextActions = []NextAction{ActionPause, ActionReframe, ActionViewConflicts}
		} else {
			out.Reason = ReasonL3Conflict
			out.NextActions = []NextAction{ActionReframe, ActionViewConflicts}
		}
	}

	out.Explanation = buildExplanation(top, out.Decision, state)

	return out
}

// buildExplanation names the triggering anchor(s) by scope/id and the literal
// matched fragment(s). It is never empty when the decision is gate.
func buildExplanation(top []*MatchedAnchor, decision Decision, state ControlState) string {
	lines := make([]string, 0, len(top))
	for _, m := range top {
		quoted := make([]string, 0, len(m.Fragments))
		for _, f := range m.Fragments {
			quoted = append(quoted, fmt.Sprintf("%q", f))
		}
		lines = append(lines, fmt.Sprintf("anchor %d (scope %q, level %s) triggered by %s",
			m.ID, m.Scope, m.Level, strings.Join(quoted, ", ")))
	}

	var b strings.Builder
	if decision == DecisionGate {
		b.WriteString("request conflicts with ")
	} else {
		b.WriteString("advisory conflict with ")
	}
	b.WriteString(strings.Join(lines, "; "))

	if decision == DecisionGate && state == StateDysregulated {
		b.WriteString(" while the control state reads high-arousal / low-control")
	}

	return b.String()
}
