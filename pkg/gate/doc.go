// Package gate implements the boundary decision engine: it combines the
// matched-anchor set with a coarse control-state category to produce a
// decision, reason code, explanation, and next-action list, and records every
// invocation as an immutable trace.
//
// # Decision model
//
// The decision function is pure: given the same matched anchors and control
// state it always produces the same decision, reason, and explanation.
//
//   - No matches: proceed / no_conflict.
//   - Max matched level 1: proceed / l1_advisory_conflict, with the matched
//     statement surfaced as a warning.
//   - Max matched level 2: gate; acknowledge is offered. A dysregulated
//     control state escalates the reason to state_mismatch_with_l2_anchor
//     and prepends a pause action.
//   - Max matched level 3: gate; acknowledge is never offered. This is the
//     hard, no-pass-through gate.
//
// When several anchors share the maximum matched level, the lowest anchor id
// is named as the conflicted anchor; all matches at that level stay in the
// explanation.
//
// # Flows
//
// Evaluate runs the full pipeline and appends one trace. Reframe re-enters
// the pipeline with new text/state under the parent's profile scope and links
// the new trace to its origin. Acknowledge records explicit consent to
// proceed past a level ≤ 2 gate; the acknowledgement text is stored verbatim.
package gate
