// Package matcher decides whether request text conflicts with an anchor.
//
// Two interchangeable strategies implement the Matcher interface:
//
//   - Lexical (default): anchor statements are decomposed into trigger phrase
//     sets, either curated per-anchor or derived by tokenizing the statement;
//     a match is a case-insensitive substring hit. This strategy is fully
//     deterministic and is what the engine's determinism guarantees rest on.
//
//   - Semantic (optional): an external scorer computes a similarity score
//     between request text and anchor statement; a match is a score at or
//     above a fixed threshold. Output is no longer guaranteed bit-identical
//     across model versions; this is a reduced-determinism mode and is
//     never the default.
//
// When the semantic strategy is unavailable (timeout, transport failure) it
// returns ErrUnavailable; the decision engine degrades to lexical matching
// and flags the evaluation as degraded rather than failing or hanging.
package matcher
