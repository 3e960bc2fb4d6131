// Package profile resolves a policy-profile identifier to its effective
// anchor set. This is the sole scoping boundary in the evaluation pipeline:
// everything downstream of the resolver operates on a flat anchor slice and
// never special-cases profiles again.
package profile
