package gate

import "errors"

// ErrInvalidOperation indicates an acknowledge attempted against a record
// that cannot be acknowledged: a non-gate record, or a gate whose maximum
// matched level is 3. Surfaced to the caller, never retried.
var ErrInvalidOperation = errors.New("invalid operation")
