package anchor

import (
	"errors"
	"fmt"
)

// Sentinel errors for the policy store. Callers match these with errors.Is.
var (
	// ErrAnchorNotFound indicates an unknown anchor identifier.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrProfileNotFound indicates an unknown profile identifier.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidAnchor indicates an anchor that fails validation
	// (bad level, empty statement).
	ErrInvalidAnchor = errors.New("invalid anchor")
)

// StorageError represents an error from a policy storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("create", "get", "archive", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("anchor storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
