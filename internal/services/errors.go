package services

import "errors"

// Typed failures raised by the core services. Handlers branch on these with
// errors.Is; the message wrapped around them is what clients see.
var (
	// ErrNotFound: referenced entity absent, not owned by the caller, or in
	// the wrong lifecycle state for the operation
	ErrNotFound = errors.New("not found")

	// ErrConflict: sibling name collision, or a hard delete of a non-empty folder
	ErrConflict = errors.New("conflict")

	// ErrQuotaExceeded: the upload would exceed the owner's byte budget
	ErrQuotaExceeded = errors.New("storage limit exceeded")

	// ErrInvalidState: operation not valid for the item's current state,
	// e.g. restoring under a trashed parent or removing-from-folder at root
	ErrInvalidState = errors.New("invalid state")

	// ErrUnauthorized: bad share-link password
	ErrUnauthorized = errors.New("unauthorized")
)
