package core

import "errors"

// Error taxonomy for the correlation core. Inbound operations return these
// as wrapped sentinel values rather than panicking across the API boundary.
var (
	// ErrInvalidInput marks malformed or empty request data, rejected
	// before any store mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a lookup miss by id.
	ErrNotFound = errors.New("not found")

	// ErrExternalCollaborator marks a classifier, geolocation, or email
	// failure. The core proceeds with degraded data where possible.
	ErrExternalCollaborator = errors.New("external collaborator failure")

	// ErrInternalInconsistency marks an invariant violation such as a
	// stats counter going negative. Should never occur in practice.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
