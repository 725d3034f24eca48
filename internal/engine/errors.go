package engine

import "errors"

// Sentinel errors for the engine's public operations. Callers match
// them with errors.Is; the engine wraps them with call-site context.
var (
	// ErrInvalidInput marks caller mistakes: an empty or unparseable
	// URL, a non-positive limit. Not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrOpen marks a failure to open the store: bad path, failed key
	// verification, or a database that won't migrate.
	ErrOpen = errors.New("open failed")

	// ErrStorageUnavailable marks an underlying store failure during an
	// operation. The caller may retry with backoff; the engine does not
	// retry internally.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrClosedHandle marks an operation on a closed engine. This is a
	// programming error and is surfaced immediately.
	ErrClosedHandle = errors.New("handle is closed")
)
