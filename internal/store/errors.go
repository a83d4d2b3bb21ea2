package store

import "errors"

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// ErrPreconditionFailed is returned by conditional writes whose guard no longer holds,
	// e.g. a status compare-and-swap against a booking that changed concurrently.
	ErrPreconditionFailed = errors.New("precondition failed")
)
