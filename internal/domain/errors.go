package domain

import "errors"

var (
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrSlotUnavailable means the requested slot is not offered or already known to be taken.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotConflict means the slot passed validation but another booking committed first.
	ErrSlotConflict = errors.New("slot conflict")

	ErrInvalidState = errors.New("invalid booking state")
)
