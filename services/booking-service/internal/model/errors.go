package model

import "errors"

var (
	// ErrNotFound covers absent appointments, slots and bookings.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable means capacity was insufficient at validation or
	// at atomic decrement time. The caller re-fetches slots and retries.
	ErrSlotUnavailable = errors.New("slot no longer available")

	// ErrValidation rejects malformed input before any store mutation.
	ErrValidation = errors.New("validation failed")

	// ErrStatusConflict rejects a lifecycle transition from the wrong state.
	ErrStatusConflict = errors.New("booking status conflict")
)
