package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrSlotTaken is returned when the (car, date) unique index rejects a write.
	ErrSlotTaken = errors.New("car is already booked on this date")

	ErrLockHeld = errors.New("booking lock is held by another request")
)
