package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	ErrDuplicateEmail = errors.New("email already registered")

	ErrVerificationNotFound = errors.New("verification not found")

	// ErrResetTokenMismatch covers an unknown, replaced or expired reset token.
	ErrResetTokenMismatch = errors.New("reset token does not match or has expired")
)
