package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Verification errors. These are expected, user-facing outcomes and are
	// replied to the user directly, never logged as errors.
	ErrAlreadyVerified = errors.New("player is already verified")
	ErrAlreadyPending  = errors.New("verification already pending")
	ErrNoSuchCode      = errors.New("no pending verification with that code")
	ErrNotVerified     = errors.New("player is not verified")

	// Store errors
	ErrLinkNotFound = errors.New("identity link not found")

	// Roster errors
	ErrPlayerNotFound = errors.New("player not found")
)

// PendingError reports that a verification was already initiated. It wraps
// ErrAlreadyPending and carries the code that was issued at the time, so the
// caller can repeat it to the user instead of minting a new one.
type PendingError struct {
	Code string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("verification already pending with code %s", e.Code)
}

func (e *PendingError) Unwrap() error {
	return ErrAlreadyPending
}
