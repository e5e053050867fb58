package domain

import (
	"errors"
	"fmt"
)

// Authentication outcomes surfaced to callers as distinct signals.
var (
	ErrAccountLocked        = errors.New("account is temporarily locked due to multiple failed attempts")
	ErrAccountDeactivated   = errors.New("account is deactivated")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrMissingCredentials   = errors.New("username and password are required")
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionCorrupt  = errors.New("session state is corrupt")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access forbidden")
)

// FailureStatus describes the lockout bookkeeping after a failed attempt.
type FailureStatus struct {
	Attempts  int
	Remaining int
	Locked    bool
}

// InvalidCredentialsError is the "no match" outcome. It is identical for an
// unknown username and a wrong password.
type InvalidCredentialsError struct {
	Status FailureStatus
}

func (e *InvalidCredentialsError) Error() string {
	if e.Status.Locked {
		return fmt.Sprintf("%s: account locked", ErrInvalidCredentials)
	}
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCredentials, e.Status.Remaining)
}

func (e *InvalidCredentialsError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
