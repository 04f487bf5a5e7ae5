package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition indicates the requested status is not reachable from the current one
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConflict indicates the stored state changed since it was read
	ErrConflict = errors.New("conflict")

	// ErrTaskLocked indicates the task is under review and closed to assignee edits
	ErrTaskLocked = fmt.Errorf("%w: task is locked for review", ErrForbidden)

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PolicyError is a rejection produced by the authorization or lifecycle policy.
// Kind is one of ErrForbidden, ErrTaskLocked or ErrInvalidTransition.
type PolicyError struct {
	Kind   error
	Reason string
}

func (e *PolicyError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *PolicyError) Unwrap() error {
	return e.Kind
}

// Deny builds a PolicyError of kind ErrForbidden
func Deny(format string, args ...any) error {
	return &PolicyError{Kind: ErrForbidden, Reason: fmt.Sprintf(format, args...)}
}

// Reject builds a PolicyError of kind ErrInvalidTransition
func Reject(format string, args ...any) error {
	return &PolicyError{Kind: ErrInvalidTransition, Reason: fmt.Sprintf(format, args...)}
}

// IsDenial reports whether err is an authorization denial (including review locks)
func IsDenial(err error) bool {
	return errors.Is(err, ErrForbidden)
}
