package domain

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidRole      = errors.New("invalid role")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAccessRestricted = errors.New("access restricted")
	ErrAuthRejected     = errors.New("authentication rejected")
	ErrKeyNotFound      = errors.New("key not found")
)

// AuthError carries the user-facing message of a rejected login or
// verification. It matches ErrAuthRejected with errors.Is.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuthRejected
}

// InputError carries the user-facing message of a rejected form.
// It matches ErrInvalidInput with errors.Is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}
