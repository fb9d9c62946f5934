// Package common defines shared constants and sentinel errors used across
// the storage, service and transport layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorValidation    = errors.New("validation error")
	ErrMailUnavailable = errors.New("mail unavailable")

	// Auth errors. ErrMalformed and ErrInvalidToken are reported to clients
	// as ErrUnauthenticated.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrMalformed       = errors.New("malformed token")
	ErrInvalidToken    = errors.New("invalid token")
)
