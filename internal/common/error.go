// Package common defines shared constants and sentinel errors used across
// client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrAlreadyRevoked = errors.New("already revoked")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")

	// Token errors surfaced to callers of the rotation protocol.
	ErrMalformed = errors.New("malformed token")
	ErrExpired   = errors.New("token expired")

	// Login errors.
	ErrInvalidCredentials = errors.New("invalid login credentials")
)

// Category returns the short machine-readable code for a sentinel error.
// Wrapped errors are matched with errors.Is; anything unknown is "internal".
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrorNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "conflict"
	default:
		return "internal"
	}
}
