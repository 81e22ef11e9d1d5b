// Package common defines shared constants and sentinel errors used across
// the client layers of Anonify. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// ErrUnauthorized reports a missing, invalid or expired credential.
	// It always results in a session reset and is never absorbed locally.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden reports a request the server refused for the current
	// credential. It does not end the session.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound reports that the referenced chat (or task) no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable reports a transport-level failure or a server-side error.
	ErrUnavailable = errors.New("server unavailable")

	// ErrValidation reports input rejected before any network call.
	ErrValidation = errors.New("validation error")
)
