// Package common contains shared constants and sentinel errors used across
// Anonify client components.
package common

const (
	// AuthorizationHeaderName is the HTTP header carrying the bearer credential.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header value.
	BearerPrefix = "Bearer "

	// AccessTokenSlot is the metadata key under which the session credential
	// is persisted locally.
	AccessTokenSlot = "access_token"

	// UsernameSlot remembers the last user that logged in on this machine.
	UsernameSlot = "username"
)
