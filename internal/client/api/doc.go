// Package api is the typed HTTP/JSON client for the Anonify backend.
//
// # Overview
//
// Client is the transport-agnostic contract used by the directory, timeline,
// redaction and auth layers. HTTPClient implements it over net/http; the
// bearer credential is attached by the session.Guard installed as the
// client's transport, not by this package.
//
// # Error Handling
//
// Non-2xx responses become *StatusError, which unwraps to the matching
// sentinel from internal/common:
//
//	401           -> common.ErrUnauthorized
//	403           -> common.ErrForbidden
//	404           -> common.ErrNotFound
//	400, 409, 422 -> common.ErrValidation
//	5xx           -> common.ErrUnavailable
//
// Transport failures wrap common.ErrUnavailable as well, so callers can use
// errors.Is without knowing about HTTP.
package api
