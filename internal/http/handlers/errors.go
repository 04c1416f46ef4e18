// Package handlers defines HTTP-layer error codes used across the API.
//
// These symbolic constants give clients a stable, machine-readable error
// taxonomy alongside human-readable messages. Codes are lowercase snake_case;
// generic codes mirror HTTP status semantics, domain codes cover business
// failures a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeSubmitFailed     = "submit_failed"
	ErrCodeLookupFailed     = "lookup_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
