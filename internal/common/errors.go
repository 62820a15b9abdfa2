// Package common defines shared sentinel errors used across the service
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Client errors: caused by the request, surfaced with a 4xx status.
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("too many requests")
	ErrAlreadyUploading = errors.New("an upload is already in progress for this client")
	ErrStorageExhausted = errors.New("storage quota exhausted")
	ErrTooManyUploads   = errors.New("upload limit for this client reached")

	// Configuration errors: operator faults, surfaced as server errors and
	// never downgraded to "not found".
	ErrProxyMisconfigured = errors.New("reverse-proxy configuration mismatch")

	// Transient errors: the database or blob storage is unavailable for this
	// request; retrying later may succeed.
	ErrUnavailable = errors.New("storage temporarily unavailable")
)
