// Package common defines shared sentinel errors used across the service and
// repository layers of equiptrack. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound            = errors.New("not found")
	ErrorDuplicateKey        = errors.New("duplicate key")
	ErrorConstraintViolation = errors.New("constraint violation")
	ErrorMissingField        = errors.New("missing field")

	// Service-level errors.
	ErrorValidation       = errors.New("validation error")
	ErrorStoreUnavailable = errors.New("store unavailable")

	// Image pipeline errors (per-image, never fatal to the request).
	ErrorInvalidImageFormat = errors.New("invalid image format")
	ErrorUploadConflict     = errors.New("upload conflict")
)
