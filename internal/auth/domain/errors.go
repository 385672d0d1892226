package domain

import "errors"

// Error kinds shared by every layer. Specific errors wrap one of these so the
// HTTP boundary can map them to a status with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)
