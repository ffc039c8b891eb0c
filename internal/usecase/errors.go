package usecase

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrDelivery           = errors.New("email delivery failed")
)

// ValidationError carries per-field messages for the 400 response body.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidation, e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// UnverifiedAccountError is returned by Login when the credentials are right
// but the email was never verified. A fresh code has already been sent.
type UnverifiedAccountError struct {
	UserID uuid.UUID
}

func (e *UnverifiedAccountError) Error() string {
	return fmt.Sprintf("account %s is not verified", e.UserID)
}
