// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Pipeline input errors.
	ErrMissingData      = errors.New("missing data")
	ErrShapeMismatch    = errors.New("feature shape mismatch")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidArgument  = errors.New("invalid argument")

	// Model lifecycle errors.
	ErrNotFitted = errors.New("model not fitted")

	// Lookup errors.
	ErrProductNotFound = errors.New("product not found")
	ErrUnknownSegment  = errors.New("unknown segment")

	// Database errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
