// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Validation errors raised by the analytics engines.
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrMissingField    = errors.New("record missing required field")
	ErrTooManyClusters = errors.New("cluster count exceeds distinct customers")
	ErrInvalidRange    = errors.New("invalid threshold range")
	ErrInvalidPercent  = errors.New("percentile out of range")

	// Session store errors.
	ErrSessionNotFound = errors.New("session not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
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
