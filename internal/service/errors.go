package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("scheduling conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrTransient          = errors.New("temporary failure, retry")
)

// ValidationError carries the field that failed. Unwraps to ErrValidation so
// handlers can map the whole family at once.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError names the appointments that collide with a proposed
// interval.
type ConflictError struct {
	ConflictingIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot conflicts with appointment(s): %s", strings.Join(e.ConflictingIDs, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// InvalidTransitionError reports a status change the state machine rejects.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition appointment from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
