package services

import (
	"errors"
	"fmt"

	apperrors "github.com/mvocoding/testmateai/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Mock test errors
	ErrTestNotFound      = errors.New("mock test not found")
	ErrSessionNotFound   = errors.New("test session not found")
	ErrSessionExists     = errors.New("an active test session already exists")
	ErrNoQuestionsLoaded = errors.New("cannot start: no questions loaded for this section")
	ErrInvalidTransition = errors.New("operation not allowed in current session state")
	ErrAlreadySubmitted  = errors.New("test already submitted")

	// Practice errors
	ErrUnknownSkill = errors.New("unknown skill")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a single-field validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// StateError reports an invalid session state transition with context.
type StateError struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Operation string `json:"operation"`
}

func (se *StateError) Error() string {
	return fmt.Sprintf("cannot %s while session %s is in state %s", se.Operation, se.SessionID, se.State)
}

func (se *StateError) Unwrap() error {
	return ErrInvalidTransition
}
