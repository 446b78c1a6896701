package errors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

func (pe *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", pe.Field, pe.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewValidationErrorWithRule creates a new validation error with rule
func NewValidationErrorWithRule(field, message, rule string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    rule,
	}
}

// ToValidationErrors converts validator.ValidationErrors to our custom type
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if validatorErr, ok := err.(validator.ValidationErrors); ok {
		for _, err := range validatorErr {
			errors = append(errors, ValidationError{
				Field:   err.Field(),
				Message: getErrorMessage(err),
				Value:   err.Value(),
				Rule:    err.Tag(),
			})
		}
	}

	return errors
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", err.Param())
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "numeric":
		return "must be a number"
	case "alpha":
		return "must contain only letters"
	case "alphanum":
		return "must contain only letters and numbers"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())

	// Custom validators
	case "question_type":
		return "must be a valid question type (multiple_choice, true_false, fill_blank, essay, speaking_prompt)"
	case "skill":
		return "must be a valid skill (listening, reading, writing, speaking)"
	case "band":
		return "must be between 0.0 and 9.0 in 0.5 steps"

	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
