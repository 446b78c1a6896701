package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError("skill", "must be a valid skill", "running")

	assert.Equal(t, "skill", err.Field)
	assert.Equal(t, "running", err.Value)
	assert.Equal(t, "validation error on field 'skill': must be a valid skill", err.Error())
}

func TestValidationErrors_ErrorMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("band", "must be between 0.0 and 9.0 in 0.5 steps", 9.3))
	assert.Equal(t, "validation failed: band must be between 0.0 and 9.0 in 0.5 steps", errs.Error())

	errs = append(errs, *NewValidationError("score", "must be at most 100", 120))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("question_type", "must be a valid question type", "question_type", "puzzle")

	assert.Equal(t, "question_type", err.Rule)
	assert.Equal(t, "puzzle", err.Value)
}

func TestToValidationErrors(t *testing.T) {
	type payload struct {
		Skill string `validate:"required"`
		Score int    `validate:"max=100"`
	}

	v := validator.New()
	err := v.Struct(payload{Score: 120})
	require.Error(t, err)

	converted := ToValidationErrors(err)
	require.Len(t, converted, 2)

	assert.Equal(t, "Skill", converted[0].Field)
	assert.Equal(t, "is required", converted[0].Message)
	assert.Equal(t, "required", converted[0].Rule)

	assert.Equal(t, "Score", converted[1].Field)
	assert.Equal(t, "must be at most 100", converted[1].Message)
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	converted := ToValidationErrors(assert.AnError)
	assert.Empty(t, converted)
}
