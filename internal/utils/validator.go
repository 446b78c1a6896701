package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mvocoding/testmateai/internal/models"
)

// Validator wraps go-playground/validator with the domain's custom rules.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	registerCustomValidators(validate)
	return &Validator{validate: validate}
}

func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("skill", validateSkill)
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("band", validateBand)

	// Report json field names in error messages.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSkill(fl validator.FieldLevel) bool {
	value := models.Skill(fl.Field().String())
	for _, skill := range models.SectionOrder {
		if skill == value {
			return true
		}
	}
	return false
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.MultipleChoice,
		models.TrueFalse,
		models.FillInBlank,
		models.Essay,
		models.SpeakingPrompt,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

// Bands run 0.0-9.0 in half steps.
func validateBand(fl validator.FieldLevel) bool {
	value := fl.Field().Float()
	if value < 0 || value > 9 {
		return false
	}
	return value == models.RoundBand(value)
}
