package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/errors"
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Use shared validation errors from errors package
type ValidationError = errors.ValidationError
type ValidationErrors = errors.ValidationErrors

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator *validator.Validate
	surveyValidator *SurveyValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		surveyValidator: NewSurveyValidator(),
	}
}

// ValidateStruct validates struct tags only and translates failures.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := errors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Validate is an alias of ValidateStruct used for request payloads.
func (v *Validator) Validate(s interface{}) error {
	return v.ValidateStruct(s)
}

// ValidateSurvey runs tag validation and then the structural survey rules.
// Warnings describe suspicious but scoreable configuration.
func (v *Validator) ValidateSurvey(survey *models.Survey) (warnings []string, err error) {
	if err := v.ValidateStruct(survey); err != nil {
		return nil, err
	}
	errs, warnings := v.surveyValidator.Validate(survey)
	if len(errs) > 0 {
		return warnings, errs
	}
	return warnings, nil
}

// Survey returns the survey validator
func (v *Validator) Survey() *SurveyValidator {
	return v.surveyValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("answer_type", validateAnswerType)
	validate.RegisterValidation("risk_level", validateRiskLevel)
	validate.RegisterValidation("lifecycle_state", validateLifecycleState)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateAnswerType(fl validator.FieldLevel) bool {
	validTypes := []models.AnswerType{
		models.SingleChoice,
		models.MultipleChoice,
		models.NumberInput,
		models.NumericRange,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateRiskLevel(fl validator.FieldLevel) bool {
	return models.RiskLevel(fl.Field().String()).Severity() > 0
}

func validateLifecycleState(fl validator.FieldLevel) bool {
	validStates := []models.LifecycleState{
		models.StateNotStarted,
		models.StateInProgress,
		models.StateComplete,
		models.StateDiscarded,
		models.StateArchived,
	}

	value := fl.Field().String()
	for _, validState := range validStates {
		if string(validState) == value {
			return true
		}
	}
	return false
}
