package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/biosecurity-service/internal/errors"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
)

var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrQuestionNotFound = errors.New("question not found")

	ErrInstanceNotFound = errors.New("assessment instance not found")
	ErrInvalidAnswer    = errors.New("answer does not fit the question")
	ErrInvalidPosition  = errors.New("navigation position is outside the survey")
	ErrPersistence      = errors.New("assessment state could not be saved")
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSurveyNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrInstanceNotFound)
}

// IsValidation checks if error represents a rejected request
func IsValidation(err error) bool {
	if errors.Is(err, ErrInvalidAnswer) || errors.Is(err, ErrInvalidPosition) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConfiguration reports survey configuration problems detected at engine build.
func IsConfiguration(err error) bool {
	return errors.Is(err, scoring.ErrMissingWeight) || errors.Is(err, scoring.ErrNilSurvey)
}
