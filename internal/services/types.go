package services

import (
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
)

// ===== REQUESTS =====

type StartInstanceRequest struct {
	AssessorName string `json:"assessor_name" validate:"max=120"`
}

// AnswerRequest carries a raw answer; an empty value clears the question.
type AnswerRequest struct {
	Value models.AnswerValue `json:"value"`
}

type NavigateRequest struct {
	CategoryID    string `json:"category_id" validate:"required"`
	QuestionIndex int    `json:"question_index" validate:"min=0"`
}

// ListInstancesRequest pages through a survey's instances, newest first.
type ListInstancesRequest struct {
	UpdatedAfter *time.Time `form:"updated_after" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit        int        `form:"limit" validate:"min=0,max=500"`
	Offset       int        `form:"offset" validate:"min=0"`
}

// ===== RESPONSES =====

type SurveySummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Version       string   `json:"version,omitempty"`
	CategoryCount int      `json:"category_count"`
	QuestionCount int      `json:"question_count"`
	Diseases      []string `json:"diseases"`
}

type InstanceResponse struct {
	Instance         *models.AssessmentInstance `json:"instance"`
	Progress         scoring.Progress           `json:"progress"`
	VisibleQuestions []string                   `json:"visible_questions"`
}

type InstanceSummary struct {
	ID           string                `json:"id"`
	State        models.LifecycleState `json:"state"`
	AssessorName string                `json:"assessor_name,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Progress     scoring.Progress      `json:"progress"`
}
