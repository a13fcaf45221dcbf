package models

import (
	"time"
)

type LifecycleState string

const (
	StateNotStarted LifecycleState = "NOT_STARTED"
	StateInProgress LifecycleState = "IN_PROGRESS"
	StateComplete   LifecycleState = "COMPLETE"
	StateDiscarded  LifecycleState = "DISCARDED"
	StateArchived   LifecycleState = "ARCHIVED"
)

type NavigationPosition struct {
	CategoryID    string `json:"category_id"`
	QuestionIndex int    `json:"question_index" validate:"min=0"`
}

type InstanceMetadata struct {
	Position     NavigationPosition `json:"position"`
	AssessorName string             `json:"assessor_name,omitempty"`
	State        LifecycleState     `json:"state"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// AssessmentInstance is one saved run of a survey.
type AssessmentInstance struct {
	ID       string           `json:"id"`
	SurveyID string           `json:"survey_id"`
	Answers  Answers          `json:"answers"`
	Metadata InstanceMetadata `json:"metadata"`
}

// Clone returns a deep copy so callers can mutate answers without aliasing.
func (i *AssessmentInstance) Clone() *AssessmentInstance {
	if i == nil {
		return nil
	}
	out := *i
	out.Answers = make(Answers, len(i.Answers))
	for k, v := range i.Answers {
		out.Answers[k] = v
	}
	return &out
}
