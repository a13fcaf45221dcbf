package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of assessment events
type EventType string

const (
	// Instance lifecycle events
	EventInstanceStarted   EventType = "instance.started"
	EventInstanceCompleted EventType = "instance.completed"
	EventInstanceReopened  EventType = "instance.reopened"
	EventInstanceArchived  EventType = "instance.archived"
	EventInstanceDiscarded EventType = "instance.discarded"

	// Scoring events
	EventRisksDetected EventType = "risks.detected"
)

const (
	EventSource  = "biosecurity-service"
	EventVersion = "1.0"
)

// AssessmentEvent is the envelope shared by every event on the topic.
type AssessmentEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewAssessmentEvent wraps data in an envelope with a fresh id.
func NewAssessmentEvent(eventType EventType, data interface{}) *AssessmentEvent {
	return &AssessmentEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
	}
}

// Event payloads

type InstanceLifecycleEvent struct {
	SurveyID      string  `json:"survey_id"`
	InstanceID    string  `json:"instance_id"`
	State         string  `json:"state"`
	PreviousState string  `json:"previous_state,omitempty"`
	AssessorName  string  `json:"assessor_name,omitempty"`
	OverallScore  float64 `json:"overall_score"`
}

type RiskSummary struct {
	DiseaseID    string  `json:"disease_id"`
	RiskLevel    string  `json:"risk_level"`
	TotalWeight  float64 `json:"total_weight"`
	TriggerCount int     `json:"trigger_count"`
}

type RisksDetectedEvent struct {
	SurveyID   string        `json:"survey_id"`
	InstanceID string        `json:"instance_id"`
	Risks      []RiskSummary `json:"risks"`
}
