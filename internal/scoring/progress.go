package scoring

import (
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

// Progress counts answered questions among those currently visible.
type Progress struct {
	AnsweredCount int     `json:"answered_count"`
	TotalCount    int     `json:"total_count"`
	Percentage    float64 `json:"percentage"`
	IsComplete    bool    `json:"is_complete"`
}

func newProgress(answered, total int) Progress {
	return Progress{
		AnsweredCount: answered,
		TotalCount:    total,
		Percentage:    ratioPercent(float64(answered), float64(total)),
		IsComplete:    total > 0 && answered == total,
	}
}

// ProgressOf recomputes progress for a set of categories from scratch.
func ProgressOf(categories []*models.Category, answers models.Answers) Progress {
	var answered, total int
	for _, c := range categories {
		for i := range c.Questions {
			q := &c.Questions[i]
			if !IsVisible(q, answers) {
				continue
			}
			total++
			if !answers[q.ID].IsEmpty() {
				answered++
			}
		}
	}
	return newProgress(answered, total)
}

// DeriveState recomputes an instance's lifecycle state. DISCARDED and ARCHIVED
// are kept as stored; every other state follows from the current answers, so
// a COMPLETE instance returns to IN_PROGRESS when new questions appear.
func DeriveState(stored models.LifecycleState, answers models.Answers, p Progress) models.LifecycleState {
	switch stored {
	case models.StateDiscarded, models.StateArchived:
		return stored
	}
	if !hasAnswers(answers) {
		return models.StateNotStarted
	}
	if p.IsComplete {
		return models.StateComplete
	}
	return models.StateInProgress
}

func hasAnswers(answers models.Answers) bool {
	for _, v := range answers {
		if !v.IsEmpty() {
			return true
		}
	}
	return false
}
