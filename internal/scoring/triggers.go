package scoring

import (
	"sort"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

type TriggerMode string

const (
	TriggerThreshold  TriggerMode = "threshold"
	TriggerExactMatch TriggerMode = "exact_match"
)

type TriggerHit struct {
	QuestionID string           `json:"question_id"`
	Mode       TriggerMode      `json:"mode"`
	RiskLevel  models.RiskLevel `json:"risk_level"`
	Weight     float64          `json:"weight"`
}

type DiseaseRisk struct {
	DiseaseID    string           `json:"disease_id"`
	Name         string           `json:"name"`
	RiskLevel    models.RiskLevel `json:"risk_level"`
	TotalWeight  float64          `json:"total_weight"`
	TriggerCount int              `json:"trigger_count"`
	Mortality    string           `json:"mortality,omitempty"`
	Zoonotic     bool             `json:"zoonotic"`
	Triggers     []TriggerHit     `json:"triggers"`
}

type Recommendation struct {
	QuestionID       string           `json:"question_id"`
	CategoryID       string           `json:"category_id"`
	CategoryName     string           `json:"category_name"`
	QuestionText     string           `json:"question_text"`
	RiskDescription  string           `json:"risk_description"`
	Actions          []string         `json:"actions"`
	Priority         models.RiskLevel `json:"priority"`
	Score            float64          `json:"score"`
	DiseasesAffected []string         `json:"diseases_affected"`
}

// IdentifyRisks scans visible, answered questions for threshold hits and
// disease triggers for exact matches. It returns diseases ranked by severity
// then total weight, and one recommendation per threshold-triggered question.
func (e *Engine) IdentifyRisks(answers models.Answers) ([]DiseaseRisk, []Recommendation) {
	byDisease := make(map[string]*DiseaseRisk)
	recommendations := make([]Recommendation, 0)

	hit := func(diseaseID string, h TriggerHit) {
		dr, ok := byDisease[diseaseID]
		if !ok {
			dr = e.newDiseaseRisk(diseaseID)
			byDisease[diseaseID] = dr
		}
		dr.Triggers = append(dr.Triggers, h)
		dr.TriggerCount++
		dr.TotalWeight += h.Weight
		if h.RiskLevel.Severity() > dr.RiskLevel.Severity() {
			dr.RiskLevel = h.RiskLevel
		}
	}

	for ci := range e.survey.Categories {
		c := &e.survey.Categories[ci]
		for qi := range c.Questions {
			q := &c.Questions[qi]
			ra := q.RiskAssessment
			if ra == nil {
				continue
			}
			answer := answers[q.ID]
			if answer.IsEmpty() || !IsVisible(q, answers) {
				continue
			}
			score := ScoreQuestion(q, answer)
			if score >= ra.Threshold() {
				continue
			}
			for _, id := range ra.DiseasesAffected {
				hit(id, TriggerHit{
					QuestionID: q.ID,
					Mode:       TriggerThreshold,
					RiskLevel:  ra.Priority,
					Weight:     ra.TriggerWeight(),
				})
			}
			recommendations = append(recommendations, Recommendation{
				QuestionID:       q.ID,
				CategoryID:       c.ID,
				CategoryName:     c.Name.Get(e.lang),
				QuestionText:     q.Text.Get(e.lang),
				RiskDescription:  ra.RiskDescription.Get(e.lang),
				Actions:          SplitActions(ra.Recommendation.Get(e.lang)),
				Priority:         ra.Priority,
				Score:            score,
				DiseasesAffected: append([]string(nil), ra.DiseasesAffected...),
			})
		}
	}

	for di := range e.survey.Diseases {
		d := &e.survey.Diseases[di]
		for _, t := range d.Triggers {
			if !e.triggerMatches(t, answers) {
				continue
			}
			hit(d.ID, TriggerHit{
				QuestionID: t.QuestionID,
				Mode:       TriggerExactMatch,
				RiskLevel:  t.RiskLevel,
				Weight:     t.Weight,
			})
		}
	}

	risks := make([]DiseaseRisk, 0, len(byDisease))
	for _, dr := range byDisease {
		risks = append(risks, *dr)
	}
	sort.Slice(risks, func(a, b int) bool {
		sa, sb := risks[a].RiskLevel.Severity(), risks[b].RiskLevel.Severity()
		if sa != sb {
			return sa > sb
		}
		if risks[a].TotalWeight != risks[b].TotalWeight {
			return risks[a].TotalWeight > risks[b].TotalWeight
		}
		return risks[a].DiseaseID < risks[b].DiseaseID
	})

	sort.SliceStable(recommendations, func(a, b int) bool {
		pa, pb := recommendations[a].Priority.Severity(), recommendations[b].Priority.Severity()
		if pa != pb {
			return pa > pb
		}
		return recommendations[a].Score < recommendations[b].Score
	})

	return risks, recommendations
}

// triggerMatches fires when the question is visible and its raw answer equals
// the trigger value; list answers match when they include it.
func (e *Engine) triggerMatches(t models.DiseaseTrigger, answers models.Answers) bool {
	answer, ok := answers[t.QuestionID]
	if !ok || answer.IsEmpty() {
		return false
	}
	if q, _ := e.survey.Question(t.QuestionID); q != nil && !IsVisible(q, answers) {
		return false
	}
	if answer.Equal(t.TriggerValue) {
		return true
	}
	return answer.Kind() == models.AnswerList && answer.Contains(t.TriggerValue)
}

func (e *Engine) newDiseaseRisk(id string) *DiseaseRisk {
	dr := &DiseaseRisk{DiseaseID: id, Name: id}
	if d := e.survey.Disease(id); d != nil {
		if name := d.Name.Get(e.lang); name != "" {
			dr.Name = name
		}
		dr.Mortality = d.Mortality
		dr.Zoonotic = d.Zoonotic
	}
	return dr
}

// SplitActions breaks recommendation text into action lines, dropping bullet
// markers and blank lines.
func SplitActions(text string) []string {
	var actions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•*· ")
		line = strings.TrimSpace(line)
		if line != "" {
			actions = append(actions, line)
		}
	}
	return actions
}
