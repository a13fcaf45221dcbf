package scoring

import (
	"math"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

// pointsPerQuestion is the denominator contribution of each visible question.
const pointsPerQuestion = 10.0

type QuestionScore struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	Answered   bool    `json:"answered"`
}

type CategoryScore struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Weight        float64         `json:"weight"`
	RawScore      float64         `json:"raw_score"`
	MaxScore      float64         `json:"max_score"`
	Percentage    float64         `json:"percentage"`
	AnsweredCount int             `json:"answered_count"`
	TotalCount    int             `json:"total_count"`
	Questions     []QuestionScore `json:"questions"`
}

// Progress returns the category's progress counters.
func (c CategoryScore) Progress() Progress {
	return newProgress(c.AnsweredCount, c.TotalCount)
}

type NodeScore struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Weight     float64         `json:"weight"`
	Percentage float64         `json:"percentage"`
	Progress   Progress        `json:"progress"`
	Children   []NodeScore     `json:"children,omitempty"`
	Categories []CategoryScore `json:"categories,omitempty"`
}

// WeightedValue is one child's contribution to a weighted mean.
type WeightedValue struct {
	Value  float64
	Weight float64
}

// WeightedMean is Σ(value×weight)/Σ(weight), or 0 when the weights sum to 0.
// Every non-leaf level of the hierarchy uses it.
func WeightedMean(values []WeightedValue) float64 {
	var sum, total float64
	for _, v := range values {
		sum += v.Value * v.Weight
		total += v.Weight
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

// ScoreCategory rolls up the visible questions of c. Unanswered visible
// questions add to MaxScore but not to AnsweredCount.
func ScoreCategory(c *models.Category, answers models.Answers, lang string) CategoryScore {
	out := CategoryScore{
		ID:   c.ID,
		Name: c.Name.Get(lang),
	}
	if c.Weight != nil {
		out.Weight = *c.Weight
	}

	for i := range c.Questions {
		q := &c.Questions[i]
		if !IsVisible(q, answers) {
			continue
		}
		answer := answers[q.ID]
		qs := QuestionScore{
			QuestionID: q.ID,
			Score:      math.Min(ScoreQuestion(q, answer), pointsPerQuestion),
			Answered:   !answer.IsEmpty(),
		}
		out.TotalCount++
		if qs.Answered {
			out.AnsweredCount++
		}
		out.RawScore += qs.Score
		out.Questions = append(out.Questions, qs)
	}

	out.MaxScore = pointsPerQuestion * float64(out.TotalCount)
	out.Percentage = ratioPercent(out.RawScore, out.MaxScore)
	return out
}

// aggregateNode scores a hierarchy node bottom-up. Weights come from the
// resolved weight table; categories missing from the survey are skipped.
func (e *Engine) aggregateNode(node *models.HierarchyNode, answers models.Answers, byCategory map[string]CategoryScore) NodeScore {
	out := NodeScore{
		ID:     node.ID,
		Name:   node.Name.Get(e.lang),
		Weight: e.weights[nodeKey(node.ID)],
	}

	parts := make([]WeightedValue, 0, len(node.Children)+len(node.CategoryIDs))
	var answered, total int

	for i := range node.Children {
		child := e.aggregateNode(&node.Children[i], answers, byCategory)
		out.Children = append(out.Children, child)
		parts = append(parts, WeightedValue{Value: child.Percentage, Weight: child.Weight})
		answered += child.Progress.AnsweredCount
		total += child.Progress.TotalCount
	}

	for _, id := range node.CategoryIDs {
		cs, ok := byCategory[id]
		if !ok {
			continue
		}
		cs.Weight = e.weights[categoryKey(id)]
		out.Categories = append(out.Categories, cs)
		parts = append(parts, WeightedValue{Value: cs.Percentage, Weight: cs.Weight})
		answered += cs.AnsweredCount
		total += cs.TotalCount
	}

	out.Percentage = WeightedMean(parts)
	out.Progress = newProgress(answered, total)
	return out
}
