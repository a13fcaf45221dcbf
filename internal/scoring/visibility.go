package scoring

import (
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

// IsVisible decides whether a question currently applies. A question without
// a rule is always visible. A rule whose prerequisite is unanswered hides the
// question; an operator this package does not know shows it.
func IsVisible(q *models.Question, answers models.Answers) bool {
	return EvaluateCondition(q.ShowIf(), answers)
}

// EvaluateCondition evaluates a single show_if expression against answers.
func EvaluateCondition(cond *models.Condition, answers models.Answers) bool {
	if cond == nil {
		return true
	}
	answer, ok := answers[cond.QuestionID]
	if !ok || answer.IsEmpty() {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return answer.Equal(cond.Value)
	case models.OpNotEquals:
		return !answer.Equal(cond.Value)
	case models.OpContains:
		return answer.Contains(cond.Value)
	case models.OpNotContains:
		return !answer.Contains(cond.Value)
	case models.OpGreaterThan:
		return compareNumeric(answer, cond.Value, func(a, b float64) bool { return a > b })
	case models.OpLessThan:
		return compareNumeric(answer, cond.Value, func(a, b float64) bool { return a < b })
	case models.OpGreaterThanOrEqual:
		return compareNumeric(answer, cond.Value, func(a, b float64) bool { return a >= b })
	case models.OpLessThanOrEqual:
		return compareNumeric(answer, cond.Value, func(a, b float64) bool { return a <= b })
	default:
		return true
	}
}

// compareNumeric is false when either side does not coerce to a number.
func compareNumeric(answer, operand models.AnswerValue, cmp func(a, b float64) bool) bool {
	a, ok := answer.Float()
	if !ok {
		return false
	}
	b, ok := operand.Float()
	if !ok {
		return false
	}
	return cmp(a, b)
}

// IsKnownOperator reports whether op has defined semantics.
func IsKnownOperator(op models.Operator) bool {
	for _, known := range models.KnownOperators {
		if op == known {
			return true
		}
	}
	return false
}
