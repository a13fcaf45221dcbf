package scoring

import (
	"math"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

// ScoreQuestion maps a raw answer to a score clamped to [0, q.Max()].
// Unanswered and unparseable answers score 0.
func ScoreQuestion(q *models.Question, answer models.AnswerValue) float64 {
	if answer.IsEmpty() {
		return 0
	}

	max := q.Max()
	var score float64

	switch q.AnswerType {
	case models.SingleChoice:
		if opt, ok := q.Option(answer.String()); ok {
			score = opt.Score
		}
	case models.MultipleChoice:
		score = scoreMultipleChoice(q, answer)
	case models.NumberInput:
		if v, ok := answer.Float(); ok {
			score = v
		}
	case models.NumericRange:
		if v, ok := answer.Float(); ok {
			for _, band := range q.Ranges {
				if band.Contains(v) {
					score = band.Score
					break
				}
			}
		}
	}

	return clamp(score, 0, max)
}

func scoreMultipleChoice(q *models.Question, answer models.AnswerValue) float64 {
	var sum float64
	matched := 0
	for _, id := range answer.Strings() {
		if opt, ok := q.Option(id); ok {
			sum += opt.Score
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	if q.ScoreCalculation == models.ScoreSumWithMax {
		return sum
	}
	return sum / float64(matched)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ratioPercent is round1(100*num/den), or 0 when den is not positive.
func ratioPercent(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return round1(100 * num / den)
}
