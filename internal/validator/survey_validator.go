package validator

import (
	"fmt"

	"github.com/SAP-F-2025/biosecurity-service/internal/errors"
	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/scoring"
)

// SurveyValidator checks cross-references that struct tags cannot express.
type SurveyValidator struct{}

// NewSurveyValidator creates a new survey validator
func NewSurveyValidator() *SurveyValidator {
	return &SurveyValidator{}
}

// Validate returns hard errors (duplicate ids, missing options or bands,
// dangling category references) and warnings for conditional rules that can
// never be satisfied as written.
func (v *SurveyValidator) Validate(survey *models.Survey) (ValidationErrors, []string) {
	var errs ValidationErrors
	var warnings []string

	order := make(map[string]int)
	categories := make(map[string]bool)
	for ci, c := range survey.Categories {
		if categories[c.ID] {
			errs = append(errs, *errors.NewValidationErrorWithRule(
				fmt.Sprintf("categories[%d].id", ci), "is duplicated", "unique", c.ID))
		}
		categories[c.ID] = true

		for qi, q := range c.Questions {
			field := fmt.Sprintf("categories[%d].questions[%d]", ci, qi)
			if _, dup := order[q.ID]; dup {
				errs = append(errs, *errors.NewValidationErrorWithRule(field+".id", "is duplicated", "unique", q.ID))
				continue
			}
			order[q.ID] = len(order)
			errs = append(errs, v.validateQuestion(field, &q)...)
		}
	}

	for ci, c := range survey.Categories {
		for _, q := range c.Questions {
			cond := q.ShowIf()
			if cond == nil {
				continue
			}
			pos, known := order[cond.QuestionID]
			switch {
			case !known:
				warnings = append(warnings, fmt.Sprintf(
					"question %q depends on unknown question %q and will never be visible", q.ID, cond.QuestionID))
			case cond.QuestionID == q.ID:
				warnings = append(warnings, fmt.Sprintf("question %q depends on itself and will never be visible", q.ID))
			case pos > order[q.ID]:
				warnings = append(warnings, fmt.Sprintf(
					"question %q depends on later question %q (category %q)", q.ID, cond.QuestionID, survey.Categories[ci].ID))
			}
			if !scoring.IsKnownOperator(cond.Operator) {
				warnings = append(warnings, fmt.Sprintf(
					"question %q uses unknown operator %q and will always be visible once answered", q.ID, cond.Operator))
			}
		}
	}

	if survey.Hierarchy != nil {
		referenced := make(map[string]int)
		errs = append(errs, v.validateNode("hierarchy", survey.Hierarchy, categories, referenced)...)
		for _, c := range survey.Categories {
			switch n := referenced[c.ID]; {
			case n == 0:
				errs = append(errs, *errors.NewValidationErrorWithRule(
					"hierarchy", fmt.Sprintf("does not reference category %q", c.ID), "coverage", c.ID))
			case n > 1:
				errs = append(errs, *errors.NewValidationErrorWithRule(
					"hierarchy", fmt.Sprintf("references category %q %d times", c.ID, n), "coverage", c.ID))
			}
		}
	}

	for di, d := range survey.Diseases {
		for ti, t := range d.Triggers {
			if _, ok := order[t.QuestionID]; !ok {
				warnings = append(warnings, fmt.Sprintf(
					"diseases[%d].triggers[%d] references unknown question %q", di, ti, t.QuestionID))
			}
		}
	}

	return errs, warnings
}

func (v *SurveyValidator) validateQuestion(field string, q *models.Question) ValidationErrors {
	var errs ValidationErrors
	switch q.AnswerType {
	case models.SingleChoice, models.MultipleChoice:
		if len(q.Options) == 0 {
			errs = append(errs, *errors.NewValidationErrorWithRule(field+".options", "is required for choice questions", "required", nil))
		}
		seen := make(map[string]bool)
		for _, o := range q.Options {
			if seen[o.ID] {
				errs = append(errs, *errors.NewValidationErrorWithRule(field+".options", "has duplicate option id", "unique", o.ID))
			}
			seen[o.ID] = true
		}
	case models.NumericRange:
		if len(q.Ranges) == 0 {
			errs = append(errs, *errors.NewValidationErrorWithRule(field+".ranges", "is required for numeric_range questions", "required", nil))
		}
	}
	if q.MaxScore != nil && *q.MaxScore > models.DefaultMaxScore {
		errs = append(errs, *errors.NewValidationErrorWithRule(
			field+".max_score", fmt.Sprintf("must not exceed %g", models.DefaultMaxScore), "max", *q.MaxScore))
	}
	if q.ScoreCalculation != "" && q.AnswerType != models.MultipleChoice {
		errs = append(errs, *errors.NewValidationErrorWithRule(
			field+".score_calculation", "only applies to multiple_choice questions", "answer_type", q.ScoreCalculation))
	}
	return errs
}

func (v *SurveyValidator) validateNode(field string, node *models.HierarchyNode, categories map[string]bool, referenced map[string]int) ValidationErrors {
	var errs ValidationErrors
	if len(node.Children) == 0 && len(node.CategoryIDs) == 0 {
		errs = append(errs, *errors.NewValidationErrorWithRule(field, fmt.Sprintf("node %q has no children", node.ID), "required", node.ID))
	}
	for _, id := range node.CategoryIDs {
		if !categories[id] {
			errs = append(errs, *errors.NewValidationErrorWithRule(
				field+".category_ids", fmt.Sprintf("unknown category %q", id), "exists", id))
			continue
		}
		referenced[id]++
	}
	for i := range node.Children {
		errs = append(errs, v.validateNode(fmt.Sprintf("%s.children[%d]", field, i), &node.Children[i], categories, referenced)...)
	}
	return errs
}
