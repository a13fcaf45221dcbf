package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
)

var ErrNilSurvey = errors.New("scoring: survey configuration is nil")

// MissingWeightError lists hierarchy children that have no configured weight
// and no caller-supplied combining weight.
type MissingWeightError struct {
	SurveyID string
	IDs      []string
}

func (e *MissingWeightError) Error() string {
	return fmt.Sprintf("scoring: survey %q has no weight for %s; supply combining weights for them",
		e.SurveyID, strings.Join(e.IDs, ", "))
}

// ErrMissingWeight matches any *MissingWeightError via errors.Is.
var ErrMissingWeight = errors.New("scoring: missing combining weight")

func (e *MissingWeightError) Is(target error) bool {
	return target == ErrMissingWeight
}

// Engine evaluates answers against one survey. It holds no answer state and
// is safe to share between instances of the same survey.
type Engine struct {
	survey    *models.Survey
	lang      string
	overrides map[string]float64
	weights   map[string]float64
	root      *models.HierarchyNode
}

type Option func(*Engine)

// WithCombiningWeights supplies weights, keyed by node or category id, for
// children whose configuration omits one. Configured weights take precedence.
func WithCombiningWeights(weights map[string]float64) Option {
	return func(e *Engine) {
		for k, v := range weights {
			e.overrides[k] = v
		}
	}
}

// WithLanguage selects the language used for names and texts in results.
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.lang = lang
		}
	}
}

// New builds an engine. It fails when survey is nil or a weight is missing.
func New(survey *models.Survey, opts ...Option) (*Engine, error) {
	if survey == nil {
		return nil, ErrNilSurvey
	}
	e := &Engine{
		survey:    survey,
		lang:      models.DefaultLanguage,
		overrides: make(map[string]float64),
		weights:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.root = survey.Hierarchy
	if e.root == nil {
		e.root = flatRoot(survey)
	}

	var missing []string
	e.resolveWeights(e.root, &missing)
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingWeightError{SurveyID: survey.ID, IDs: missing}
	}
	return e, nil
}

func (e *Engine) Survey() *models.Survey { return e.survey }

func flatRoot(s *models.Survey) *models.HierarchyNode {
	root := &models.HierarchyNode{ID: s.ID, Name: s.Name}
	for _, c := range s.Categories {
		root.CategoryIDs = append(root.CategoryIDs, c.ID)
	}
	return root
}

func (e *Engine) resolveWeights(node *models.HierarchyNode, missing *[]string) {
	for i := range node.Children {
		child := &node.Children[i]
		e.resolve(nodeKey(child.ID), child.ID, child.Weight, missing)
		e.resolveWeights(child, missing)
	}
	for _, id := range node.CategoryIDs {
		c := e.survey.Category(id)
		if c == nil {
			continue
		}
		e.resolve(categoryKey(id), id, c.Weight, missing)
	}
}

func (e *Engine) resolve(key, id string, configured *float64, missing *[]string) {
	if configured != nil {
		e.weights[key] = *configured
		return
	}
	if w, ok := e.overrides[id]; ok {
		e.weights[key] = w
		return
	}
	*missing = append(*missing, id)
}

// Node and category ids live in separate namespaces.
func nodeKey(id string) string     { return "node:" + id }
func categoryKey(id string) string { return "category:" + id }

// Evaluation is the full result of scoring one answer set.
type Evaluation struct {
	SurveyID        string           `json:"survey_id"`
	Overall         NodeScore        `json:"overall"`
	Categories      []CategoryScore  `json:"categories"`
	Risks           []DiseaseRisk    `json:"risks"`
	Recommendations []Recommendation `json:"recommendations"`
	Progress        Progress         `json:"progress"`
}

// Evaluate scores answers from scratch.
func (e *Engine) Evaluate(answers models.Answers) *Evaluation {
	if answers == nil {
		answers = models.Answers{}
	}

	categories := make([]CategoryScore, 0, len(e.survey.Categories))
	byCategory := make(map[string]CategoryScore, len(e.survey.Categories))
	for i := range e.survey.Categories {
		cs := ScoreCategory(&e.survey.Categories[i], answers, e.lang)
		if w, ok := e.weights[categoryKey(cs.ID)]; ok {
			cs.Weight = w
		}
		categories = append(categories, cs)
		byCategory[cs.ID] = cs
	}

	risks, recommendations := e.IdentifyRisks(answers)

	var answered, total int
	for _, cs := range categories {
		answered += cs.AnsweredCount
		total += cs.TotalCount
	}

	return &Evaluation{
		SurveyID:        e.survey.ID,
		Overall:         e.aggregateNode(e.root, answers, byCategory),
		Categories:      categories,
		Risks:           risks,
		Recommendations: recommendations,
		Progress:        newProgress(answered, total),
	}
}

// Progress computes progress for a node or category id; an empty id means
// the whole instance. The second result is false when the id is unknown.
func (e *Engine) Progress(scopeID string, answers models.Answers) (Progress, bool) {
	if scopeID == "" {
		return ProgressOf(e.allCategories(), answers), true
	}
	if c := e.survey.Category(scopeID); c != nil {
		return ProgressOf([]*models.Category{c}, answers), true
	}
	if node := findNode(e.root, scopeID); node != nil {
		return ProgressOf(e.categoriesUnder(node), answers), true
	}
	return Progress{}, false
}

// VisibleQuestions lists the ids of questions that currently apply.
func (e *Engine) VisibleQuestions(answers models.Answers) []string {
	var ids []string
	for ci := range e.survey.Categories {
		c := &e.survey.Categories[ci]
		for qi := range c.Questions {
			if IsVisible(&c.Questions[qi], answers) {
				ids = append(ids, c.Questions[qi].ID)
			}
		}
	}
	return ids
}

func (e *Engine) allCategories() []*models.Category {
	out := make([]*models.Category, 0, len(e.survey.Categories))
	for i := range e.survey.Categories {
		out = append(out, &e.survey.Categories[i])
	}
	return out
}

func (e *Engine) categoriesUnder(node *models.HierarchyNode) []*models.Category {
	var out []*models.Category
	for i := range node.Children {
		out = append(out, e.categoriesUnder(&node.Children[i])...)
	}
	for _, id := range node.CategoryIDs {
		if c := e.survey.Category(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func findNode(node *models.HierarchyNode, id string) *models.HierarchyNode {
	if node == nil {
		return nil
	}
	if node.ID == id {
		return node
	}
	for i := range node.Children {
		if found := findNode(&node.Children[i], id); found != nil {
			return found
		}
	}
	return nil
}
