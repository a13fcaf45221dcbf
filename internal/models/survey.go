package models

import (
	"encoding/json"
	"sort"
)

type AnswerType string

const (
	SingleChoice   AnswerType = "single_choice"
	MultipleChoice AnswerType = "multiple_choice"
	NumberInput    AnswerType = "number_input"
	NumericRange   AnswerType = "numeric_range"
)

type ScoreCalculation string

const (
	ScoreAverage    ScoreCalculation = "average"
	ScoreSumWithMax ScoreCalculation = "sum_with_max"
)

// Operator is the comparison applied by a show_if rule.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "not_contains"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
)

// KnownOperators lists every operator the visibility evaluator understands.
var KnownOperators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpNotContains,
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
}

type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Severity orders risk levels; higher is worse. Unknown levels rank below low.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

const (
	DefaultMaxScore     = 10.0
	DefaultTriggerScore = 5.0
	DefaultLanguage     = "en"
)

// LocalizedText maps a language code to a string. A bare JSON string decodes
// as the default language.
type LocalizedText map[string]string

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = LocalizedText{DefaultLanguage: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

// Get returns the text for lang, falling back to the default language and
// then to the alphabetically first translation.
func (t LocalizedText) Get(lang string) string {
	if v, ok := t[lang]; ok {
		return v
	}
	if v, ok := t[DefaultLanguage]; ok {
		return v
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return t[keys[0]]
}

type Option struct {
	ID    string        `json:"id" validate:"required"`
	Label LocalizedText `json:"label"`
	Score float64       `json:"score" validate:"min=0"`
}

// NumericBand is an inclusive [Min, Max] range with a fixed score.
type NumericBand struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max" validate:"gtefield=Min"`
	Score float64 `json:"score" validate:"min=0"`
}

func (b NumericBand) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Condition is a single show_if expression: the answer to QuestionID is
// compared against Value using Operator.
type Condition struct {
	QuestionID string      `json:"question_id" validate:"required"`
	Operator   Operator    `json:"operator" validate:"required"`
	Value      AnswerValue `json:"value"`
}

type ConditionalLogic struct {
	ShowIf *Condition `json:"show_if,omitempty" validate:"omitempty"`
}

type RiskAssessment struct {
	TriggerScore     *float64      `json:"trigger_score,omitempty"`
	Priority         RiskLevel     `json:"priority" validate:"required,risk_level"`
	RiskDescription  LocalizedText `json:"risk_description"`
	Recommendation   LocalizedText `json:"recommendation"`
	DiseasesAffected []string      `json:"diseases_affected"`
	Weight           *float64      `json:"weight,omitempty" validate:"omitempty,min=0"`
}

// Threshold is the score below which the assessment fires.
func (r *RiskAssessment) Threshold() float64 {
	if r.TriggerScore == nil {
		return DefaultTriggerScore
	}
	return *r.TriggerScore
}

// TriggerWeight is the weight contributed to each affected disease.
func (r *RiskAssessment) TriggerWeight() float64 {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}

type Question struct {
	ID               string            `json:"id" validate:"required"`
	Text             LocalizedText     `json:"text"`
	AnswerType       AnswerType        `json:"answer_type" validate:"required,answer_type"`
	Options          []Option          `json:"options,omitempty" validate:"dive"`
	MaxScore         *float64          `json:"max_score,omitempty" validate:"omitempty,min=0"`
	Ranges           []NumericBand     `json:"ranges,omitempty" validate:"dive"`
	ScoreCalculation ScoreCalculation  `json:"score_calculation,omitempty" validate:"omitempty,oneof=average sum_with_max"`
	ConditionalLogic *ConditionalLogic `json:"conditional_logic,omitempty" validate:"omitempty"`
	RiskAssessment   *RiskAssessment   `json:"risk_assessment,omitempty" validate:"omitempty"`
}

// Max is the upper clamp of this question's score.
func (q *Question) Max() float64 {
	if q.MaxScore == nil {
		return DefaultMaxScore
	}
	return *q.MaxScore
}

// ShowIf returns the visibility rule, or nil when the question always applies.
func (q *Question) ShowIf() *Condition {
	if q.ConditionalLogic == nil {
		return nil
	}
	return q.ConditionalLogic.ShowIf
}

func (q *Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

type Category struct {
	ID        string        `json:"id" validate:"required"`
	Name      LocalizedText `json:"name"`
	Weight    *float64      `json:"weight,omitempty" validate:"omitempty,min=0"`
	Questions []Question    `json:"questions" validate:"dive"`
}

// HierarchyNode is an internal scoring node (focus area, sub-area, section).
// Children and CategoryIDs may both be set; categories are listed after nodes.
type HierarchyNode struct {
	ID          string          `json:"id" validate:"required"`
	Name        LocalizedText   `json:"name"`
	Weight      *float64        `json:"weight,omitempty" validate:"omitempty,min=0"`
	Children    []HierarchyNode `json:"children,omitempty" validate:"dive"`
	CategoryIDs []string        `json:"category_ids,omitempty"`
}

type DiseaseTrigger struct {
	QuestionID   string      `json:"question_id" validate:"required"`
	TriggerValue AnswerValue `json:"trigger_value"`
	RiskLevel    RiskLevel   `json:"risk_level" validate:"required,risk_level"`
	Weight       float64     `json:"weight" validate:"min=0"`
}

type Disease struct {
	ID        string           `json:"id" validate:"required"`
	Name      LocalizedText    `json:"name"`
	Triggers  []DiseaseTrigger `json:"triggers,omitempty" validate:"dive"`
	Mortality string           `json:"mortality,omitempty"`
	Zoonotic  bool             `json:"zoonotic"`
}

// Survey is one assessment variant. A nil Hierarchy means the flat shape:
// the root aggregates Categories directly.
type Survey struct {
	ID         string         `json:"id" validate:"required"`
	Name       LocalizedText  `json:"name"`
	Version    string         `json:"version,omitempty"`
	Categories []Category     `json:"categories" validate:"required,min=1,dive"`
	Hierarchy  *HierarchyNode `json:"hierarchy,omitempty" validate:"omitempty"`
	Diseases   []Disease      `json:"diseases,omitempty" validate:"dive"`
}

func (s *Survey) Category(id string) *Category {
	for i := range s.Categories {
		if s.Categories[i].ID == id {
			return &s.Categories[i]
		}
	}
	return nil
}

// Question finds a question and the category holding it.
func (s *Survey) Question(id string) (*Question, *Category) {
	for i := range s.Categories {
		c := &s.Categories[i]
		for j := range c.Questions {
			if c.Questions[j].ID == id {
				return &c.Questions[j], c
			}
		}
	}
	return nil, nil
}

func (s *Survey) Disease(id string) *Disease {
	for i := range s.Diseases {
		if s.Diseases[i].ID == id {
			return &s.Diseases[i]
		}
	}
	return nil
}

// QuestionCount is the number of configured questions, visible or not.
func (s *Survey) QuestionCount() int {
	n := 0
	for _, c := range s.Categories {
		n += len(c.Questions)
	}
	return n
}
