package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yesNo(id string, yes, no float64) models.Question {
	return models.Question{
		ID:         id,
		Text:       models.LocalizedText{"en": "Question " + id},
		AnswerType: models.SingleChoice,
		Options: []models.Option{
			{ID: "yes", Score: yes},
			{ID: "no", Score: no},
		},
	}
}

func gated(q models.Question, on string) models.Question {
	q.ConditionalLogic = &models.ConditionalLogic{ShowIf: &models.Condition{
		QuestionID: on,
		Operator:   models.OpEquals,
		Value:      models.TextAnswer("yes"),
	}}
	return q
}

func TestCategory_EndToEnd(t *testing.T) {
	c := models.Category{
		ID:     "housing",
		Weight: ptr(1),
		Questions: []models.Question{
			{ID: "q1", AnswerType: models.SingleChoice, Options: []models.Option{{ID: "good", Score: 7}}},
			{ID: "q2", AnswerType: models.NumericRange, Ranges: []models.NumericBand{{Min: 0, Max: 10, Score: 10}}},
		},
	}

	cs := ScoreCategory(&c, models.Answers{"q1": models.TextAnswer("good")}, "en")

	assert.Equal(t, 7.0, cs.RawScore)
	assert.Equal(t, 20.0, cs.MaxScore)
	assert.Equal(t, 35.0, cs.Percentage)
	assert.Equal(t, 1, cs.AnsweredCount)
	assert.Equal(t, 2, cs.TotalCount)
}

func TestCategory_NoVisibleQuestions(t *testing.T) {
	c := models.Category{
		ID:        "hidden",
		Questions: []models.Question{gated(yesNo("q2", 10, 0), "q1")},
	}

	cs := ScoreCategory(&c, models.Answers{}, "en")

	assert.Equal(t, 0, cs.TotalCount)
	assert.Equal(t, 0.0, cs.Percentage)
	assert.False(t, math.IsNaN(cs.Percentage))
	assert.False(t, cs.Progress().IsComplete)
}

func TestCategory_QuestionContributionCappedAtTen(t *testing.T) {
	c := models.Category{
		ID: "feed",
		Questions: []models.Question{{
			ID:               "storage",
			AnswerType:       models.MultipleChoice,
			ScoreCalculation: models.ScoreSumWithMax,
			MaxScore:         ptr(20),
			Options:          []models.Option{{ID: "a", Score: 10}, {ID: "b", Score: 10}},
		}},
	}

	cs := ScoreCategory(&c, models.Answers{"storage": models.ListAnswer("a", "b")}, "en")

	assert.Equal(t, 10.0, cs.RawScore)
	assert.Equal(t, 10.0, cs.MaxScore)
	assert.Equal(t, 100.0, cs.Percentage)
	assert.Equal(t, 10.0, cs.Questions[0].Score)
}

func TestCategory_PercentageFormula(t *testing.T) {
	scores := []float64{3, 7.5, 10, 0, 4.2}
	c := models.Category{ID: "c"}
	answers := models.Answers{}
	var sum float64
	for i, s := range scores {
		id := string(rune('a' + i))
		c.Questions = append(c.Questions, models.Question{ID: id, AnswerType: models.NumberInput})
		answers[id] = models.NumberAnswer(s)
		sum += s
	}

	cs := ScoreCategory(&c, answers, "en")

	expected := math.Round(100*sum/(10*float64(len(scores)))*10) / 10
	assert.Equal(t, expected, cs.Percentage)
}

func TestVisibility_GatingChangesTotalCount(t *testing.T) {
	survey := &models.Survey{
		ID: "s",
		Categories: []models.Category{{
			ID:     "c",
			Weight: ptr(1),
			Questions: []models.Question{
				yesNo("gate", 10, 0),
				gated(yesNo("g1", 10, 0), "gate"),
				gated(yesNo("g2", 10, 0), "gate"),
				gated(yesNo("g3", 10, 0), "gate"),
				yesNo("free", 10, 0),
			},
		}},
	}
	engine, err := New(survey)
	require.NoError(t, err)

	hidden, _ := engine.Progress("", models.Answers{"gate": models.TextAnswer("no")})
	shown, _ := engine.Progress("", models.Answers{"gate": models.TextAnswer("yes")})

	assert.Equal(t, 2, hidden.TotalCount)
	assert.Equal(t, 5, shown.TotalCount)
	assert.Equal(t, 3, shown.TotalCount-hidden.TotalCount)
}

func TestCompleteness_FlipsWhenGatedQuestionHides(t *testing.T) {
	survey := &models.Survey{
		ID: "s",
		Categories: []models.Category{{
			ID:     "c",
			Weight: ptr(1),
			Questions: []models.Question{
				yesNo("gate", 10, 0),
				gated(yesNo("follow", 10, 0), "gate"),
			},
		}},
	}
	engine, err := New(survey)
	require.NoError(t, err)

	answers := models.Answers{"gate": models.TextAnswer("yes")}
	before := engine.Evaluate(answers)
	assert.Equal(t, 2, before.Progress.TotalCount)
	assert.False(t, before.Progress.IsComplete)
	assert.Equal(t, models.StateInProgress, DeriveState(models.StateInProgress, answers, before.Progress))

	answers["gate"] = models.TextAnswer("no")
	after := engine.Evaluate(answers)
	assert.Equal(t, 1, after.Progress.TotalCount)
	assert.True(t, after.Progress.IsComplete)
	assert.Equal(t, models.StateComplete, DeriveState(models.StateInProgress, answers, after.Progress))

	answers["gate"] = models.TextAnswer("yes")
	reopened := engine.Evaluate(answers)
	assert.False(t, reopened.Progress.IsComplete)
	assert.Equal(t, models.StateInProgress, DeriveState(models.StateComplete, answers, reopened.Progress))
}

func TestDeriveState(t *testing.T) {
	incomplete := newProgress(1, 2)
	complete := newProgress(2, 2)
	answered := models.Answers{"q": models.TextAnswer("x")}

	assert.Equal(t, models.StateNotStarted, DeriveState(models.StateNotStarted, models.Answers{}, newProgress(0, 2)))
	assert.Equal(t, models.StateNotStarted, DeriveState(models.StateInProgress, models.Answers{"q": models.TextAnswer("")}, newProgress(0, 2)))
	assert.Equal(t, models.StateInProgress, DeriveState(models.StateNotStarted, answered, incomplete))
	assert.Equal(t, models.StateComplete, DeriveState(models.StateInProgress, answered, complete))
	assert.Equal(t, models.StateArchived, DeriveState(models.StateArchived, answered, complete))
	assert.Equal(t, models.StateDiscarded, DeriveState(models.StateDiscarded, answered, incomplete))
}

func nestedSurvey() *models.Survey {
	cat := func(id string, w float64) models.Category {
		c := models.Category{ID: id, Weight: ptr(w)}
		for i := 0; i < 2; i++ {
			c.Questions = append(c.Questions, models.Question{ID: id + "-q" + string(rune('0'+i)), AnswerType: models.NumberInput})
		}
		return c
	}
	return &models.Survey{
		ID: "nested",
		Categories: []models.Category{
			cat("c1", 0.25), cat("c2", 0.75),
			cat("c3", 0.5), cat("c4", 0.5),
			cat("c5", 1),
		},
		Hierarchy: &models.HierarchyNode{
			ID: "root",
			Children: []models.HierarchyNode{
				{
					ID:     "external",
					Weight: ptr(0.6),
					Children: []models.HierarchyNode{
						{ID: "ext-a", Weight: ptr(0.3), CategoryIDs: []string{"c1", "c2"}},
						{ID: "ext-b", Weight: ptr(0.7), CategoryIDs: []string{"c3", "c4"}},
					},
				},
				{ID: "internal", Weight: ptr(0.4), CategoryIDs: []string{"c5"}},
			},
		},
	}
}

func TestHierarchy_BottomUpMatchesFlattened(t *testing.T) {
	survey := nestedSurvey()
	engine, err := New(survey)
	require.NoError(t, err)

	answers := models.Answers{
		"c1-q0": models.NumberAnswer(3), "c1-q1": models.NumberAnswer(8),
		"c2-q0": models.NumberAnswer(10),
		"c3-q0": models.NumberAnswer(1), "c3-q1": models.NumberAnswer(2),
		"c4-q0": models.NumberAnswer(9), "c4-q1": models.NumberAnswer(6),
		"c5-q0": models.NumberAnswer(7),
	}
	eval := engine.Evaluate(answers)

	pct := map[string]float64{}
	for _, c := range eval.Categories {
		pct[c.ID] = c.Percentage
	}
	flattened := WeightedMean([]WeightedValue{
		{Value: pct["c1"], Weight: 0.6 * 0.3 * 0.25},
		{Value: pct["c2"], Weight: 0.6 * 0.3 * 0.75},
		{Value: pct["c3"], Weight: 0.6 * 0.7 * 0.5},
		{Value: pct["c4"], Weight: 0.6 * 0.7 * 0.5},
		{Value: pct["c5"], Weight: 0.4 * 1},
	})

	assert.InDelta(t, flattened, eval.Overall.Percentage, 1e-9)
	require.Len(t, eval.Overall.Children, 2)
	assert.Equal(t, "external", eval.Overall.Children[0].ID)
	assert.Len(t, eval.Overall.Children[0].Children, 2)
	assert.Equal(t, 8, eval.Overall.Progress.AnsweredCount)
	assert.Equal(t, 10, eval.Overall.Progress.TotalCount)
}

func TestWeightedMean(t *testing.T) {
	assert.Equal(t, 0.0, WeightedMean(nil))
	assert.Equal(t, 0.0, WeightedMean([]WeightedValue{{Value: 80, Weight: 0}}))
	assert.InDelta(t, 70.0, WeightedMean([]WeightedValue{{Value: 50, Weight: 1}, {Value: 80, Weight: 2}}), 1e-9)
	// Unnormalized weights still land on the 0-100 scale.
	assert.InDelta(t, 100.0, WeightedMean([]WeightedValue{{Value: 100, Weight: 7}, {Value: 100, Weight: 9}}), 1e-9)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilSurvey)

	survey := &models.Survey{
		ID:         "split",
		Categories: []models.Category{{ID: "c1", Weight: ptr(1)}, {ID: "c2", Weight: ptr(1)}},
		Hierarchy: &models.HierarchyNode{
			ID: "root",
			Children: []models.HierarchyNode{
				{ID: "external", CategoryIDs: []string{"c1"}},
				{ID: "internal", CategoryIDs: []string{"c2"}},
			},
		},
	}
	_, err = New(survey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingWeight))
	var mwe *MissingWeightError
	require.ErrorAs(t, err, &mwe)
	assert.Equal(t, []string{"external", "internal"}, mwe.IDs)

	engine, err := New(survey, WithCombiningWeights(map[string]float64{"external": 0.61, "internal": 0.39}))
	require.NoError(t, err)
	eval := engine.Evaluate(nil)
	assert.Equal(t, 0.61, eval.Overall.Children[0].Weight)
	assert.Equal(t, 0.39, eval.Overall.Children[1].Weight)
}

func TestNew_ConfiguredWeightWinsOverOverride(t *testing.T) {
	survey := &models.Survey{
		ID: "flat",
		Categories: []models.Category{
			{ID: "c1", Weight: ptr(2), Questions: []models.Question{{ID: "q1", AnswerType: models.NumberInput}}},
			{ID: "c2", Questions: []models.Question{{ID: "q2", AnswerType: models.NumberInput}}},
		},
	}
	engine, err := New(survey, WithCombiningWeights(map[string]float64{"c1": 100, "c2": 1}))
	require.NoError(t, err)

	eval := engine.Evaluate(models.Answers{"q1": models.NumberAnswer(10), "q2": models.NumberAnswer(4)})

	// (100*2 + 40*1) / 3
	assert.InDelta(t, 80.0, eval.Overall.Percentage, 1e-9)
	assert.Equal(t, "flat", eval.Overall.ID)
	assert.Len(t, eval.Overall.Categories, 2)
}

func TestEngine_ProgressScopes(t *testing.T) {
	engine, err := New(nestedSurvey())
	require.NoError(t, err)
	answers := models.Answers{"c1-q0": models.NumberAnswer(1), "c5-q0": models.NumberAnswer(2), "c5-q1": models.NumberAnswer(3)}

	all, ok := engine.Progress("", answers)
	require.True(t, ok)
	assert.Equal(t, 3, all.AnsweredCount)
	assert.Equal(t, 10, all.TotalCount)
	assert.Equal(t, 30.0, all.Percentage)

	internal, ok := engine.Progress("internal", answers)
	require.True(t, ok)
	assert.True(t, internal.IsComplete)

	extA, ok := engine.Progress("ext-a", answers)
	require.True(t, ok)
	assert.Equal(t, 1, extA.AnsweredCount)
	assert.Equal(t, 4, extA.TotalCount)

	c2, ok := engine.Progress("c2", answers)
	require.True(t, ok)
	assert.Equal(t, 0.0, c2.Percentage)

	_, ok = engine.Progress("missing", answers)
	assert.False(t, ok)
}

func TestEngine_VisibleQuestions(t *testing.T) {
	survey := &models.Survey{
		ID: "s",
		Categories: []models.Category{{
			ID:        "c",
			Weight:    ptr(1),
			Questions: []models.Question{yesNo("gate", 10, 0), gated(yesNo("follow", 10, 0), "gate")},
		}},
	}
	engine, err := New(survey)
	require.NoError(t, err)

	assert.Equal(t, []string{"gate"}, engine.VisibleQuestions(models.Answers{}))
	assert.Equal(t, []string{"gate", "follow"}, engine.VisibleQuestions(models.Answers{"gate": models.TextAnswer("yes")}))
}
