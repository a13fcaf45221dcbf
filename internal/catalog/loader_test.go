package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSurvey = `
id: pig
name:
  en: Pig farm
  fr: Élevage porcin
version: "2"
hierarchy:
  id: pig
  children:
    - id: external
      category_ids: [transport]
    - id: internal
      category_ids: [hygiene]
categories:
  - id: transport
    name: Transport
    weight: 1
    questions:
      - id: truck_wash
        text: Are trucks washed before entering?
        answer_type: single_choice
        options:
          - {id: "yes", score: 10}
          - {id: "no", score: 0}
        risk_assessment:
          priority: high
          recommendation: |
            - Build a wash bay
            - Log every truck
          diseases_affected: [asf]
  - id: hygiene
    name: Hygiene
    weight: 1
    questions:
      - id: showers
        answer_type: multiple_choice
        score_calculation: sum_with_max
        options:
          - {id: shower, score: 6}
          - {id: clothes, score: 6}
        conditional_logic:
          show_if: {question_id: truck_wash, operator: equals, value: "yes"}
diseases:
  - id: asf
    name: African swine fever
    triggers:
      - {question_id: showers, trigger_value: [], risk_level: high, weight: 1}
`

const jsonSurvey = `{
  "id": "dairy",
  "name": "Dairy",
  "categories": [
    {"id": "herd", "weight": 1, "questions": [
      {"id": "size", "answer_type": "number_input", "max_score": 5}
    ]}
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParse_YAML(t *testing.T) {
	survey, err := Parse([]byte(yamlSurvey), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "pig", survey.ID)
	assert.Equal(t, "Élevage porcin", survey.Name.Get("fr"))
	assert.Equal(t, "Transport", survey.Categories[0].Name.Get("de"))
	require.NotNil(t, survey.Hierarchy)
	assert.Len(t, survey.Hierarchy.Children, 2)
	assert.Nil(t, survey.Hierarchy.Children[0].Weight, "missing weights stay unset")

	q, c := survey.Question("showers")
	require.NotNil(t, q)
	assert.Equal(t, "hygiene", c.ID)
	assert.Equal(t, models.ScoreSumWithMax, q.ScoreCalculation)
	require.NotNil(t, q.ShowIf())
	assert.True(t, q.ShowIf().Value.Equal(models.TextAnswer("yes")))

	wash, _ := survey.Question("truck_wash")
	assert.Equal(t, "- Build a wash bay\n- Log every truck\n", wash.RiskAssessment.Recommendation.Get("en"))
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("id = x"), "toml")
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pig.yaml", yamlSurvey)
	writeFile(t, dir, "dairy.json", jsonSurvey)
	writeFile(t, dir, "README.md", "not a survey")

	c, err := LoadDir(dir, validator.New(), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	list := c.List()
	assert.Equal(t, "dairy", list[0].ID)
	assert.Equal(t, "pig", list[1].ID)

	dairy, ok := c.Get("dairy")
	require.True(t, ok)
	assert.Equal(t, 5.0, dairy.Categories[0].Questions[0].Max())

	_, ok = c.Get("sheep")
	assert.False(t, ok)
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("empty dir", func(t *testing.T) {
		_, err := LoadDir(t.TempDir(), validator.New(), discardLogger())
		assert.Error(t, err)
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"), validator.New(), discardLogger())
		assert.Error(t, err)
	})

	t.Run("duplicate id", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.json", jsonSurvey)
		writeFile(t, dir, "b.json", jsonSurvey)
		_, err := LoadDir(dir, validator.New(), discardLogger())
		assert.ErrorContains(t, err, "already loaded")
	})

	t.Run("invalid survey", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.json", `{"id": "bad", "categories": [{"id": "c", "questions": [{"id": "q", "answer_type": "essay"}]}]}`)
		_, err := LoadDir(dir, validator.New(), discardLogger())
		assert.ErrorContains(t, err, "invalid survey")
	})
}
