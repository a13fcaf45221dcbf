package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/validator"
	"gopkg.in/yaml.v3"
)

// Catalog holds the read-only survey configurations, keyed by survey id.
type Catalog struct {
	surveys map[string]*models.Survey
}

// New builds a catalog from already-parsed surveys. Later duplicates win.
func New(surveys ...*models.Survey) *Catalog {
	c := &Catalog{surveys: make(map[string]*models.Survey, len(surveys))}
	for _, s := range surveys {
		c.surveys[s.ID] = s
	}
	return c
}

func (c *Catalog) Get(id string) (*models.Survey, bool) {
	s, ok := c.surveys[id]
	return s, ok
}

// List returns every survey ordered by id.
func (c *Catalog) List() []*models.Survey {
	out := make([]*models.Survey, 0, len(c.surveys))
	for _, s := range c.surveys {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Len() int { return len(c.surveys) }

// LoadDir parses every .json, .yaml and .yml file in dir. Any invalid
// survey aborts the load; warnings are logged per survey.
func LoadDir(dir string, v *validator.Validator, logger *slog.Logger) (*Catalog, error) {
	paths, err := SurveyFiles(dir)
	if err != nil {
		return nil, err
	}

	c := New()
	for _, path := range paths {
		survey, warnings, err := LoadFile(path, v)
		if err != nil {
			return nil, err
		}
		if _, dup := c.surveys[survey.ID]; dup {
			return nil, fmt.Errorf("%s: survey %q already loaded", path, survey.ID)
		}
		for _, w := range warnings {
			logger.Warn("Survey configuration warning", "survey_id", survey.ID, "file", path, "warning", w)
		}
		c.surveys[survey.ID] = survey
		logger.Info("Survey loaded",
			"survey_id", survey.ID,
			"version", survey.Version,
			"categories", len(survey.Categories),
			"questions", survey.QuestionCount())
	}

	if c.Len() == 0 {
		return nil, fmt.Errorf("no survey files found in %s", dir)
	}
	return c, nil
}

// SurveyFiles lists the survey documents in dir, sorted by name.
func SurveyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read survey dir %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || formatOf(entry.Name()) == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// LoadFile parses and validates one survey document.
func LoadFile(path string, v *validator.Validator) (*models.Survey, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read survey %s: %w", path, err)
	}

	survey, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, nil, fmt.Errorf("parse survey %s: %w", path, err)
	}

	warnings, err := v.ValidateSurvey(survey)
	if err != nil {
		return nil, warnings, fmt.Errorf("invalid survey %s: %w", path, err)
	}
	return survey, warnings, nil
}

// Parse decodes a survey document. YAML is normalised through JSON so both
// formats share the same field names and custom decoders.
func Parse(data []byte, format string) (*models.Survey, error) {
	switch format {
	case "json":
	case "yaml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("unsupported survey format %q", format)
	}

	var survey models.Survey
	if err := json.Unmarshal(data, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

func formatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}
