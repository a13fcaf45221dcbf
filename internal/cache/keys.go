package cache

import (
	"sort"
	"strconv"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/cespare/xxhash/v2"
)

const keyPrefix = "biosecurity:eval"

// Scope identifies one scoring configuration: survey, version and the
// caller-supplied combining weights.
func Scope(surveyID, version string, weights map[string]float64) string {
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	d := xxhash.New()
	for _, id := range ids {
		_, _ = d.WriteString(id)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(strconv.FormatFloat(weights[id], 'g', -1, 64))
		_, _ = d.WriteString(";")
	}
	return surveyID + ":" + version + ":" + strconv.FormatUint(d.Sum64(), 16)
}

// EvaluationKey is stable for equal answer sets regardless of map order.
// Empty answers are skipped since they score like absent ones.
func EvaluationKey(scope string, answers models.Answers) string {
	ids := make([]string, 0, len(answers))
	for id, v := range answers {
		if !v.IsEmpty() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	d := xxhash.New()
	for _, id := range ids {
		v := answers[id]
		_, _ = d.WriteString(id)
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(strconv.Itoa(int(v.Kind())))
		for _, s := range v.Strings() {
			_, _ = d.WriteString("\x1f")
			_, _ = d.WriteString(s)
		}
		_, _ = d.WriteString("\x1e")
	}
	return keyPrefix + ":" + scope + ":" + strconv.FormatUint(d.Sum64(), 16)
}

// ScopePattern matches every cached evaluation of one scope.
func ScopePattern(scope string) string {
	return keyPrefix + ":" + scope + ":*"
}
