package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type AnswerKind int

const (
	AnswerEmpty AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerList
)

// AnswerValue is a raw answer: a string, a number or a list of option ids.
// The zero value is the unanswered state.
type AnswerValue struct {
	kind   AnswerKind
	text   string
	number float64
	list   []string
}

// Answers maps question id to its raw answer.
type Answers map[string]AnswerValue

func TextAnswer(s string) AnswerValue {
	return AnswerValue{kind: AnswerText, text: s}
}

func NumberAnswer(f float64) AnswerValue {
	return AnswerValue{kind: AnswerNumber, number: f}
}

func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{kind: AnswerList, list: append([]string(nil), items...)}
}

func (v AnswerValue) Kind() AnswerKind { return v.kind }

// IsEmpty reports whether v counts as unanswered.
func (v AnswerValue) IsEmpty() bool {
	switch v.kind {
	case AnswerText:
		return v.text == ""
	case AnswerNumber:
		return false
	case AnswerList:
		return len(v.list) == 0
	default:
		return true
	}
}

// Float coerces v to a number. Lists never coerce.
func (v AnswerValue) Float() (float64, bool) {
	switch v.kind {
	case AnswerNumber:
		return v.number, true
	case AnswerText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Strings returns v as a list of selections; scalars become one-element lists.
func (v AnswerValue) Strings() []string {
	switch v.kind {
	case AnswerList:
		return append([]string(nil), v.list...)
	case AnswerText, AnswerNumber:
		if v.IsEmpty() {
			return nil
		}
		return []string{v.String()}
	default:
		return nil
	}
}

func (v AnswerValue) String() string {
	switch v.kind {
	case AnswerText:
		return v.text
	case AnswerNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case AnswerList:
		return strings.Join(v.list, ",")
	default:
		return ""
	}
}

// Equal compares scalars numerically when both sides are numeric, otherwise
// by their string form. Lists are equal when they hold the same items in order.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.kind == AnswerList || o.kind == AnswerList {
		if v.kind != o.kind || len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	if a, ok := v.Float(); ok {
		if b, ok := o.Float(); ok {
			return a == b
		}
	}
	return v.String() == o.String()
}

// Contains reports whether item is one of v's selections.
func (v AnswerValue) Contains(item AnswerValue) bool {
	for _, s := range v.Strings() {
		if TextAnswer(s).Equal(item) {
			return true
		}
	}
	return false
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AnswerText:
		return json.Marshal(v.text)
	case AnswerNumber:
		return json.Marshal(v.number)
	case AnswerList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := NewAnswerValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// NewAnswerValue converts a decoded JSON/YAML value into an AnswerValue.
func NewAnswerValue(raw any) (AnswerValue, error) {
	switch t := raw.(type) {
	case nil:
		return AnswerValue{}, nil
	case AnswerValue:
		return t, nil
	case string:
		return TextAnswer(t), nil
	case bool:
		return TextAnswer(strconv.FormatBool(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return AnswerValue{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return NumberAnswer(f), nil
	case float64:
		return NumberAnswer(t), nil
	case float32:
		return NumberAnswer(float64(t)), nil
	case int:
		return NumberAnswer(float64(t)), nil
	case int64:
		return NumberAnswer(float64(t)), nil
	case []string:
		return ListAnswer(t...), nil
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			elem, err := NewAnswerValue(item)
			if err != nil {
				return AnswerValue{}, err
			}
			if elem.kind == AnswerList {
				return AnswerValue{}, fmt.Errorf("nested lists are not valid answers")
			}
			if !elem.IsEmpty() {
				items = append(items, elem.String())
			}
		}
		return ListAnswer(items...), nil
	default:
		return AnswerValue{}, fmt.Errorf("unsupported answer type %T", raw)
	}
}
