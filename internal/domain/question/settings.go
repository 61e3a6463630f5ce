package question

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Settings is the validated, type-specific configuration of a question.
// The concrete type always matches Question.Type.
type Settings interface {
	Type() Type
	sealed()
}

type TextSettings struct {
	MinLength *int `json:"min_length,omitempty"`
	MaxLength *int `json:"max_length,omitempty"`
}

type SingleChoiceSettings struct {
	Options []string `json:"options"`
}

type MultipleChoiceSettings struct {
	Options       []string `json:"options"`
	Flexable      bool     `json:"flexable"`
	MinSelections int      `json:"min_selections"`
	MaxSelections *int     `json:"max_selections,omitempty"`
}

type RatingSettings struct {
	MinValue float64 `json:"min_value"`
	MaxValue float64 `json:"max_value"`
	Step     float64 `json:"step"`
}

type FileSettings struct {
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxFileSize       float64  `json:"max_file_size"`
}

func (TextSettings) Type() Type           { return TypeText }
func (SingleChoiceSettings) Type() Type   { return TypeSingleChoice }
func (MultipleChoiceSettings) Type() Type { return TypeMultipleChoice }
func (RatingSettings) Type() Type         { return TypeRating }
func (FileSettings) Type() Type           { return TypeFile }

func (TextSettings) sealed()           {}
func (SingleChoiceSettings) sealed()   {}
func (MultipleChoiceSettings) sealed() {}
func (RatingSettings) sealed()         {}
func (FileSettings) sealed()           {}

// ValidateSettings checks raw settings against the schema of t, fills defaults
// for absent optional keys and returns the typed variant. A key holding null is
// treated as absent. Running it again on the map form of its own output
// yields the same settings.
func ValidateSettings(t Type, raw map[string]any) (Settings, error) {
	if _, err := ParseType(string(t)); err != nil {
		return nil, err
	}

	filled := make(map[string]any)
	for _, f := range SchemaFor(t) {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			if f.Required {
				return nil, schemaErr("%s is required for %s questions", f.Name, t)
			}
			if f.Default != nil {
				filled[f.Name] = f.Default
			}
			continue
		}
		cv, err := coerce(f.Kind, v)
		if err != nil {
			return nil, schemaErr("%s must be of kind %s", f.Name, f.Kind)
		}
		filled[f.Name] = cv
	}

	switch t {
	case TypeText:
		return buildText(filled)
	case TypeSingleChoice:
		return buildSingleChoice(filled)
	case TypeMultipleChoice:
		return buildMultipleChoice(filled)
	case TypeRating:
		return buildRating(filled)
	case TypeFile:
		return buildFile(filled)
	}
	return nil, ErrUnknownType
}

func buildText(m map[string]any) (Settings, error) {
	s := TextSettings{MinLength: intPtr(m, "min_length"), MaxLength: intPtr(m, "max_length")}
	if s.MinLength != nil && *s.MinLength < 0 {
		return nil, schemaErr("min_length must not be negative")
	}
	if s.MaxLength != nil && *s.MaxLength < 0 {
		return nil, schemaErr("max_length must not be negative")
	}
	if s.MinLength != nil && s.MaxLength != nil && *s.MinLength > *s.MaxLength {
		return nil, schemaErr("min_length cannot be greater than max_length")
	}
	return s, nil
}

func buildSingleChoice(m map[string]any) (Settings, error) {
	opts := m["options"].([]string)
	if len(opts) == 0 {
		return nil, schemaErr("options must not be empty for single_choice questions")
	}
	return SingleChoiceSettings{Options: opts}, nil
}

func buildMultipleChoice(m map[string]any) (Settings, error) {
	opts, hasOptions := m["options"].([]string)
	flexable, hasFlexable := m["flexable"].(bool)

	switch {
	case hasOptions && !hasFlexable:
		return nil, schemaErr("flexable must be set when options are given")
	case !hasOptions && !flexable:
		return nil, schemaErr("flexable must be true when no options are given")
	case hasOptions && len(opts) == 0 && !flexable:
		return nil, schemaErr("options must not be empty unless flexable is true")
	}

	s := MultipleChoiceSettings{
		Options:       opts,
		Flexable:      flexable,
		MinSelections: m["min_selections"].(int),
		MaxSelections: intPtr(m, "max_selections"),
	}
	if s.MinSelections < 0 {
		return nil, schemaErr("min_selections must not be negative")
	}
	if s.MaxSelections != nil && s.MinSelections > *s.MaxSelections {
		return nil, schemaErr("min_selections cannot be greater than max_selections")
	}
	return s, nil
}

func buildRating(m map[string]any) (Settings, error) {
	s := RatingSettings{
		MinValue: m["min_value"].(float64),
		MaxValue: m["max_value"].(float64),
		Step:     m["step"].(float64),
	}
	if s.Step <= 0 {
		return nil, schemaErr("step must be greater than zero")
	}
	if s.MinValue >= s.MaxValue {
		return nil, schemaErr("min_value must be less than max_value")
	}
	return s, nil
}

func buildFile(m map[string]any) (Settings, error) {
	exts := m["allowed_extensions"].([]string)
	if len(exts) == 0 {
		return nil, schemaErr("allowed_extensions must not be empty")
	}
	norm := make([]string, len(exts))
	for i, e := range exts {
		norm[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
	}
	s := FileSettings{AllowedExtensions: norm, MaxFileSize: m["max_file_size"].(float64)}
	if s.MaxFileSize <= 0 {
		return nil, schemaErr("max_file_size must be greater than zero")
	}
	return s, nil
}

func intPtr(m map[string]any, key string) *int {
	v, ok := m[key].(int)
	if !ok {
		return nil
	}
	return &v
}

// coerce converts a decoded JSON value (or a Go literal) to the canonical Go
// type of kind: int, float64, bool or []string.
func coerce(kind Kind, v any) (any, error) {
	switch kind {
	case KindInt:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("not an integer: %v", v)
		}
		return int(f), nil
	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("not a number: %v", v)
		}
		return f, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("not a bool: %v", v)
		}
		return b, nil
	case KindList:
		switch list := v.(type) {
		case []string:
			return append([]string{}, list...), nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item is not a string: %v", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
		return nil, fmt.Errorf("not a list: %v", v)
	}
	return nil, fmt.Errorf("unknown kind %s", kind)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// DecodeSettings restores a stored settings document of type t.
func DecodeSettings(t Type, data []byte) (Settings, error) {
	var (
		s   Settings
		err error
	)
	switch t {
	case TypeText:
		var v TextSettings
		err = json.Unmarshal(data, &v)
		s = v
	case TypeSingleChoice:
		var v SingleChoiceSettings
		err = json.Unmarshal(data, &v)
		s = v
	case TypeMultipleChoice:
		var v MultipleChoiceSettings
		err = json.Unmarshal(data, &v)
		s = v
	case TypeRating:
		var v RatingSettings
		err = json.Unmarshal(data, &v)
		s = v
	case TypeFile:
		var v FileSettings
		err = json.Unmarshal(data, &v)
		s = v
	default:
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s settings: %w", t, err)
	}
	return s, nil
}

// SettingsMap returns the generic map form of s, the shape ValidateSettings accepts.
func SettingsMap(s Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
