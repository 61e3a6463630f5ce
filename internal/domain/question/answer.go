package question

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"unicode/utf8"
)

// stepTolerance absorbs float noise when checking that a rating lands on a step.
const stepTolerance = 1e-9

// ValidateAnswer checks a candidate value against q. file carries the encoded
// payload for file questions and is ignored otherwise.
//
// A nil Value with a nil error means the question was left empty and is not
// required, so no answer should be stored. For file questions the returned
// Upload holds the decoded bytes; nothing is written anywhere by this function.
func ValidateAnswer(q Question, raw json.RawMessage, file string) (Value, *Upload, error) {
	if q.Type == TypeFile {
		if file == "" {
			if q.Required {
				return nil, nil, fileErr("this question is required")
			}
			return nil, nil, nil
		}
		s, ok := q.Settings.(FileSettings)
		if !ok {
			return nil, nil, ErrUnknownType
		}
		return validateFile(s, file)
	}

	if isEmpty(raw) {
		if q.Required {
			return nil, nil, formatErr("this question is required")
		}
		return nil, nil, nil
	}

	var (
		v   Value
		err error
	)
	switch s := q.Settings.(type) {
	case TextSettings:
		v, err = validateText(s, raw)
	case SingleChoiceSettings:
		v, err = validateSingleChoice(s, raw)
	case MultipleChoiceSettings:
		v, err = validateMultipleChoice(s, raw)
	case RatingSettings:
		v, err = validateRating(s, raw)
	default:
		return nil, nil, ErrUnknownType
	}
	if err != nil {
		return nil, nil, err
	}
	return v, nil, nil
}

func isEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	return false
}

func validateText(s TextSettings, raw json.RawMessage) (Value, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, formatErr("value must be a string")
	}
	n := utf8.RuneCountInString(text)
	if s.MinLength != nil && n < *s.MinLength {
		return nil, formatErr("text must be at least %d characters long", *s.MinLength)
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		return nil, formatErr("text must be at most %d characters long", *s.MaxLength)
	}
	return TextValue(text), nil
}

func validateSingleChoice(s SingleChoiceSettings, raw json.RawMessage) (Value, error) {
	var payload struct {
		Choice *string `json:"choice"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Choice == nil {
		return nil, formatErr("value must be an object with a choice")
	}
	if *payload.Choice == "" {
		return nil, formatErr("choice must not be empty")
	}
	if !slices.Contains(s.Options, *payload.Choice) {
		return nil, formatErr("%q is not a valid option", *payload.Choice)
	}
	return ChoiceValue{Choice: *payload.Choice}, nil
}

func validateMultipleChoice(s MultipleChoiceSettings, raw json.RawMessage) (Value, error) {
	var payload struct {
		Choices []string `json:"choices"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, formatErr("value must be an object with a list of choices")
	}
	if len(payload.Choices) == 0 {
		return nil, formatErr("choices must not be empty")
	}
	if n := len(payload.Choices); n < s.MinSelections {
		return nil, formatErr("select at least %d options", s.MinSelections)
	} else if s.MaxSelections != nil && n > *s.MaxSelections {
		return nil, formatErr("select at most %d options", *s.MaxSelections)
	}

	seen := make(map[string]struct{}, len(payload.Choices))
	for _, c := range payload.Choices {
		if _, dup := seen[c]; dup {
			return nil, formatErr("%q is selected more than once", c)
		}
		seen[c] = struct{}{}
		if !s.Flexable && !slices.Contains(s.Options, c) {
			return nil, formatErr("%q is not a valid option", c)
		}
	}
	return MultiChoiceValue{Choices: payload.Choices}, nil
}

func validateRating(s RatingSettings, raw json.RawMessage) (Value, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, formatErr("value must be a number")
	}
	if v < s.MinValue || v > s.MaxValue {
		return nil, formatErr("rating must be between %g and %g", s.MinValue, s.MaxValue)
	}
	k := (v - s.MinValue) / s.Step
	if math.Abs(k-math.Round(k)) > stepTolerance {
		return nil, formatErr("rating must be a multiple of %g starting at %g", s.Step, s.MinValue)
	}
	return RatingValue(v), nil
}
