package question

import (
	"encoding/json"
	"time"
)

type Type string

const (
	TypeText           Type = "text"
	TypeSingleChoice   Type = "single_choice"
	TypeMultipleChoice Type = "multiple_choice"
	TypeRating         Type = "rating"
	TypeFile           Type = "file"
)

// Types lists every supported question type in display order.
var Types = []Type{TypeText, TypeSingleChoice, TypeMultipleChoice, TypeRating, TypeFile}

func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrUnknownType
}

// IsChoice reports whether answers of this type carry option labels.
func (t Type) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultipleChoice
}

type Question struct {
	ID        int64     `json:"id"`
	SurveyID  int64     `json:"survey_id"`
	Text      string    `json:"question_text"`
	Type      Type      `json:"question_type"`
	Required  bool      `json:"required"`
	Order     int       `json:"order"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
}

// Input is the unvalidated form of a question as received from a creator.
type Input struct {
	Text     string         `json:"question_text"`
	Type     string         `json:"question_type"`
	Required bool           `json:"required"`
	Order    int            `json:"order"`
	Settings map[string]any `json:"settings"`
}

// Build validates the input and returns a question ready to persist.
func (in Input) Build() (Question, error) {
	if in.Text == "" {
		return Question{}, &FieldError{Err: ErrSchema, Field: "question_text", Message: "question_text is required"}
	}
	t, err := ParseType(in.Type)
	if err != nil {
		return Question{}, &FieldError{Err: ErrSchema, Field: "question_type", Message: "unknown question type " + in.Type}
	}
	settings, err := ValidateSettings(t, in.Settings)
	if err != nil {
		return Question{}, err
	}
	return Question{
		Text:     in.Text,
		Type:     t,
		Required: in.Required,
		Order:    in.Order,
		Settings: settings,
	}, nil
}

// MarshalSettings encodes the settings variant for storage.
func (q Question) MarshalSettings() ([]byte, error) {
	if q.Settings == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(q.Settings)
}
