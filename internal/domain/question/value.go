package question

import (
	"encoding/json"
	"fmt"
)

// Value is the typed payload of an accepted answer.
type Value interface {
	Type() Type
	sealedValue()
}

type TextValue string

type ChoiceValue struct {
	Choice string `json:"choice"`
}

type MultiChoiceValue struct {
	Choices []string `json:"choices"`
}

type RatingValue float64

// FileValue is the metadata stored for a file answer. Size is in bytes,
// FilePath is set once the blob store has accepted the upload.
type FileValue struct {
	Size     int64  `json:"size"`
	MimeType string `json:"type"`
	FilePath string `json:"file_path,omitempty"`
}

func (TextValue) Type() Type        { return TypeText }
func (ChoiceValue) Type() Type      { return TypeSingleChoice }
func (MultiChoiceValue) Type() Type { return TypeMultipleChoice }
func (RatingValue) Type() Type      { return TypeRating }
func (FileValue) Type() Type        { return TypeFile }

func (TextValue) sealedValue()        {}
func (ChoiceValue) sealedValue()      {}
func (MultiChoiceValue) sealedValue() {}
func (RatingValue) sealedValue()      {}
func (FileValue) sealedValue()        {}

// DecodeValue restores a stored answer value of question type t.
func DecodeValue(t Type, data []byte) (Value, error) {
	var (
		v   Value
		err error
	)
	switch t {
	case TypeText:
		var s TextValue
		err = json.Unmarshal(data, &s)
		v = s
	case TypeSingleChoice:
		var c ChoiceValue
		err = json.Unmarshal(data, &c)
		v = c
	case TypeMultipleChoice:
		var c MultiChoiceValue
		err = json.Unmarshal(data, &c)
		v = c
	case TypeRating:
		var r RatingValue
		err = json.Unmarshal(data, &r)
		v = r
	case TypeFile:
		var f FileValue
		err = json.Unmarshal(data, &f)
		v = f
	default:
		return nil, ErrUnknownType
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s value: %w", t, err)
	}
	return v, nil
}
