package question

import (
	"errors"
	"fmt"
)

var (
	ErrSchema         = errors.New("question settings violate schema")
	ErrAnswerFormat   = errors.New("answer value has wrong shape or range")
	ErrFileValidation = errors.New("file payload rejected")
	ErrUnknownType    = errors.New("unknown question type")
)

// FieldError is a rejection addressed to a single input field so a client can
// re-prompt exactly that input. Err is one of the sentinels above.
type FieldError struct {
	Err     error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func schemaErr(msg string, args ...any) error {
	return &FieldError{Err: ErrSchema, Field: "settings", Message: fmt.Sprintf(msg, args...)}
}

func formatErr(msg string, args ...any) error {
	return &FieldError{Err: ErrAnswerFormat, Field: "value", Message: fmt.Sprintf(msg, args...)}
}

func fileErr(msg string, args ...any) error {
	return &FieldError{Err: ErrFileValidation, Field: "file", Message: fmt.Sprintf(msg, args...)}
}
