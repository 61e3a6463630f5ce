package response

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrResponseNotFound      = errors.New("response not found")
	ErrAnswerNotFound        = errors.New("answer not found")
	ErrRequiredAnswerMissing = errors.New("required questions were not answered")
	ErrCrossSurvey           = errors.New("question does not belong to this survey")
	ErrDuplicateAnswer       = errors.New("question answered more than once")
	ErrNotEligible           = errors.New("caller may not respond to this survey")
	ErrForbidden             = errors.New("caller may not access this response")
	ErrStorage               = errors.New("storage failure")
)

// MissingAnswersError lists every required question left unanswered.
type MissingAnswersError struct {
	QuestionIDs []int64
}

func (e *MissingAnswersError) Error() string {
	ids := make([]string, len(e.QuestionIDs))
	for i, id := range e.QuestionIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %s", ErrRequiredAnswerMissing, strings.Join(ids, ", "))
}

func (e *MissingAnswersError) Unwrap() error {
	return ErrRequiredAnswerMissing
}

// AnswerError ties a rejection to the question whose answer caused it.
type AnswerError struct {
	QuestionID int64
	Err        error
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %d: %v", e.QuestionID, e.Err)
}

func (e *AnswerError) Unwrap() error {
	return e.Err
}
