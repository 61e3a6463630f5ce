package response

import (
	"context"
	"errors"
	"fmt"
	"time"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
)

// QuestionLookup resolves questions that are not part of the survey being
// answered, so foreign questions can be told apart from unknown ones.
type QuestionLookup interface {
	GetQuestion(ctx context.Context, id int64) (*question.Question, error)
}

// Draft is an accepted submission that has not been stored yet.
type Draft struct {
	Answers []DraftAnswer
}

type DraftAnswer struct {
	Question question.Question
	Value    question.Value
	Upload   *question.Upload
}

// Assemble validates a whole submission against sv. The checks run in a fixed
// order: closed survey, missing required questions, foreign questions,
// duplicates, then each answer. The first failing stage rejects everything.
// Optional questions left empty produce no draft answer.
func Assemble(ctx context.Context, lookup QuestionLookup, sv survey.Survey, inputs []AnswerInput, now time.Time) (*Draft, error) {
	if sv.IsClosed(now) {
		return nil, survey.ErrSurveyClosed
	}

	answered := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		answered[in.QuestionID] = true
	}
	var missing []int64
	for _, q := range sv.OrderedQuestions() {
		if q.Required && !answered[q.ID] {
			missing = append(missing, q.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingAnswersError{QuestionIDs: missing}
	}

	for _, in := range inputs {
		if _, ok := sv.Question(in.QuestionID); ok {
			continue
		}
		other, err := lookup.GetQuestion(ctx, in.QuestionID)
		if err != nil {
			if errors.Is(err, survey.ErrQuestionNotFound) {
				return nil, &AnswerError{QuestionID: in.QuestionID, Err: err}
			}
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if other.SurveyID != sv.ID {
			return nil, &AnswerError{QuestionID: in.QuestionID, Err: ErrCrossSurvey}
		}
	}

	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.QuestionID] {
			return nil, &AnswerError{QuestionID: in.QuestionID, Err: ErrDuplicateAnswer}
		}
		seen[in.QuestionID] = true
	}

	draft := &Draft{Answers: make([]DraftAnswer, 0, len(inputs))}
	for _, in := range inputs {
		q, ok := sv.Question(in.QuestionID)
		if !ok {
			return nil, &AnswerError{QuestionID: in.QuestionID, Err: survey.ErrQuestionNotFound}
		}
		v, up, err := question.ValidateAnswer(q, in.Value, in.File)
		if err != nil {
			return nil, &AnswerError{QuestionID: q.ID, Err: err}
		}
		if v == nil {
			continue
		}
		draft.Answers = append(draft.Answers, DraftAnswer{Question: q, Value: v, Upload: up})
	}
	return draft, nil
}
