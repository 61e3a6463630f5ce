package response

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
)

type Response struct {
	ID                uuid.UUID `json:"id"`
	SurveyID          int64     `json:"survey_id"`
	RespondentID      *int64    `json:"respondent_id"`
	SubmittedAt       time.Time `json:"submitted_at"`
	CompletionSeconds *float64  `json:"completion_time,omitempty"`
	Answers           []Answer  `json:"answers"`
}

func (r Response) RespondedBy(c survey.Caller) bool {
	return c.Authenticated && r.RespondentID != nil && *r.RespondentID == c.UserID
}

type Answer struct {
	ID         int64          `json:"id"`
	ResponseID uuid.UUID      `json:"response_id"`
	QuestionID int64          `json:"question_id"`
	Type       question.Type  `json:"question_type"`
	Value      question.Value `json:"value"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FilePath returns the blob path recorded on a file answer, if any.
func (a Answer) FilePath() string {
	if fv, ok := a.Value.(question.FileValue); ok {
		return fv.FilePath
	}
	return ""
}

type AnswerInput struct {
	QuestionID int64           `json:"question_id"`
	Value      json.RawMessage `json:"value"`
	File       string          `json:"file,omitempty"`
}

type SubmitInput struct {
	Answers           []AnswerInput `json:"answers"`
	CompletionSeconds *float64      `json:"completion_time,omitempty"`
}

// BlobPath is the deterministic location of a file answer.
func BlobPath(surveyID int64, responseID uuid.UUID, questionID int64, ext string) string {
	return fmt.Sprintf("answers/survey_%d/%s/question_%d.%s", surveyID, responseID, questionID, ext)
}

type Repository interface {
	// Create stores the response and all of its answers in one transaction.
	Create(ctx context.Context, r *Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*Response, error)
	GetAnswer(ctx context.Context, id int64) (*Answer, error)
	UpdateAnswer(ctx context.Context, a *Answer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SurveyReader interface {
	GetByID(ctx context.Context, id int64) (*survey.Survey, error)
	GetQuestion(ctx context.Context, id int64) (*question.Question, error)
}

type BlobStore interface {
	Save(ctx context.Context, path string, data []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Locker serializes access to a blob path. Lock blocks until the path is free
// and returns the matching unlock function.
type Locker interface {
	Lock(keys ...string) (unlock func())
}
