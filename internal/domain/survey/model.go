package survey

import (
	"context"
	"sort"
	"time"

	"survey-insights/internal/domain/question"
)

// AuthRequirement governs who may submit a response to a survey.
type AuthRequirement string

const (
	AuthNone  AuthRequirement = "NONE"
	AuthQuick AuthRequirement = "QUICK"
	AuthFull  AuthRequirement = "FULL"
)

func ParseAuthRequirement(s string) (AuthRequirement, bool) {
	switch AuthRequirement(s) {
	case "":
		return AuthNone, true
	case AuthNone, AuthQuick, AuthFull:
		return AuthRequirement(s), true
	}
	return "", false
}

type Survey struct {
	ID              int64               `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	CreatorID       int64               `json:"creator_id"`
	CreatedAt       time.Time           `json:"created_at"`
	ClosesAt        time.Time           `json:"closes_at"`
	IsActive        bool                `json:"is_active"`
	AuthRequirement AuthRequirement     `json:"respondent_auth_requirement"`
	Questions       []question.Question `json:"questions,omitempty"`
}

// IsClosed reports whether the survey stopped accepting responses at now.
func (s Survey) IsClosed(now time.Time) bool {
	return !now.Before(s.ClosesAt) || !s.IsActive
}

// Accepts reports whether c satisfies the survey's respondent requirement.
func (s Survey) Accepts(c Caller) bool {
	switch s.AuthRequirement {
	case AuthQuick:
		return c.Authenticated
	case AuthFull:
		return c.Authenticated && c.Verified
	}
	return true
}

func (s Survey) Question(id int64) (question.Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}

// OrderedQuestions returns the questions sorted by display order, then id.
func (s Survey) OrderedQuestions() []question.Question {
	out := append([]question.Question(nil), s.Questions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Caller is the identity behind a request. The zero value is an anonymous caller.
type Caller struct {
	UserID        int64
	Authenticated bool
	Verified      bool
}

func (c Caller) Owns(s Survey) bool {
	return c.Authenticated && c.UserID == s.CreatorID
}

type UpdateInput struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	ClosesAt        *time.Time `json:"closes_at"`
	IsActive        *bool      `json:"is_active"`
	AuthRequirement *string    `json:"respondent_auth_requirement"`
}

type QuestionUpdate struct {
	Text     *string        `json:"question_text"`
	Type     *string        `json:"question_type"`
	Required *bool          `json:"required"`
	Order    *int           `json:"order"`
	Settings map[string]any `json:"settings"`
}

type ListFilter struct {
	CreatorID *int64
	OpenAt    *time.Time
}

type Repository interface {
	Create(ctx context.Context, s *Survey) error
	GetByID(ctx context.Context, id int64) (*Survey, error)
	List(ctx context.Context, f ListFilter) ([]Survey, error)
	Update(ctx context.Context, s *Survey) error
	AddQuestion(ctx context.Context, q *question.Question) error
	GetQuestion(ctx context.Context, id int64) (*question.Question, error)
	UpdateQuestion(ctx context.Context, q *question.Question) error
}
