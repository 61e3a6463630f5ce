package survey

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"survey-insights/internal/domain/question"
)

var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSurveyClosed     = errors.New("survey is closed")
	ErrNotOwner         = errors.New("only the survey creator may do this")
	ErrNotVerified      = errors.New("a verified account is required")
	ErrNoQuestions      = errors.New("survey must have at least one question")
	ErrInvalidSurvey    = errors.New("invalid survey")
	ErrTypeImmutable    = errors.New("question type cannot be changed")
)

type CreateInput struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	ClosesAt        time.Time        `json:"closes_at"`
	AuthRequirement string           `json:"respondent_auth_requirement"`
	Questions       []question.Input `json:"questions"`
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func invalid(field, msg string) error {
	return &question.FieldError{Err: ErrInvalidSurvey, Field: field, Message: msg}
}

func (s *Service) Create(ctx context.Context, c Caller, in CreateInput) (*Survey, error) {
	if !c.Authenticated || !c.Verified {
		return nil, ErrNotVerified
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, invalid("title", "title is required")
	}
	if !in.ClosesAt.After(s.now()) {
		return nil, invalid("closes_at", "closes_at must be in the future")
	}
	auth, ok := ParseAuthRequirement(in.AuthRequirement)
	if !ok {
		return nil, invalid("respondent_auth_requirement", "must be one of NONE, QUICK, FULL")
	}
	if len(in.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	qs := make([]question.Question, 0, len(in.Questions))
	for i, qi := range in.Questions {
		q, err := qi.Build()
		if err != nil {
			return nil, indexed(i, err)
		}
		qs = append(qs, q)
	}

	sv := &Survey{
		Title:           in.Title,
		Description:     in.Description,
		CreatorID:       c.UserID,
		ClosesAt:        in.ClosesAt,
		IsActive:        true,
		AuthRequirement: auth,
		Questions:       qs,
	}
	if err := s.repo.Create(ctx, sv); err != nil {
		return nil, err
	}
	s.log.Info("survey created", zap.Int64("survey_id", sv.ID), zap.Int64("creator_id", c.UserID), zap.Int("questions", len(qs)))
	return sv, nil
}

// indexed points a question field error at its position in the request.
func indexed(i int, err error) error {
	var fe *question.FieldError
	if errors.As(err, &fe) {
		return &question.FieldError{Err: fe.Err, Field: fmt.Sprintf("questions[%d].%s", i, fe.Field), Message: fe.Message}
	}
	return err
}

// Get returns a survey with its questions. Inactive surveys are only visible to
// their creator.
func (s *Service) Get(ctx context.Context, c Caller, id int64) (*Survey, error) {
	sv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sv.IsActive && !c.Owns(*sv) {
		return nil, ErrSurveyNotFound
	}
	return sv, nil
}

// List returns the caller's own surveys when mine is set, otherwise the
// surveys still open for responses.
func (s *Service) List(ctx context.Context, c Caller, mine bool) ([]Survey, error) {
	if mine {
		if !c.Authenticated || !c.Verified {
			return nil, ErrNotVerified
		}
		return s.repo.List(ctx, ListFilter{CreatorID: &c.UserID})
	}
	now := s.now()
	return s.repo.List(ctx, ListFilter{OpenAt: &now})
}

func (s *Service) owned(ctx context.Context, c Caller, id int64) (*Survey, error) {
	sv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Owns(*sv) {
		return nil, ErrNotOwner
	}
	return sv, nil
}

func (s *Service) Update(ctx context.Context, c Caller, id int64, in UpdateInput) (*Survey, error) {
	sv, err := s.owned(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, invalid("title", "title is required")
		}
		sv.Title = *in.Title
	}
	if in.Description != nil {
		sv.Description = *in.Description
	}
	if in.ClosesAt != nil {
		sv.ClosesAt = *in.ClosesAt
	}
	if in.IsActive != nil {
		sv.IsActive = *in.IsActive
	}
	if in.AuthRequirement != nil {
		auth, ok := ParseAuthRequirement(*in.AuthRequirement)
		if !ok {
			return nil, invalid("respondent_auth_requirement", "must be one of NONE, QUICK, FULL")
		}
		sv.AuthRequirement = auth
	}
	if err := s.repo.Update(ctx, sv); err != nil {
		return nil, err
	}
	s.log.Info("survey updated", zap.Int64("survey_id", id), zap.Bool("closed", sv.IsClosed(s.now())))
	return sv, nil
}

func (s *Service) AddQuestion(ctx context.Context, c Caller, surveyID int64, in question.Input) (*question.Question, error) {
	if _, err := s.owned(ctx, c, surveyID); err != nil {
		return nil, err
	}
	q, err := in.Build()
	if err != nil {
		return nil, err
	}
	q.SurveyID = surveyID
	if err := s.repo.AddQuestion(ctx, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// UpdateQuestion applies a partial update. Settings keys in the patch replace
// the stored ones (null removes a key) and the merged result is validated again.
func (s *Service) UpdateQuestion(ctx context.Context, c Caller, questionID int64, in QuestionUpdate) (*question.Question, error) {
	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, c, q.SurveyID); err != nil {
		return nil, err
	}
	if in.Type != nil && question.Type(*in.Type) != q.Type {
		return nil, ErrTypeImmutable
	}
	if in.Text != nil {
		if strings.TrimSpace(*in.Text) == "" {
			return nil, &question.FieldError{Err: question.ErrSchema, Field: "question_text", Message: "question_text is required"}
		}
		q.Text = *in.Text
	}
	if in.Required != nil {
		q.Required = *in.Required
	}
	if in.Order != nil {
		q.Order = *in.Order
	}
	if in.Settings != nil {
		merged, err := question.SettingsMap(q.Settings)
		if err != nil {
			return nil, err
		}
		maps.Copy(merged, in.Settings)
		settings, err := question.ValidateSettings(q.Type, merged)
		if err != nil {
			return nil, err
		}
		q.Settings = settings
	}
	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}
