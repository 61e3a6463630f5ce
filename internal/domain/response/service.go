package response

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"survey-insights/internal/domain/question"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/retry"
)

const (
	cleanupAttempts = 3
	cleanupDelay    = 100 * time.Millisecond
)

type Service struct {
	repo    Repository
	surveys SurveyReader
	blobs   BlobStore
	locks   Locker
	log     *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, surveys SurveyReader, blobs BlobStore, locks Locker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, surveys: surveys, blobs: blobs, locks: locks, log: log, now: time.Now}
}

// Submit validates and stores a complete response. File uploads are written
// before the database commit and removed again if anything after them fails.
func (s *Service) Submit(ctx context.Context, c survey.Caller, surveyID int64, in SubmitInput) (*Response, error) {
	sv, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !sv.Accepts(c) {
		return nil, ErrNotEligible
	}

	now := s.now()
	draft, err := Assemble(ctx, s.surveys, *sv, in.Answers, now)
	if err != nil {
		s.log.Debug("response rejected", zap.Int64("survey_id", surveyID), zap.Error(err))
		return nil, err
	}

	resp := &Response{
		ID:                uuid.New(),
		SurveyID:          sv.ID,
		SubmittedAt:       now,
		CompletionSeconds: in.CompletionSeconds,
		Answers:           make([]Answer, 0, len(draft.Answers)),
	}
	if c.Authenticated {
		id := c.UserID
		resp.RespondentID = &id
	}

	var staged []string
	for _, da := range draft.Answers {
		v := da.Value
		if da.Upload != nil {
			path := BlobPath(sv.ID, resp.ID, da.Question.ID, da.Upload.Extension)
			if err := s.blobs.Save(ctx, path, da.Upload.Data, da.Upload.MimeType); err != nil {
				s.removeBlobs(ctx, staged...)
				return nil, fmt.Errorf("%w: save %s: %w", ErrStorage, path, err)
			}
			staged = append(staged, path)
			fv := v.(question.FileValue)
			fv.FilePath = path
			v = fv
		}
		resp.Answers = append(resp.Answers, Answer{
			ResponseID: resp.ID,
			QuestionID: da.Question.ID,
			Type:       da.Question.Type,
			Value:      v,
		})
	}

	if err := s.repo.Create(ctx, resp); err != nil {
		s.removeBlobs(ctx, staged...)
		if errors.Is(err, ErrDuplicateAnswer) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.log.Info("response submitted",
		zap.Int64("survey_id", sv.ID),
		zap.String("response_id", resp.ID.String()),
		zap.Int("answers", len(resp.Answers)),
		zap.Int("files", len(staged)),
	)
	return resp, nil
}

// removeBlobs deletes paths on a best-effort basis. It keeps going after the
// request context ends so a canceled request does not leave orphans behind.
func (s *Service) removeBlobs(ctx context.Context, paths ...string) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		err := retry.DoWithRetry(ctx, cleanupAttempts, cleanupDelay, func(ctx context.Context) error {
			return s.blobs.Delete(ctx, p)
		})
		if err != nil {
			s.log.Warn("orphaned blob", zap.String("path", p), zap.Error(err))
		}
	}
}

// Get returns a response to the survey creator or to its respondent.
func (s *Service) Get(ctx context.Context, c survey.Caller, id uuid.UUID) (*Response, error) {
	resp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if resp.RespondedBy(c) {
		return resp, nil
	}
	sv, err := s.surveys.GetByID(ctx, resp.SurveyID)
	if err != nil {
		return nil, err
	}
	if !c.Owns(*sv) {
		return nil, ErrForbidden
	}
	return resp, nil
}

// mutable loads a response its respondent may still change.
func (s *Service) mutable(ctx context.Context, c survey.Caller, id uuid.UUID) (*Response, *survey.Survey, error) {
	resp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !resp.RespondedBy(c) {
		return nil, nil, ErrForbidden
	}
	sv, err := s.surveys.GetByID(ctx, resp.SurveyID)
	if err != nil {
		return nil, nil, err
	}
	if sv.IsClosed(s.now()) {
		return nil, nil, survey.ErrSurveyClosed
	}
	return resp, sv, nil
}

// UpdateAnswer replaces the value of an existing answer. For file answers the
// new file is written first and the old one is only removed after the commit.
func (s *Service) UpdateAnswer(ctx context.Context, c survey.Caller, answerID int64, in AnswerInput) (*Answer, error) {
	a, err := s.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, err
	}
	resp, sv, err := s.mutable(ctx, c, a.ResponseID)
	if err != nil {
		return nil, err
	}
	q, ok := sv.Question(a.QuestionID)
	if !ok {
		return nil, survey.ErrQuestionNotFound
	}

	v, up, err := question.ValidateAnswer(q, in.Value, in.File)
	if err != nil {
		return nil, &AnswerError{QuestionID: q.ID, Err: err}
	}
	if v == nil {
		return nil, &AnswerError{QuestionID: q.ID, Err: &question.FieldError{
			Err: question.ErrAnswerFormat, Field: "value", Message: "value must not be empty",
		}}
	}

	if up == nil {
		a.Value = v
		if err := s.repo.UpdateAnswer(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	oldPath := a.FilePath()
	newPath := BlobPath(sv.ID, resp.ID, q.ID, up.Extension)
	unlock := s.locks.Lock(oldPath, newPath)
	defer unlock()

	if err := s.blobs.Save(ctx, newPath, up.Data, up.MimeType); err != nil {
		return nil, fmt.Errorf("%w: save %s: %w", ErrStorage, newPath, err)
	}
	fv := v.(question.FileValue)
	fv.FilePath = newPath
	a.Value = fv

	if err := s.repo.UpdateAnswer(ctx, a); err != nil {
		if newPath != oldPath {
			s.removeBlobs(ctx, newPath)
		}
		return nil, err
	}
	if oldPath != "" && oldPath != newPath {
		s.removeBlobs(ctx, oldPath)
	}
	s.log.Info("file answer replaced", zap.Int64("answer_id", a.ID), zap.String("path", newPath))
	return a, nil
}

// Delete removes a response and then the files of its answers.
func (s *Service) Delete(ctx context.Context, c survey.Caller, id uuid.UUID) error {
	resp, _, err := s.mutable(ctx, c, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	var paths []string
	for _, a := range resp.Answers {
		if p := a.FilePath(); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) > 0 {
		unlock := s.locks.Lock(paths...)
		s.removeBlobs(ctx, paths...)
		unlock()
	}
	s.log.Info("response deleted", zap.String("response_id", id.String()), zap.Int("files", len(paths)))
	return nil
}

// ReadFile streams the file of a file answer to fn while holding the path lock,
// so a concurrent replacement cannot swap the file out mid-read.
func (s *Service) ReadFile(ctx context.Context, c survey.Caller, answerID int64, fn func(question.FileValue, io.Reader) error) error {
	a, err := s.repo.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, c, a.ResponseID); err != nil {
		return err
	}
	fv, ok := a.Value.(question.FileValue)
	if !ok || fv.FilePath == "" {
		return ErrAnswerNotFound
	}

	unlock := s.locks.Lock(fv.FilePath)
	defer unlock()
	rc, err := s.blobs.Open(ctx, fv.FilePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStorage, fv.FilePath, err)
	}
	defer rc.Close()
	return fn(fv, rc)
}
