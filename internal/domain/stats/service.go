package stats

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"survey-insights/internal/domain/survey"
)

type ReportOptions struct {
	Period  string
	GroupBy string
}

// key identifies a report variant inside the per-survey cache namespace.
func (o ReportOptions) key() string {
	return fmt.Sprintf("report:period=%s:group_by=%s", o.Period, o.GroupBy)
}

type Service struct {
	repo  Repository
	cache Cache
	log   *zap.Logger
	now   func() time.Time
}

// NewService accepts a nil cache; reports are then computed on every call.
func NewService(repo Repository, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, cache: cache, log: log, now: time.Now}
}

// dataset loads a closed survey owned by the caller.
func (s *Service) dataset(ctx context.Context, c survey.Caller, surveyID int64) (*Dataset, error) {
	ds, err := s.repo.LoadDataset(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !c.Owns(ds.Survey) {
		return nil, ErrNotOwner
	}
	if !ds.Survey.IsClosed(s.now()) {
		return nil, ErrSurveyActive
	}
	return ds, nil
}

func (s *Service) Report(ctx context.Context, c survey.Caller, surveyID int64, opts ReportOptions) (*Report, error) {
	// The generation is read before the snapshot so an invalidation racing the
	// load leaves this report in an orphaned namespace.
	version, useCache := s.cacheVersion(ctx, surveyID)

	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return nil, err
	}

	periods := Periods
	if opts.Period != "" {
		if !slices.Contains(Periods, opts.Period) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, opts.Period)
		}
		periods = []string{opts.Period}
	}
	fields := GroupFields
	if opts.GroupBy != "" {
		if !slices.Contains(GroupFields, opts.GroupBy) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, opts.GroupBy)
		}
		fields = []string{opts.GroupBy}
	}

	key := opts.key()
	if useCache {
		cached, ok, err := s.cache.GetReport(ctx, surveyID, version, key)
		if err != nil {
			s.log.Warn("report cache read failed", zap.Int64("survey_id", surveyID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	r := &Report{
		SurveyID:       ds.Survey.ID,
		Title:          ds.Survey.Title,
		TotalResponses: len(ds.Responses),
		Patterns:       make(map[string]Pattern, len(fields)),
		Trends:         make(map[string]Trend, len(periods)),
		GeneratedAt:    s.now().UTC(),
	}
	if r.Questions, err = Summaries(ctx, ds); err != nil {
		return nil, err
	}
	if r.Correlations, err = CorrelateAll(ctx, ds); err != nil {
		return nil, err
	}
	for _, f := range fields {
		p, err := GroupBy(ctx, ds, f)
		if err != nil {
			return nil, err
		}
		r.Patterns[f] = p
	}
	for _, p := range periods {
		t, err := BuildTrend(ctx, ds, p)
		if err != nil {
			return nil, err
		}
		r.Trends[p] = t
	}

	if useCache {
		if err := s.cache.SetReport(ctx, surveyID, version, key, r); err != nil {
			s.log.Warn("report cache write failed", zap.Int64("survey_id", surveyID), zap.Error(err))
		}
	}
	s.log.Info("statistics report generated",
		zap.Int64("survey_id", surveyID),
		zap.Int("responses", r.TotalResponses),
		zap.String("variant", key),
	)
	return r, nil
}

// cacheVersion reports the survey's cache generation, or false when reports
// should bypass the cache.
func (s *Service) cacheVersion(ctx context.Context, surveyID int64) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	v, err := s.cache.Version(ctx, surveyID)
	if err != nil {
		s.log.Warn("report cache version unavailable", zap.Int64("survey_id", surveyID), zap.Error(err))
		return 0, false
	}
	return v, true
}

func (s *Service) Summaries(ctx context.Context, c survey.Caller, surveyID int64) ([]QuestionSummary, error) {
	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return nil, err
	}
	return Summaries(ctx, ds)
}

// Correlate relates two questions of the same survey.
func (s *Service) Correlate(ctx context.Context, c survey.Caller, surveyID, q1, q2 int64) (Correlation, error) {
	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return Correlation{}, err
	}
	a, ok := ds.Survey.Question(q1)
	if !ok {
		return Correlation{}, fmt.Errorf("%w: %d", survey.ErrQuestionNotFound, q1)
	}
	b, ok := ds.Survey.Question(q2)
	if !ok {
		return Correlation{}, fmt.Errorf("%w: %d", survey.ErrQuestionNotFound, q2)
	}
	return Correlate(a, b, ds.Responses), nil
}

func (s *Service) CorrelateAll(ctx context.Context, c survey.Caller, surveyID int64) (map[string]Correlation, error) {
	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return nil, err
	}
	return CorrelateAll(ctx, ds)
}

func (s *Service) GroupBy(ctx context.Context, c survey.Caller, surveyID int64, field string) (Pattern, error) {
	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return Pattern{}, err
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if !slices.Contains(GroupFields, field) {
		return Pattern{}, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	return GroupBy(ctx, ds, field)
}

func (s *Service) Trend(ctx context.Context, c survey.Caller, surveyID int64, period string) (Trend, error) {
	ds, err := s.dataset(ctx, c, surveyID)
	if err != nil {
		return Trend{}, err
	}
	period = strings.ToLower(strings.TrimSpace(period))
	if !slices.Contains(Periods, period) {
		return Trend{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return BuildTrend(ctx, ds, period)
}
