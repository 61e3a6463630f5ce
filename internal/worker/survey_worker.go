package worker

import (
	"context"

	"go.uber.org/zap"

	"survey-insights/internal/metrics"
)

type EventKind string

const (
	SurveyUpdated     EventKind = "survey_updated"
	QuestionChanged   EventKind = "question_changed"
	ResponseSubmitted EventKind = "response_submitted"
	ResponseChanged   EventKind = "response_changed"
)

type SurveyEvent struct {
	Kind     EventKind
	SurveyID int64
}

// Invalidator drops derived data of a survey, such as cached reports.
type Invalidator interface {
	Invalidate(ctx context.Context, surveyID int64) error
}

// SurveyWorker applies the side effects of survey changes off the request path.
type SurveyWorker struct {
	ch    chan SurveyEvent
	cache Invalidator
	log   *zap.Logger
}

func NewSurveyWorker(buffer int, cache Invalidator, log *zap.Logger) *SurveyWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &SurveyWorker{ch: make(chan SurveyEvent, buffer), cache: cache, log: log}
}

// Publish queues ev. When the queue is full the event is handled inline so
// invalidations are never dropped.
func (w *SurveyWorker) Publish(ctx context.Context, ev SurveyEvent) {
	select {
	case w.ch <- ev:
	default:
		w.Handle(ctx, ev)
	}
}

func (w *SurveyWorker) Run(ctx context.Context) {
	w.log.Info("survey worker started")
	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.log.Info("survey worker stopped")
			return
		case ev := <-w.ch:
			w.Handle(ctx, ev)
		}
	}
}

// drain handles what is still queued at shutdown.
func (w *SurveyWorker) drain() {
	ctx := context.Background()
	for {
		select {
		case ev := <-w.ch:
			w.Handle(ctx, ev)
		default:
			return
		}
	}
}

func (w *SurveyWorker) Handle(ctx context.Context, ev SurveyEvent) {
	metrics.IncEvent(string(ev.Kind))
	if ev.Kind == ResponseSubmitted {
		metrics.IncSubmitted()
	}
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(context.WithoutCancel(ctx), ev.SurveyID); err != nil {
		w.log.Warn("report cache invalidation failed",
			zap.Int64("survey_id", ev.SurveyID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
