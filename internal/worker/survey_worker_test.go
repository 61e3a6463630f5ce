package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingInvalidator struct {
	mu   sync.Mutex
	ids  []int64
	fail bool
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, surveyID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, surveyID)
	if r.fail {
		return errors.New("redis down")
	}
	return nil
}

func (r *recordingInvalidator) seen() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

func TestPublishFallsBackWhenQueueFull(t *testing.T) {
	inv := &recordingInvalidator{}
	w := NewSurveyWorker(1, inv, nil)

	w.Publish(context.Background(), SurveyEvent{Kind: SurveyUpdated, SurveyID: 1})
	w.Publish(context.Background(), SurveyEvent{Kind: QuestionChanged, SurveyID: 2})

	if got := inv.seen(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected overflow event handled inline, got %v", got)
	}
}

func TestRunHandlesAndDrains(t *testing.T) {
	inv := &recordingInvalidator{fail: true}
	w := NewSurveyWorker(10, inv, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	w.Publish(ctx, SurveyEvent{Kind: ResponseSubmitted, SurveyID: 5})
	deadline := time.Now().Add(2 * time.Second)
	for len(inv.seen()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := inv.seen(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected survey 5 invalidated, got %v", got)
	}
}

func TestHandleWithoutCache(t *testing.T) {
	w := NewSurveyWorker(1, nil, nil)
	w.Handle(context.Background(), SurveyEvent{Kind: ResponseChanged, SurveyID: 1})
}
