package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWithRetryRecovers(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithRetryStopsOnPermanent(t *testing.T) {
	boom := errors.New("gone")
	calls := 0
	err := DoWithRetry(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		return Permanent(boom)
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected one call and the permanent error, got %d calls and %v", calls, err)
	}
}

func TestDoWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DoWithRetry(ctx, 3, time.Millisecond, func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
