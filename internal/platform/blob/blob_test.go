package blob

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

func TestLocalStoreLifecycle(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	path := "answers/survey_1/abc/question_2.pdf"

	if err := store.Save(ctx, path, []byte("v1"), "application/pdf"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, path, []byte("v2"), "application/pdf"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	ok, err := store.Exists(ctx, path)
	if err != nil || !ok {
		t.Fatalf("expected blob to exist: %v %v", ok, err)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "v2" {
		t.Fatalf("expected overwritten content, got %q", data)
	}

	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, path); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, p := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		if err := store.Save(context.Background(), p, []byte("x"), "text/plain"); err == nil {
			t.Fatalf("expected %q to be rejected", p)
		}
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	unlock := km.Lock("a", "b")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("b")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatalf("lock on b acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	other := km.Lock("c")
	other()

	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired the lock")
	}
}

func TestKeyedMutexForgetsIdleKeys(t *testing.T) {
	km := NewKeyedMutex()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("x", "", "x")()
		}()
	}
	wg.Wait()
	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Fatalf("expected no retained locks, got %d", len(km.locks))
	}
}
