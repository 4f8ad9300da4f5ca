package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/common/resilience"
)

type flakyCache struct {
	getErr error
	delay  time.Duration
	inner  map[string]Descriptor
}

func (f *flakyCache) Set(_ context.Context, subjectID string, d Descriptor) error {
	if f.inner == nil {
		f.inner = make(map[string]Descriptor)
	}
	f.inner[subjectID] = d
	return nil
}

func (f *flakyCache) Get(ctx context.Context, subjectID string) (Descriptor, bool, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Descriptor{}, false, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.getErr != nil {
		return Descriptor{}, false, f.getErr
	}
	d, ok := f.inner[subjectID]
	return d, ok, nil
}

func (f *flakyCache) Delete(_ context.Context, subjectID string) error {
	delete(f.inner, subjectID)
	return nil
}

func setupGuardedCache(t *testing.T, inner Cache) *GuardedCache {
	t.Helper()
	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  3,
		Timeout:    50 * time.Millisecond,
		ResetAfter: time.Second,
		Logger:     log,
	})
	return NewGuardedCache(inner, breaker, log)
}

func TestGuardedCache_PassThrough(t *testing.T) {
	inner := &flakyCache{}
	guarded := setupGuardedCache(t, inner)
	ctx := context.Background()

	if err := guarded.Set(ctx, "u1", Descriptor{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, found, err := guarded.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || d.Email != "u1@example.com" {
		t.Errorf("expected hit with descriptor, got found=%v d=%+v", found, d)
	}
}

func TestGuardedCache_ErrorDegradesToMiss(t *testing.T) {
	inner := &flakyCache{getErr: errors.New("connection reset")}
	guarded := setupGuardedCache(t, inner)

	_, found, err := guarded.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected degraded miss, got error: %v", err)
	}
	if found {
		t.Error("expected miss when the backing cache fails")
	}
}

func TestGuardedCache_TimeoutDegradesToMiss(t *testing.T) {
	inner := &flakyCache{delay: 500 * time.Millisecond}
	inner.inner = map[string]Descriptor{"u1": {ID: "u1"}}
	guarded := setupGuardedCache(t, inner)

	start := time.Now()
	_, found, err := guarded.Get(context.Background(), "u1")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected degraded miss, got error: %v", err)
	}
	if found {
		t.Error("expected miss when the backing cache is too slow")
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("expected lookup to be bounded, took %v", elapsed)
	}
}
