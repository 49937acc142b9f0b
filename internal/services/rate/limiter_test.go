package rate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type windowStoreStub struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
}

func (s *windowStoreStub) IncrementWindow(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], s.ttl, nil
}

func TestAllowStageSubmitWithinLimit(t *testing.T) {
	limiter := NewLimiter(&windowStoreStub{ttl: 30 * time.Second}, 3, 0)

	for i := 0; i < 3; i++ {
		_, ok, err := limiter.AllowStageSubmit(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("AllowStageSubmit: %v", err)
		}
		if !ok {
			t.Fatalf("submission %d blocked within limit", i+1)
		}
	}

	retryAfter, ok, err := limiter.AllowStageSubmit(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("AllowStageSubmit: %v", err)
	}
	if ok {
		t.Fatalf("fourth submission allowed over limit")
	}
	if retryAfter != 30 {
		t.Fatalf("unexpected retry_after %d", retryAfter)
	}
}

func TestLimitsAreIndependentPerUser(t *testing.T) {
	limiter := NewLimiter(&windowStoreStub{ttl: time.Minute}, 1, 0)

	if _, ok, _ := limiter.AllowStageSubmit(context.Background(), "user-1"); !ok {
		t.Fatalf("first user blocked")
	}
	if _, ok, _ := limiter.AllowStageSubmit(context.Background(), "user-2"); !ok {
		t.Fatalf("second user blocked by first user's counter")
	}
}

func TestZeroLimitDisablesThrottling(t *testing.T) {
	limiter := NewLimiter(&windowStoreStub{}, 0, 0)

	for i := 0; i < 50; i++ {
		if _, ok, err := limiter.AllowStageSubmit(context.Background(), "user-1"); err != nil || !ok {
			t.Fatalf("request blocked with throttling disabled")
		}
	}
}

func TestStoreFailureFailsOpen(t *testing.T) {
	limiter := NewLimiter(&windowStoreStub{err: errors.New("redis unavailable")}, 1, 1)

	_, ok, err := limiter.AllowPurchase(context.Background(), "user-1")
	if err == nil {
		t.Fatalf("expected store error to surface")
	}
	if !ok {
		t.Fatalf("store failure must not block the request")
	}
}
