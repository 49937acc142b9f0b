package rate

import (
	"context"
	"fmt"
	"time"
)

const (
	submitWindow   = time.Minute
	purchaseWindow = time.Minute
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter throttles the two endpoints a cheating client hammers: stage
// submissions (reward farming) and purchase attempts (receipt probing).
type Limiter struct {
	store              WindowStore
	submitsPerMinute   int
	purchasesPerMinute int
}

func NewLimiter(store WindowStore, submitsPerMinute, purchasesPerMinute int) *Limiter {
	if submitsPerMinute < 0 {
		submitsPerMinute = 0
	}
	if purchasesPerMinute < 0 {
		purchasesPerMinute = 0
	}

	return &Limiter{
		store:              store,
		submitsPerMinute:   submitsPerMinute,
		purchasesPerMinute: purchasesPerMinute,
	}
}

// AllowStageSubmit reports whether the user may submit another stage run.
// A zero limit disables the check. Store failures allow the request through;
// throttling is protection, not a correctness gate.
func (l *Limiter) AllowStageSubmit(ctx context.Context, userID string) (int64, bool, error) {
	return l.allow(ctx, "rate:submit:"+userID, submitWindow, l.submitsPerMinute)
}

// AllowPurchase reports whether the user may attempt another purchase.
func (l *Limiter) AllowPurchase(ctx context.Context, userID string) (int64, bool, error) {
	return l.allow(ctx, "rate:purchase:"+userID, purchaseWindow, l.purchasesPerMinute)
}

func (l *Limiter) allow(ctx context.Context, key string, window time.Duration, limit int) (int64, bool, error) {
	if limit <= 0 {
		return 0, true, nil
	}
	if l == nil || l.store == nil {
		return 0, true, nil
	}

	count, ttl, err := l.store.IncrementWindow(ctx, key, window)
	if err != nil {
		return 0, true, fmt.Errorf("increment rate window: %w", err)
	}
	if count > int64(limit) {
		return ceilSeconds(ttl), false, nil
	}

	return 0, true, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
