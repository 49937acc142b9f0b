package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const leaderboardCachePrefix = "leaderboard:"

// LeaderboardCacheRepo holds short-lived serialized leaderboard pages.
// The ranking queries aggregate over the whole progress table, so even a
// small TTL takes most of the read load off postgres.
type LeaderboardCacheRepo struct {
	client *goredis.Client
}

func NewLeaderboardCacheRepo(client *goredis.Client) *LeaderboardCacheRepo {
	return &LeaderboardCacheRepo{client: client}
}

func (r *LeaderboardCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, ErrCacheMiss
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("cache key is required")
	}

	payload, err := r.client.Get(ctx, leaderboardCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get leaderboard cache: %w", err)
	}

	return payload, nil
}

func (r *LeaderboardCacheRepo) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	if err := r.client.Set(ctx, leaderboardCachePrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set leaderboard cache: %w", err)
	}

	return nil
}
