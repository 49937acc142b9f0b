package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
	redisrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/redis"
)

var ErrValidation = errors.New("leaderboard: validation failed")

const cacheTTL = 30 * time.Second

// Mode selects the global ranking dimension.
type Mode string

const (
	ModeFastestTotal Mode = "fastest_total"
	ModeHighestStage Mode = "highest_stage"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeFastestTotal, "":
		return ModeFastestTotal, nil
	case ModeHighestStage:
		return ModeHighestStage, nil
	default:
		return "", fmt.Errorf("%w: unknown leaderboard mode %q", ErrValidation, raw)
	}
}

type RankingStore interface {
	FastestTotal(ctx context.Context, country string, limit, offset int) ([]pgrepo.LeaderboardRow, error)
	HighestStage(ctx context.Context, country string, limit, offset int) ([]pgrepo.LeaderboardRow, error)
	StageFastest(ctx context.Context, stage int, country string, limit, offset int) ([]pgrepo.LeaderboardRow, error)
	FastestTotalRank(ctx context.Context, userID string) (int64, int64, error)
	HighestStageRank(ctx context.Context, userID string) (int64, int64, error)
}

type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type Entry struct {
	Rank        int64  `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
	Score       int64  `json:"score"`
	Stage       *int   `json:"stage,omitempty"`
}

type UserRank struct {
	UserID string `json:"user_id"`
	Mode   Mode   `json:"mode"`
	Rank   int64  `json:"rank"`
	Score  int64  `json:"score"`
}

type Service struct {
	store  RankingStore
	cache  PageCache
	logger *zap.Logger
}

func NewService(store RankingStore, cache PageCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Global returns a ranked page for the requested mode, optionally filtered by
// country. Pages come from the redis cache when fresh.
func (s *Service) Global(ctx context.Context, mode Mode, country string, limit, offset int) ([]Entry, error) {
	key := fmt.Sprintf("global:%s:%s:%d:%d", mode, strings.ToUpper(strings.TrimSpace(country)), limit, offset)
	if entries, ok := s.cachedPage(ctx, key); ok {
		return entries, nil
	}

	var (
		rows []pgrepo.LeaderboardRow
		err  error
	)
	switch mode {
	case ModeHighestStage:
		rows, err = s.store.HighestStage(ctx, country, limit, offset)
	case ModeFastestTotal:
		rows, err = s.store.FastestTotal(ctx, country, limit, offset)
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard mode %q", ErrValidation, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}

	entries := toEntries(rows, offset)
	s.storePage(ctx, key, entries)
	return entries, nil
}

// Stage returns the fastest completed runs for one stage.
func (s *Service) Stage(ctx context.Context, stage int, country string, limit, offset int) ([]Entry, error) {
	if stage <= 0 {
		return nil, fmt.Errorf("%w: stage must be positive", ErrValidation)
	}

	key := fmt.Sprintf("stage:%d:%s:%d:%d", stage, strings.ToUpper(strings.TrimSpace(country)), limit, offset)
	if entries, ok := s.cachedPage(ctx, key); ok {
		return entries, nil
	}

	rows, err := s.store.StageFastest(ctx, stage, country, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query stage leaderboard: %w", err)
	}

	entries := toEntries(rows, offset)
	s.storePage(ctx, key, entries)
	return entries, nil
}

// Rank returns one user's position in the requested mode. Never cached;
// players poll this right after finishing a stage.
func (s *Service) Rank(ctx context.Context, userID string, mode Mode) (UserRank, error) {
	if strings.TrimSpace(userID) == "" {
		return UserRank{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	var (
		rank  int64
		score int64
		err   error
	)
	switch mode {
	case ModeHighestStage:
		rank, score, err = s.store.HighestStageRank(ctx, userID)
	case ModeFastestTotal:
		rank, score, err = s.store.FastestTotalRank(ctx, userID)
	default:
		return UserRank{}, fmt.Errorf("%w: unknown leaderboard mode %q", ErrValidation, mode)
	}
	if err != nil {
		return UserRank{}, fmt.Errorf("query user rank: %w", err)
	}

	return UserRank{UserID: userID, Mode: mode, Rank: rank, Score: score}, nil
}

func (s *Service) cachedPage(ctx context.Context, key string) ([]Entry, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisrepo.ErrCacheMiss) {
			s.logger.Warn("leaderboard cache read", zap.Error(err))
		}
		return nil, false
	}

	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		s.logger.Warn("leaderboard cache decode", zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *Service) storePage(ctx context.Context, key string, entries []Entry) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("leaderboard cache encode", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload, cacheTTL); err != nil {
		s.logger.Warn("leaderboard cache write", zap.Error(err))
	}
}

func toEntries(rows []pgrepo.LeaderboardRow, offset int) []Entry {
	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, Entry{
			Rank:        int64(offset + i + 1),
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			CountryCode: row.CountryCode,
			Score:       row.Score,
			Stage:       row.Stage,
		})
	}
	return entries
}
