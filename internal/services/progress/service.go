package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

var ErrValidation = errors.New("progress: validation failed")

const (
	maxStage        = 500
	maxStarsPerRun  = 3
	rewardFloor     = 10
	baseRewardCap   = 250
	fastRunBonusMS  = 60_000
	quickRunBonusMS = 120_000
)

type ProgressStore interface {
	UpsertStage(ctx context.Context, userID string, stage int, timeMS int64, deaths, stars int, completed bool) (pgrepo.ProgressRecord, bool, error)
	ListByUser(ctx context.Context, userID string) ([]pgrepo.ProgressRecord, error)
}

type RewardGranter interface {
	Grant(ctx context.Context, userID string, amount int64, reason string) (pgrepo.WalletRecord, error)
}

type Service struct {
	store   ProgressStore
	rewards RewardGranter
	logger  *zap.Logger
}

type SubmitResult struct {
	Record     pgrepo.ProgressRecord
	IsBestTime bool
	RewardSC   int64
	NewBalance int64
}

func NewService(store ProgressStore, rewards RewardGranter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, rewards: rewards, logger: logger}
}

// SubmitStage records a stage run and pays the Skycrown reward for completed
// runs. An incomplete run still updates the progress row but earns nothing.
func (s *Service) SubmitStage(ctx context.Context, userID string, stage int, timeMS int64, deaths, stars int, completed bool) (SubmitResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SubmitResult{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if stage <= 0 || stage > maxStage {
		return SubmitResult{}, fmt.Errorf("%w: stage must be between 1 and %d", ErrValidation, maxStage)
	}
	if timeMS < 0 || deaths < 0 {
		return SubmitResult{}, fmt.Errorf("%w: time and deaths must be non-negative", ErrValidation)
	}
	if stars < 0 || stars > maxStarsPerRun {
		return SubmitResult{}, fmt.Errorf("%w: stars must be between 0 and %d", ErrValidation, maxStarsPerRun)
	}

	record, isBest, err := s.store.UpsertStage(ctx, userID, stage, timeMS, deaths, stars, completed)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert stage: %w", err)
	}

	result := SubmitResult{Record: record, IsBestTime: isBest}

	if completed {
		reward := StageReward(stage, timeMS, deaths, stars)
		wallet, err := s.rewards.Grant(ctx, userID, reward, fmt.Sprintf("stage_%d", stage))
		if err != nil {
			return SubmitResult{}, fmt.Errorf("grant stage reward: %w", err)
		}
		result.RewardSC = reward
		result.NewBalance = wallet.SkyCrowns

		s.logger.Info("stage completed",
			zap.String("user_id", userID),
			zap.Int("stage", stage),
			zap.Int64("time_ms", timeMS),
			zap.Bool("best_time", isBest),
			zap.Int64("reward_sc", reward),
		)
	}

	return result, nil
}

func (s *Service) GetProgress(ctx context.Context, userID string) ([]pgrepo.ProgressRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.store.ListByUser(ctx, userID)
}

// StageReward computes the Skycrown payout for a completed run. The base
// scales with stage depth up to a cap, fast clears and stars pay extra, and
// deaths eat into the total down to a floor.
func StageReward(stage int, timeMS int64, deaths, stars int) int64 {
	base := 50 + float64(stage)*1.3
	if base > baseRewardCap {
		base = baseRewardCap
	}

	reward := int64(base)
	switch {
	case timeMS < fastRunBonusMS:
		reward += 50
	case timeMS < quickRunBonusMS:
		reward += 25
	}
	reward += int64(stars) * 20
	reward -= int64(deaths) * 10

	if reward < rewardFloor {
		reward = rewardFloor
	}
	return reward
}
