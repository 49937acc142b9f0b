package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

const snapshotPageSize = 100

type rankingSource interface {
	FastestTotal(ctx context.Context, country string, limit, offset int) ([]pgrepo.LeaderboardRow, error)
	HighestStage(ctx context.Context, country string, limit, offset int) ([]pgrepo.LeaderboardRow, error)
}

type snapshotSink interface {
	InsertSnapshot(ctx context.Context, mode, country string, entries []pgrepo.LeaderboardRow, at time.Time) error
}

// Job periodically persists the top leaderboard pages so rankings have an
// auditable history even as the live progress table keeps moving.
type Job struct {
	source rankingSource
	sink   snapshotSink
	now    func() time.Time
	logger *zap.Logger
}

func NewLeaderboardSnapshotJob(repo *pgrepo.LeaderboardRepo, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		source: repo,
		sink:   repo,
		now:    time.Now,
		logger: logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.source == nil || j.sink == nil {
		return nil
	}

	at := j.now().UTC()

	fastest, err := j.source.FastestTotal(ctx, "", snapshotPageSize, 0)
	if err != nil {
		return fmt.Errorf("snapshot fastest total leaderboard: %w", err)
	}
	if len(fastest) > 0 {
		if err := j.sink.InsertSnapshot(ctx, "fastest_total", "", fastest, at); err != nil {
			return fmt.Errorf("persist fastest total snapshot: %w", err)
		}
	}

	highest, err := j.source.HighestStage(ctx, "", snapshotPageSize, 0)
	if err != nil {
		return fmt.Errorf("snapshot highest stage leaderboard: %w", err)
	}
	if len(highest) > 0 {
		if err := j.sink.InsertSnapshot(ctx, "highest_stage", "", highest, at); err != nil {
			return fmt.Errorf("persist highest stage snapshot: %w", err)
		}
	}

	if len(fastest) > 0 || len(highest) > 0 {
		j.logger.Info("leaderboard snapshot completed",
			zap.Int("fastest_total_rows", len(fastest)),
			zap.Int("highest_stage_rows", len(highest)),
		)
	}

	return nil
}
