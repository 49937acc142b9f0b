package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProgressRepo struct {
	pool *pgxpool.Pool
}

type ProgressRecord struct {
	UserID     string
	Stage      int
	BestTimeMS *int64
	Deaths     int
	Stars      int
	Completed  bool
	UpdatedAt  time.Time
}

func NewProgressRepo(pool *pgxpool.Pool) *ProgressRepo {
	return &ProgressRepo{pool: pool}
}

// UpsertStage merges a stage submission into the per-(user, stage) row:
// best time keeps the minimum, deaths the minimum, stars the maximum, and
// completed is sticky. Returns whether the submitted time set a new best.
func (r *ProgressRepo) UpsertStage(ctx context.Context, userID string, stage int, timeMS int64, deaths, stars int, completed bool) (ProgressRecord, bool, error) {
	if r.pool == nil {
		return ProgressRecord{}, false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" || stage <= 0 {
		return ProgressRecord{}, false, fmt.Errorf("invalid progress payload")
	}
	if timeMS < 0 || deaths < 0 || stars < 0 {
		return ProgressRecord{}, false, fmt.Errorf("invalid progress payload")
	}

	var (
		record   ProgressRecord
		prevBest *int64
	)
	err := r.pool.QueryRow(ctx, `
WITH previous AS (
	SELECT best_time_ms FROM progress WHERE user_id = $2 AND stage = $3
)
INSERT INTO progress (id, user_id, stage, best_time_ms, deaths, stars, completed, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (user_id, stage) DO UPDATE
SET
	best_time_ms = LEAST(COALESCE(progress.best_time_ms, EXCLUDED.best_time_ms), EXCLUDED.best_time_ms),
	deaths = LEAST(progress.deaths, EXCLUDED.deaths),
	stars = GREATEST(progress.stars, EXCLUDED.stars),
	completed = progress.completed OR EXCLUDED.completed,
	updated_at = NOW()
RETURNING
	user_id, stage, best_time_ms, deaths, stars, completed, updated_at,
	(SELECT best_time_ms FROM previous)
`, uuid.NewString(), userID, stage, timeMS, deaths, stars, completed).Scan(
		&record.UserID,
		&record.Stage,
		&record.BestTimeMS,
		&record.Deaths,
		&record.Stars,
		&record.Completed,
		&record.UpdatedAt,
		&prevBest,
	)
	if err != nil {
		return ProgressRecord{}, false, fmt.Errorf("upsert stage progress: %w", err)
	}

	isBestTime := prevBest == nil || timeMS < *prevBest
	return record, isBestTime, nil
}

func (r *ProgressRepo) ListByUser(ctx context.Context, userID string) ([]ProgressRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, stage, best_time_ms, deaths, stars, completed, updated_at
FROM progress
WHERE user_id = $1
ORDER BY stage ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var records []ProgressRecord
	for rows.Next() {
		var record ProgressRecord
		if err := rows.Scan(
			&record.UserID,
			&record.Stage,
			&record.BestTimeMS,
			&record.Deaths,
			&record.Stars,
			&record.Completed,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}

	return records, nil
}
