package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeaderboardRepo struct {
	pool *pgxpool.Pool
}

type LeaderboardRow struct {
	UserID      string
	DisplayName string
	CountryCode string
	Score       int64
	Stage       *int
}

func NewLeaderboardRepo(pool *pgxpool.Pool) *LeaderboardRepo {
	return &LeaderboardRepo{pool: pool}
}

// FastestTotal ranks users by the sum of their best times across completed
// stages, fastest first.
func (r *LeaderboardRepo) FastestTotal(ctx context.Context, country string, limit, offset int) ([]LeaderboardRow, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	limit, offset = clampPage(limit, offset)

	rows, err := r.pool.Query(ctx, `
SELECT p.user_id, u.display_name, u.country_code, SUM(p.best_time_ms) AS total_time
FROM progress p
JOIN users u ON u.id = p.user_id
WHERE p.completed = TRUE
  AND p.best_time_ms IS NOT NULL
  AND ($1 = '' OR u.country_code = $1)
GROUP BY p.user_id, u.display_name, u.country_code
ORDER BY total_time ASC
LIMIT $2 OFFSET $3
`, normalizeCountry(country), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query fastest total leaderboard: %w", err)
	}
	defer rows.Close()

	return collectLeaderboardRows(rows, false)
}

// HighestStage ranks users by the highest stage they have completed.
func (r *LeaderboardRepo) HighestStage(ctx context.Context, country string, limit, offset int) ([]LeaderboardRow, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	limit, offset = clampPage(limit, offset)

	rows, err := r.pool.Query(ctx, `
SELECT p.user_id, u.display_name, u.country_code, MAX(p.stage) AS max_stage
FROM progress p
JOIN users u ON u.id = p.user_id
WHERE p.completed = TRUE
  AND ($1 = '' OR u.country_code = $1)
GROUP BY p.user_id, u.display_name, u.country_code
ORDER BY max_stage DESC
LIMIT $2 OFFSET $3
`, normalizeCountry(country), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query highest stage leaderboard: %w", err)
	}
	defer rows.Close()

	return collectLeaderboardRows(rows, true)
}

// StageFastest lists the fastest completed times for a single stage.
func (r *LeaderboardRepo) StageFastest(ctx context.Context, stage int, country string, limit, offset int) ([]LeaderboardRow, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if stage <= 0 {
		return nil, fmt.Errorf("invalid stage number")
	}
	limit, offset = clampPage(limit, offset)

	rows, err := r.pool.Query(ctx, `
SELECT p.user_id, u.display_name, u.country_code, p.best_time_ms
FROM progress p
JOIN users u ON u.id = p.user_id
WHERE p.stage = $1
  AND p.completed = TRUE
  AND p.best_time_ms IS NOT NULL
  AND ($2 = '' OR u.country_code = $2)
ORDER BY p.best_time_ms ASC
LIMIT $3 OFFSET $4
`, stage, normalizeCountry(country), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query stage leaderboard: %w", err)
	}
	defer rows.Close()

	collected, err := collectLeaderboardRows(rows, false)
	if err != nil {
		return nil, err
	}
	for i := range collected {
		s := stage
		collected[i].Stage = &s
	}
	return collected, nil
}

// FastestTotalRank computes a single user's 1-based rank by total best time.
func (r *LeaderboardRepo) FastestTotalRank(ctx context.Context, userID string) (int64, int64, error) {
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return 0, 0, fmt.Errorf("invalid user id")
	}

	var score int64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(best_time_ms), 0)
FROM progress
WHERE user_id = $1
  AND completed = TRUE
`, userID).Scan(&score)
	if err != nil {
		return 0, 0, fmt.Errorf("query user total time: %w", err)
	}

	var better int64
	err = r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM (
	SELECT user_id
	FROM progress
	WHERE completed = TRUE
	GROUP BY user_id
	HAVING SUM(best_time_ms) < $1
) faster
`, score).Scan(&better)
	if err != nil {
		return 0, 0, fmt.Errorf("query faster users: %w", err)
	}

	return better + 1, score, nil
}

// HighestStageRank computes a single user's 1-based rank by highest completed stage.
func (r *LeaderboardRepo) HighestStageRank(ctx context.Context, userID string) (int64, int64, error) {
	if r.pool == nil {
		return 0, 0, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return 0, 0, fmt.Errorf("invalid user id")
	}

	var stage int64
	err := r.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(stage), 0)
FROM progress
WHERE user_id = $1
  AND completed = TRUE
`, userID).Scan(&stage)
	if err != nil {
		return 0, 0, fmt.Errorf("query user max stage: %w", err)
	}

	var better int64
	err = r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM (
	SELECT user_id
	FROM progress
	WHERE completed = TRUE
	GROUP BY user_id
	HAVING MAX(stage) > $1
) ahead
`, stage).Scan(&better)
	if err != nil {
		return 0, 0, fmt.Errorf("query users ahead: %w", err)
	}

	return better + 1, stage, nil
}

// InsertSnapshot persists a ranked leaderboard page for audit/history.
func (r *LeaderboardRepo) InsertSnapshot(ctx context.Context, mode, country string, entries []LeaderboardRow, at time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return fmt.Errorf("snapshot mode is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		for rank, entry := range entries {
			if _, err := tx.Exec(txCtx, `
INSERT INTO leaderboard_snapshot (id, mode, country_code, user_id, score_value, rank, snapshot_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, uuid.NewString(), mode, normalizeCountry(country), entry.UserID, entry.Score, rank+1, at.UTC()); err != nil {
				return fmt.Errorf("insert leaderboard snapshot row: %w", err)
			}
		}
		return nil
	})
}

func collectLeaderboardRows(rows pgx.Rows, scoreIsStage bool) ([]LeaderboardRow, error) {
	var collected []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.DisplayName, &row.CountryCode, &row.Score); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		if scoreIsStage {
			s := int(row.Score)
			row.Stage = &s
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return collected, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
