package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID          string
	DisplayName string
	Gender      string
	CountryCode string
	PlatformIDs map[string]string
	Banned      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CreateTx inserts the user row. The caller provisions the wallet in the same
// transaction; a user without a wallet is a data-integrity violation.
func (r *UserRepo) CreateTx(ctx context.Context, tx pgx.Tx, displayName, gender, countryCode string, platformIDs map[string]string) (UserRecord, error) {
	if tx == nil {
		return UserRecord{}, fmt.Errorf("transaction is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return UserRecord{}, fmt.Errorf("display name is required")
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		countryCode = "US"
	}

	platformJSON, err := marshalPlatformIDs(platformIDs)
	if err != nil {
		return UserRecord{}, err
	}

	record, err := scanUser(tx.QueryRow(ctx, `
INSERT INTO users (id, display_name, gender, country_code, platform_ids, banned, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::jsonb, FALSE, NOW(), NOW())
RETURNING id, display_name, gender, country_code, platform_ids, banned, created_at, updated_at
`, uuid.NewString(), displayName, strings.TrimSpace(gender), countryCode, platformJSON))
	if err != nil {
		return UserRecord{}, fmt.Errorf("create user: %w", err)
	}

	return record, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}

	record, err := scanUser(r.pool.QueryRow(ctx, `
SELECT id, display_name, gender, country_code, platform_ids, banned, created_at, updated_at
FROM users
WHERE id = $1
LIMIT 1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by id: %w", err)
	}

	return record, nil
}

// FindByPlatformID resolves a user through the GIN-indexed jsonb containment
// lookup on platform_ids, never a table scan.
func (r *UserRepo) FindByPlatformID(ctx context.Context, platform, externalID string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	platform = strings.TrimSpace(platform)
	externalID = strings.TrimSpace(externalID)
	if platform == "" || externalID == "" {
		return UserRecord{}, fmt.Errorf("invalid platform id payload")
	}

	record, err := scanUser(r.pool.QueryRow(ctx, `
SELECT id, display_name, gender, country_code, platform_ids, banned, created_at, updated_at
FROM users
WHERE platform_ids @> jsonb_build_object($1::text, $2::text)
LIMIT 1
`, platform, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by platform id: %w", err)
	}

	return record, nil
}

func scanUser(row pgx.Row) (UserRecord, error) {
	var (
		record      UserRecord
		rawPlatform []byte
	)
	if err := row.Scan(
		&record.ID,
		&record.DisplayName,
		&record.Gender,
		&record.CountryCode,
		&rawPlatform,
		&record.Banned,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return UserRecord{}, err
	}
	record.PlatformIDs = decodePlatformIDs(rawPlatform)
	return record, nil
}

func marshalPlatformIDs(platformIDs map[string]string) (string, error) {
	if len(platformIDs) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(platformIDs)
	if err != nil {
		return "", fmt.Errorf("marshal platform ids: %w", err)
	}
	return string(raw), nil
}

func decodePlatformIDs(raw []byte) map[string]string {
	if len(raw) == 0 {
		return map[string]string{}
	}
	var ids map[string]string
	if err := json.Unmarshal(raw, &ids); err != nil || ids == nil {
		return map[string]string{}
	}
	return ids
}
