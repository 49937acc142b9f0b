package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type CreditBucket string

const (
	CreditBucketEarned    CreditBucket = "earned"
	CreditBucketPurchased CreditBucket = "purchased"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

type WalletRecord struct {
	UserID            string
	SkyCrowns         int64
	LifetimeEarned    int64
	LifetimePurchased int64
	UpdatedAt         time.Time
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *WalletRepo) Get(ctx context.Context, userID string) (WalletRecord, error) {
	if r.pool == nil {
		return WalletRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return WalletRecord{}, fmt.Errorf("invalid user id")
	}

	record, err := scanWallet(r.pool.QueryRow(ctx, `
SELECT user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at
FROM wallets
WHERE user_id = $1
LIMIT 1
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WalletRecord{}, ErrWalletNotFound
		}
		return WalletRecord{}, fmt.Errorf("get wallet: %w", err)
	}

	return record, nil
}

// CreateTx provisions a zero-balance wallet. It runs inside the same
// transaction as the user insert; wallets are never created lazily.
func (r *WalletRepo) CreateTx(ctx context.Context, tx pgx.Tx, userID string) (WalletRecord, error) {
	if tx == nil {
		return WalletRecord{}, fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(userID) == "" {
		return WalletRecord{}, fmt.Errorf("invalid user id")
	}

	record, err := scanWallet(tx.QueryRow(ctx, `
INSERT INTO wallets (user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at)
VALUES ($1, 0, 0, 0, NOW())
RETURNING user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at
`, userID))
	if err != nil {
		return WalletRecord{}, fmt.Errorf("create wallet: %w", err)
	}

	return record, nil
}

func (r *WalletRepo) Credit(ctx context.Context, userID string, amount int64, bucket CreditBucket) (WalletRecord, error) {
	if r.pool == nil {
		return WalletRecord{}, fmt.Errorf("postgres pool is nil")
	}
	return r.credit(ctx, r.pool, userID, amount, bucket)
}

func (r *WalletRepo) CreditTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, bucket CreditBucket) (WalletRecord, error) {
	if tx == nil {
		return WalletRecord{}, fmt.Errorf("transaction is required")
	}
	return r.credit(ctx, tx, userID, amount, bucket)
}

func (r *WalletRepo) credit(ctx context.Context, q rowQuerier, userID string, amount int64, bucket CreditBucket) (WalletRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return WalletRecord{}, fmt.Errorf("invalid user id")
	}
	if amount <= 0 {
		return WalletRecord{}, ErrInvalidAmount
	}

	// Single UPDATE keeps the balance and the lifetime counter in lockstep
	// under concurrent mutations of the same row.
	var query string
	switch bucket {
	case CreditBucketEarned:
		query = `
UPDATE wallets
SET
	sky_crowns = sky_crowns + $2,
	lifetime_earned = lifetime_earned + $2,
	updated_at = NOW()
WHERE user_id = $1
RETURNING user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at
`
	case CreditBucketPurchased:
		query = `
UPDATE wallets
SET
	sky_crowns = sky_crowns + $2,
	lifetime_purchased = lifetime_purchased + $2,
	updated_at = NOW()
WHERE user_id = $1
RETURNING user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at
`
	default:
		return WalletRecord{}, fmt.Errorf("unknown credit bucket %q", bucket)
	}

	record, err := scanWallet(q.QueryRow(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WalletRecord{}, ErrWalletNotFound
		}
		return WalletRecord{}, fmt.Errorf("credit wallet: %w", err)
	}

	return record, nil
}

func (r *WalletRepo) Debit(ctx context.Context, userID string, amount int64) (WalletRecord, error) {
	if r.pool == nil {
		return WalletRecord{}, fmt.Errorf("postgres pool is nil")
	}
	return r.debit(ctx, r.pool, userID, amount)
}

func (r *WalletRepo) DebitTx(ctx context.Context, tx pgx.Tx, userID string, amount int64) (WalletRecord, error) {
	if tx == nil {
		return WalletRecord{}, fmt.Errorf("transaction is required")
	}
	return r.debit(ctx, tx, userID, amount)
}

func (r *WalletRepo) debit(ctx context.Context, q rowQuerier, userID string, amount int64) (WalletRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return WalletRecord{}, fmt.Errorf("invalid user id")
	}
	if amount <= 0 {
		return WalletRecord{}, ErrInvalidAmount
	}

	// The balance guard lives in the WHERE clause: two racing debits can
	// never both pass it for funds that only cover one of them.
	record, err := scanWallet(q.QueryRow(ctx, `
UPDATE wallets
SET
	sky_crowns = sky_crowns - $2,
	updated_at = NOW()
WHERE user_id = $1
  AND sky_crowns >= $2
RETURNING user_id, sky_crowns, lifetime_earned, lifetime_purchased, updated_at
`, userID, amount))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return WalletRecord{}, fmt.Errorf("debit wallet: %w", err)
	}

	// No row updated: either the wallet is missing or the balance is short.
	var balance int64
	err = q.QueryRow(ctx, `
SELECT sky_crowns FROM wallets WHERE user_id = $1 LIMIT 1
`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WalletRecord{}, ErrWalletNotFound
		}
		return WalletRecord{}, fmt.Errorf("debit wallet lookup: %w", err)
	}

	return WalletRecord{}, ErrInsufficientFunds
}

func scanWallet(row pgx.Row) (WalletRecord, error) {
	var record WalletRecord
	if err := row.Scan(
		&record.UserID,
		&record.SkyCrowns,
		&record.LifetimeEarned,
		&record.LifetimePurchased,
		&record.UpdatedAt,
	); err != nil {
		return WalletRecord{}, err
	}
	return record, nil
}
