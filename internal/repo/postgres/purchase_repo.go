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

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

type PurchaseRecord struct {
	ID          string
	UserID      string
	Provider    enums.PaymentProvider
	ReceiptID   string
	Status      enums.PurchaseStatus
	AmountCents *int
	SCGranted   int64
	CreatedAt   time.Time
	VerifiedAt  *time.Time
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// InsertVerifiedTx persists an accepted purchase. It runs in the same
// transaction as the wallet credit so a crash never records a grant that was
// not paid out, or vice versa.
func (r *PurchaseRepo) InsertVerifiedTx(
	ctx context.Context,
	tx pgx.Tx,
	userID string,
	provider enums.PaymentProvider,
	receiptID string,
	amountCents *int,
	scGranted int64,
	verifiedAt time.Time,
) (PurchaseRecord, error) {
	if tx == nil {
		return PurchaseRecord{}, fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(receiptID) == "" {
		return PurchaseRecord{}, fmt.Errorf("invalid purchase payload")
	}
	if scGranted < 0 {
		return PurchaseRecord{}, fmt.Errorf("invalid sc granted amount")
	}
	if verifiedAt.IsZero() {
		verifiedAt = time.Now().UTC()
	}

	record, err := scanPurchase(tx.QueryRow(ctx, `
INSERT INTO purchases_iap (
	id,
	user_id,
	provider,
	receipt_id,
	status,
	amount_cents,
	sc_granted,
	created_at,
	verified_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
RETURNING id, user_id, provider, receipt_id, status, amount_cents, sc_granted, created_at, verified_at
`, uuid.NewString(), userID, string(provider), receiptID, string(enums.PurchaseStatusVerified), amountCents, scGranted, verifiedAt.UTC()))
	if err != nil {
		return PurchaseRecord{}, fmt.Errorf("insert verified purchase: %w", err)
	}

	return record, nil
}

func (r *PurchaseRepo) FindByReceiptID(ctx context.Context, receiptID string) (PurchaseRecord, error) {
	if r.pool == nil {
		return PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return PurchaseRecord{}, fmt.Errorf("receipt id is required")
	}

	record, err := scanPurchase(r.pool.QueryRow(ctx, `
SELECT id, user_id, provider, receipt_id, status, amount_cents, sc_granted, created_at, verified_at
FROM purchases_iap
WHERE receipt_id = $1
LIMIT 1
`, receiptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRecord{}, ErrPurchaseNotFound
		}
		return PurchaseRecord{}, fmt.Errorf("find purchase by receipt id: %w", err)
	}

	return record, nil
}

func (r *PurchaseRepo) ListByUser(ctx context.Context, userID string, limit int) ([]PurchaseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, provider, receipt_id, status, amount_cents, sc_granted, created_at, verified_at
FROM purchases_iap
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var records []PurchaseRecord
	for rows.Next() {
		record, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}

	return records, nil
}

func scanPurchase(row pgx.Row) (PurchaseRecord, error) {
	var (
		record   PurchaseRecord
		provider string
		status   string
	)
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&provider,
		&record.ReceiptID,
		&status,
		&record.AmountCents,
		&record.SCGranted,
		&record.CreatedAt,
		&record.VerifiedAt,
	); err != nil {
		return PurchaseRecord{}, err
	}
	record.Provider = enums.PaymentProvider(provider)
	record.Status = enums.PurchaseStatus(status)
	return record, nil
}
