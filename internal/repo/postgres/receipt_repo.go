package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrReceiptExists   = errors.New("receipt already registered")
	ErrReceiptNotFound = errors.New("receipt audit entry not found")
)

// ReceiptRepo is the dedup gate for payment receipts. A row per distinct
// receipt hash, inserted before the provider is ever contacted, never deleted.
type ReceiptRepo struct {
	pool *pgxpool.Pool
}

type ReceiptAuditRecord struct {
	ReceiptHash        string
	VerificationResult map[string]any
	RetryCount         int
	CreatedAt          time.Time
}

func NewReceiptRepo(pool *pgxpool.Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

// HashReceipt maps a provider-issued receipt identifier onto the dedup key.
// Deterministic across processes and providers.
func HashReceipt(receiptID string) string {
	sum := sha256.Sum256([]byte(receiptID))
	return hex.EncodeToString(sum[:])
}

// RegisterAttempt inserts the dedup row for hash. The unique index on
// receipt_hash makes concurrent duplicate submissions resolve to exactly one
// accepted insert; every loser gets ErrReceiptExists.
func (r *ReceiptRepo) RegisterAttempt(ctx context.Context, hash string) (ReceiptAuditRecord, error) {
	if r.pool == nil {
		return ReceiptAuditRecord{}, fmt.Errorf("postgres pool is nil")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return ReceiptAuditRecord{}, fmt.Errorf("receipt hash is required")
	}

	var record ReceiptAuditRecord
	err := r.pool.QueryRow(ctx, `
INSERT INTO receipts_audit (receipt_hash, verification_result, retry_count, created_at)
VALUES ($1, '{}'::jsonb, 0, NOW())
RETURNING receipt_hash, retry_count, created_at
`, hash).Scan(&record.ReceiptHash, &record.RetryCount, &record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ReceiptAuditRecord{}, ErrReceiptExists
		}
		return ReceiptAuditRecord{}, fmt.Errorf("register receipt attempt: %w", err)
	}

	record.VerificationResult = map[string]any{}
	return record, nil
}

// RecordOutcome stores the verifier response on the existing audit row.
// Repeat writes bump retry_count instead of inserting a fresh row.
func (r *ReceiptRepo) RecordOutcome(ctx context.Context, hash string, result map[string]any) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return fmt.Errorf("receipt hash is required")
	}

	resultJSON, err := marshalResult(result)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE receipts_audit
SET
	verification_result = $2::jsonb,
	retry_count = retry_count + 1
WHERE receipt_hash = $1
`, hash, resultJSON)
	if err != nil {
		return fmt.Errorf("record receipt outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}

	return nil
}

func (r *ReceiptRepo) Find(ctx context.Context, hash string) (ReceiptAuditRecord, error) {
	if r.pool == nil {
		return ReceiptAuditRecord{}, fmt.Errorf("postgres pool is nil")
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return ReceiptAuditRecord{}, fmt.Errorf("receipt hash is required")
	}

	var (
		record    ReceiptAuditRecord
		rawResult []byte
	)
	err := r.pool.QueryRow(ctx, `
SELECT receipt_hash, verification_result, retry_count, created_at
FROM receipts_audit
WHERE receipt_hash = $1
LIMIT 1
`, hash).Scan(&record.ReceiptHash, &rawResult, &record.RetryCount, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceiptAuditRecord{}, ErrReceiptNotFound
		}
		return ReceiptAuditRecord{}, fmt.Errorf("find receipt audit entry: %w", err)
	}

	record.VerificationResult = decodeResult(rawResult)
	return record, nil
}

func marshalResult(result map[string]any) (string, error) {
	if len(result) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal verification result: %w", err)
	}
	return string(raw), nil
}

func decodeResult(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}
