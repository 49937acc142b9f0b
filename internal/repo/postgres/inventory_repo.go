package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InventoryRepo struct {
	pool *pgxpool.Pool
}

type InventoryRecord struct {
	UserID     string
	ItemID     string
	Quantity   int
	AcquiredAt time.Time
}

func NewInventoryRepo(pool *pgxpool.Pool) *InventoryRepo {
	return &InventoryRepo{pool: pool}
}

// AddTx grants quantity of an item, stacking onto an existing row. Runs inside
// the shop-purchase transaction alongside the wallet debit.
func (r *InventoryRepo) AddTx(ctx context.Context, tx pgx.Tx, userID, itemID string, quantity int) (InventoryRecord, error) {
	if tx == nil {
		return InventoryRecord{}, fmt.Errorf("transaction is required")
	}
	userID = strings.TrimSpace(userID)
	itemID = strings.TrimSpace(itemID)
	if userID == "" || itemID == "" || quantity <= 0 {
		return InventoryRecord{}, fmt.Errorf("invalid inventory payload")
	}

	var record InventoryRecord
	err := tx.QueryRow(ctx, `
INSERT INTO inventory (id, user_id, item_id, quantity, acquired_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id, item_id) DO UPDATE
SET quantity = inventory.quantity + EXCLUDED.quantity
RETURNING user_id, item_id, quantity, acquired_at
`, uuid.NewString(), userID, itemID, quantity).Scan(
		&record.UserID,
		&record.ItemID,
		&record.Quantity,
		&record.AcquiredAt,
	)
	if err != nil {
		return InventoryRecord{}, fmt.Errorf("add inventory item: %w", err)
	}

	return record, nil
}

func (r *InventoryRepo) ListByUser(ctx context.Context, userID string) ([]InventoryRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, item_id, quantity, acquired_at
FROM inventory
WHERE user_id = $1
ORDER BY acquired_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var records []InventoryRecord
	for rows.Next() {
		var record InventoryRecord
		if err := rows.Scan(&record.UserID, &record.ItemID, &record.Quantity, &record.AcquiredAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}

	return records, nil
}
