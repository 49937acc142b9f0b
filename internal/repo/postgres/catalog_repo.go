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

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
)

var ErrCatalogItemNotFound = errors.New("catalog item not found")

type CatalogRepo struct {
	pool *pgxpool.Pool
}

type CatalogItemRecord struct {
	ItemID      string
	Name        string
	Description string
	Type        enums.ItemType
	Tier        int
	PriceSC     int64
	Meta        map[string]any
	Active      bool
	CreatedAt   time.Time
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// SeedItems inserts the default shop inventory. Idempotent: existing item_ids
// are left untouched so ops price adjustments survive restarts.
func (r *CatalogRepo) SeedItems(ctx context.Context, items []CatalogItemRecord) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	inserted := 0
	for _, item := range items {
		metaJSON, err := marshalMeta(item.Meta)
		if err != nil {
			return inserted, err
		}

		tag, err := r.pool.Exec(ctx, `
INSERT INTO catalog (id, item_id, name, description, type, tier, price_sc, meta, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, TRUE, NOW())
ON CONFLICT (item_id) DO NOTHING
`, uuid.NewString(), item.ItemID, item.Name, item.Description, string(item.Type), item.Tier, item.PriceSC, metaJSON)
		if err != nil {
			return inserted, fmt.Errorf("seed catalog item %s: %w", item.ItemID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

func (r *CatalogRepo) ListActive(ctx context.Context) ([]CatalogItemRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT item_id, name, description, type, tier, price_sc, meta, active, created_at
FROM catalog
WHERE active = TRUE
ORDER BY tier ASC, item_id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var records []CatalogItemRecord
	for rows.Next() {
		record, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog rows: %w", err)
	}

	return records, nil
}

func (r *CatalogRepo) FindActive(ctx context.Context, itemID string) (CatalogItemRecord, error) {
	if r.pool == nil {
		return CatalogItemRecord{}, fmt.Errorf("postgres pool is nil")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return CatalogItemRecord{}, fmt.Errorf("item id is required")
	}

	record, err := scanCatalogItem(r.pool.QueryRow(ctx, `
SELECT item_id, name, description, type, tier, price_sc, meta, active, created_at
FROM catalog
WHERE item_id = $1
  AND active = TRUE
LIMIT 1
`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CatalogItemRecord{}, ErrCatalogItemNotFound
		}
		return CatalogItemRecord{}, fmt.Errorf("find catalog item: %w", err)
	}

	return record, nil
}

func scanCatalogItem(row pgx.Row) (CatalogItemRecord, error) {
	var (
		record   CatalogItemRecord
		itemType string
		rawMeta  []byte
	)
	if err := row.Scan(
		&record.ItemID,
		&record.Name,
		&record.Description,
		&itemType,
		&record.Tier,
		&record.PriceSC,
		&rawMeta,
		&record.Active,
		&record.CreatedAt,
	); err != nil {
		return CatalogItemRecord{}, err
	}
	record.Type = enums.ItemType(itemType)
	record.Meta = decodeMeta(rawMeta)
	return record, nil
}

func marshalMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal catalog meta: %w", err)
	}
	return string(raw), nil
}

func decodeMeta(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}
