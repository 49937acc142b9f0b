package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("shop: validation failed")
	ErrItemNotFound      = errors.New("shop: item not found")
	ErrWalletNotFound    = errors.New("shop: wallet not found")
	ErrInsufficientFunds = errors.New("shop: insufficient funds")
)

const maxQuantityPerPurchase = 99

type CatalogFinder interface {
	FindActive(ctx context.Context, itemID string) (pgrepo.CatalogItemRecord, error)
}

type WalletStore interface {
	DebitTx(ctx context.Context, tx pgx.Tx, userID string, amount int64) (pgrepo.WalletRecord, error)
}

type InventoryStore interface {
	AddTx(ctx context.Context, tx pgx.Tx, userID, itemID string, quantity int) (pgrepo.InventoryRecord, error)
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Catalog   CatalogFinder
	Wallets   WalletStore
	Inventory InventoryStore
	Logger    *zap.Logger
}

// Service handles spending SkyCrowns on catalog items. The debit and the
// inventory grant run in one transaction, so a failed grant rolls the
// wallet back.
type Service struct {
	catalog   CatalogFinder
	wallets   WalletStore
	inventory InventoryStore
	logger    *zap.Logger

	runTx func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type PurchaseResult struct {
	ItemID     string
	Quantity   int
	TotalSC    int64
	NewBalance int64
	OwnedQty   int
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		catalog:   deps.Catalog,
		wallets:   deps.Wallets,
		inventory: deps.Inventory,
		logger:    logger,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

func (s *Service) PurchaseItem(ctx context.Context, userID, itemID string, quantity int) (PurchaseResult, error) {
	userID = strings.TrimSpace(userID)
	itemID = strings.TrimSpace(itemID)
	if userID == "" || itemID == "" {
		return PurchaseResult{}, fmt.Errorf("%w: user id and item id are required", ErrValidation)
	}
	if quantity <= 0 || quantity > maxQuantityPerPurchase {
		return PurchaseResult{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, maxQuantityPerPurchase)
	}

	item, err := s.catalog.FindActive(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCatalogItemNotFound) {
			return PurchaseResult{}, ErrItemNotFound
		}
		return PurchaseResult{}, fmt.Errorf("find item: %w", err)
	}

	total := item.PriceSC * int64(quantity)

	var result PurchaseResult
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		wallet, err := s.wallets.DebitTx(ctx, tx, userID, total)
		if err != nil {
			return err
		}

		owned, err := s.inventory.AddTx(ctx, tx, userID, item.ItemID, quantity)
		if err != nil {
			return fmt.Errorf("grant inventory: %w", err)
		}

		result = PurchaseResult{
			ItemID:     item.ItemID,
			Quantity:   quantity,
			TotalSC:    total,
			NewBalance: wallet.SkyCrowns,
			OwnedQty:   owned.Quantity,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrWalletNotFound):
			return PurchaseResult{}, ErrWalletNotFound
		case errors.Is(err, pgrepo.ErrInsufficientFunds):
			return PurchaseResult{}, ErrInsufficientFunds
		}
		return PurchaseResult{}, err
	}

	s.logger.Info("item purchased",
		zap.String("user_id", userID),
		zap.String("item_id", item.ItemID),
		zap.Int("quantity", quantity),
		zap.Int64("total_sc", total),
		zap.Int64("balance", result.NewBalance),
	)

	return result, nil
}
