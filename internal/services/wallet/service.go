package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type WalletStore interface {
	Get(ctx context.Context, userID string) (pgrepo.WalletRecord, error)
	Credit(ctx context.Context, userID string, amount int64, bucket pgrepo.CreditBucket) (pgrepo.WalletRecord, error)
	Debit(ctx context.Context, userID string, amount int64) (pgrepo.WalletRecord, error)
}

// Service is the only path through which gameplay and the shop touch
// balances. Handlers never write wallet rows directly.
type Service struct {
	store  WalletStore
	logger *zap.Logger
}

func NewService(store WalletStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) Get(ctx context.Context, userID string) (pgrepo.WalletRecord, error) {
	if s.store == nil {
		return pgrepo.WalletRecord{}, fmt.Errorf("wallet store is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return pgrepo.WalletRecord{}, ErrValidation
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrWalletNotFound) {
			return pgrepo.WalletRecord{}, ErrWalletNotFound
		}
		return pgrepo.WalletRecord{}, err
	}

	return record, nil
}

// Grant credits gameplay rewards into the earned bucket.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, reason string) (pgrepo.WalletRecord, error) {
	if s.store == nil {
		return pgrepo.WalletRecord{}, fmt.Errorf("wallet store is nil")
	}
	if strings.TrimSpace(userID) == "" || amount <= 0 || strings.TrimSpace(reason) == "" {
		return pgrepo.WalletRecord{}, ErrValidation
	}

	record, err := s.store.Credit(ctx, userID, amount, pgrepo.CreditBucketEarned)
	if err != nil {
		if errors.Is(err, pgrepo.ErrWalletNotFound) {
			return pgrepo.WalletRecord{}, ErrWalletNotFound
		}
		return pgrepo.WalletRecord{}, err
	}

	s.logger.Info("sc_granted",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("reason", reason),
		zap.Int64("balance", record.SkyCrowns),
	)

	return record, nil
}

// Spend debits the balance; the store enforces that the wallet never goes
// negative regardless of concurrent spends.
func (s *Service) Spend(ctx context.Context, userID string, amount int64) (pgrepo.WalletRecord, error) {
	if s.store == nil {
		return pgrepo.WalletRecord{}, fmt.Errorf("wallet store is nil")
	}
	if strings.TrimSpace(userID) == "" || amount <= 0 {
		return pgrepo.WalletRecord{}, ErrValidation
	}

	record, err := s.store.Debit(ctx, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrWalletNotFound):
			return pgrepo.WalletRecord{}, ErrWalletNotFound
		case errors.Is(err, pgrepo.ErrInsufficientFunds):
			return pgrepo.WalletRecord{}, ErrInsufficientFunds
		default:
			return pgrepo.WalletRecord{}, err
		}
	}

	s.logger.Info("sc_spent",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", record.SkyCrowns),
	)

	return record, nil
}
