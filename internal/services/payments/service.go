package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/catalog"
)

var (
	ErrValidation          = errors.New("payments: validation failed")
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	ErrDuplicateReceipt    = errors.New("payments: receipt already processed")
	ErrVerificationFailed  = errors.New("payments: receipt verification failed")
	ErrProviderUnavailable = errors.New("payments: provider unavailable")
	ErrWalletNotFound      = errors.New("payments: wallet not found")
)

type ReceiptLedger interface {
	RegisterAttempt(ctx context.Context, hash string) (pgrepo.ReceiptAuditRecord, error)
	RecordOutcome(ctx context.Context, hash string, result map[string]any) error
}

type PurchaseStore interface {
	InsertVerifiedTx(
		ctx context.Context,
		tx pgx.Tx,
		userID string,
		provider enums.PaymentProvider,
		receiptID string,
		amountCents *int,
		scGranted int64,
		verifiedAt time.Time,
	) (pgrepo.PurchaseRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]pgrepo.PurchaseRecord, error)
}

type WalletStore interface {
	CreditTx(ctx context.Context, tx pgx.Tx, userID string, amount int64, bucket pgrepo.CreditBucket) (pgrepo.WalletRecord, error)
}

// ReceiptArchiver mirrors verification verdicts to cold storage for audits.
type ReceiptArchiver interface {
	StoreVerdict(ctx context.Context, provider enums.PaymentProvider, receiptHash string, verdict map[string]any) error
}

type Dependencies struct {
	Pool      *pgxpool.Pool
	Receipts  ReceiptLedger
	Purchases PurchaseStore
	Wallets   WalletStore
	Verifiers map[enums.PaymentProvider]Verifier
	Archive   ReceiptArchiver
	SCPerCent int
	Logger    *zap.Logger
}

// Service runs real-money purchases end to end: dedup gate, provider
// verification, then the grant. The ledger row is written before the provider
// is contacted and is never removed, so a receipt gets exactly one chance.
type Service struct {
	receipts  ReceiptLedger
	purchases PurchaseStore
	wallets   WalletStore
	verifiers map[enums.PaymentProvider]Verifier
	archive   ReceiptArchiver
	scPerCent int
	logger    *zap.Logger

	now   func() time.Time
	runTx func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type PurchaseResult struct {
	PurchaseID string
	PackageID  string
	SCGranted  int64
	NewBalance int64
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scPerCent := deps.SCPerCent
	if scPerCent <= 0 {
		scPerCent = 1
	}

	return &Service{
		receipts:  deps.Receipts,
		purchases: deps.Purchases,
		wallets:   deps.Wallets,
		verifiers: deps.Verifiers,
		archive:   deps.Archive,
		scPerCent: scPerCent,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

func (s *Service) ProcessPurchase(ctx context.Context, userID string, provider enums.PaymentProvider, receiptID, packageID string) (PurchaseResult, error) {
	userID = strings.TrimSpace(userID)
	receiptID = strings.TrimSpace(receiptID)
	if userID == "" || receiptID == "" {
		return PurchaseResult{}, fmt.Errorf("%w: user id and receipt id are required", ErrValidation)
	}

	verifier, ok := s.verifiers[provider]
	if !ok {
		return PurchaseResult{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	// The dedup row goes in before the provider call. Once this insert lands
	// the receipt is burned, whatever happens next.
	hash := pgrepo.HashReceipt(receiptID)
	if _, err := s.receipts.RegisterAttempt(ctx, hash); err != nil {
		if errors.Is(err, pgrepo.ErrReceiptExists) {
			return PurchaseResult{}, ErrDuplicateReceipt
		}
		return PurchaseResult{}, fmt.Errorf("register receipt: %w", err)
	}

	outcome, verr := verifier.Verify(ctx, receiptID)
	if verr != nil {
		s.recordOutcome(ctx, provider, hash, map[string]any{
			"valid": false,
			"error": verr.Error(),
		})
		s.logger.Warn("payment provider unreachable",
			zap.String("provider", string(provider)),
			zap.Error(verr),
		)
		return PurchaseResult{}, fmt.Errorf("%w: %s", ErrProviderUnavailable, provider)
	}

	s.recordOutcome(ctx, provider, hash, map[string]any{
		"valid":        outcome.Valid,
		"amount_cents": outcome.AmountCents,
		"external_ref": outcome.ExternalRef,
		"reason":       outcome.Reason,
	})

	if !outcome.Valid {
		s.logger.Info("receipt rejected by provider",
			zap.String("provider", string(provider)),
			zap.String("user_id", userID),
			zap.String("reason", outcome.Reason),
		)
		return PurchaseResult{}, fmt.Errorf("%w: %s", ErrVerificationFailed, outcome.Reason)
	}

	scGranted, amountCents, resolvedPackage := s.resolveGrant(packageID, outcome)
	if scGranted <= 0 {
		return PurchaseResult{}, fmt.Errorf("%w: no grant amount could be resolved", ErrVerificationFailed)
	}

	var result PurchaseResult
	err := s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		purchase, err := s.purchases.InsertVerifiedTx(ctx, tx, userID, provider, receiptID, amountCents, scGranted, s.now())
		if err != nil {
			return err
		}

		wallet, err := s.wallets.CreditTx(ctx, tx, userID, scGranted, pgrepo.CreditBucketPurchased)
		if err != nil {
			return err
		}

		result = PurchaseResult{
			PurchaseID: purchase.ID,
			PackageID:  resolvedPackage,
			SCGranted:  scGranted,
			NewBalance: wallet.SkyCrowns,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrWalletNotFound) {
			return PurchaseResult{}, ErrWalletNotFound
		}
		return PurchaseResult{}, fmt.Errorf("persist purchase: %w", err)
	}

	s.logger.Info("purchase verified",
		zap.String("user_id", userID),
		zap.String("provider", string(provider)),
		zap.String("package_id", resolvedPackage),
		zap.Int64("sc_granted", scGranted),
		zap.Int64("balance", result.NewBalance),
	)

	return result, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]pgrepo.PurchaseRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.purchases.ListByUser(ctx, userID, limit)
}

// resolveGrant prices the purchase. A recognized package id wins over
// anything the provider reported; otherwise the provider's minor units go
// through the configured exchange rate.
func (s *Service) resolveGrant(packageID string, outcome Outcome) (int64, *int, string) {
	if pkg, ok := catalog.FindPackage(packageID); ok {
		cents := pkg.USDCents
		return pkg.SC, &cents, strings.ToLower(strings.TrimSpace(packageID))
	}

	if outcome.AmountCents > 0 {
		cents := outcome.AmountCents
		return int64(outcome.AmountCents) * int64(s.scPerCent), &cents, ""
	}

	return 0, nil, ""
}

// recordOutcome is best-effort bookkeeping; the purchase decision does not
// hinge on it.
func (s *Service) recordOutcome(ctx context.Context, provider enums.PaymentProvider, hash string, result map[string]any) {
	if err := s.receipts.RecordOutcome(ctx, hash, result); err != nil {
		s.logger.Warn("record receipt outcome", zap.Error(err))
	}
	if s.archive != nil {
		if err := s.archive.StoreVerdict(ctx, provider, hash, result); err != nil {
			s.logger.Warn("archive receipt verdict", zap.Error(err))
		}
	}
}
