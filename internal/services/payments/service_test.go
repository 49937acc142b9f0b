package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
)

type ledgerStub struct {
	rows     map[string]map[string]any
	attempts int
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{rows: map[string]map[string]any{}}
}

func (s *ledgerStub) RegisterAttempt(_ context.Context, hash string) (pgrepo.ReceiptAuditRecord, error) {
	s.attempts++
	if _, ok := s.rows[hash]; ok {
		return pgrepo.ReceiptAuditRecord{}, pgrepo.ErrReceiptExists
	}
	s.rows[hash] = map[string]any{}
	return pgrepo.ReceiptAuditRecord{ReceiptHash: hash, CreatedAt: time.Now()}, nil
}

func (s *ledgerStub) RecordOutcome(_ context.Context, hash string, result map[string]any) error {
	if _, ok := s.rows[hash]; !ok {
		return pgrepo.ErrReceiptNotFound
	}
	s.rows[hash] = result
	return nil
}

type purchaseStoreStub struct {
	inserted []pgrepo.PurchaseRecord
}

func (s *purchaseStoreStub) InsertVerifiedTx(
	_ context.Context,
	_ pgx.Tx,
	userID string,
	provider enums.PaymentProvider,
	receiptID string,
	amountCents *int,
	scGranted int64,
	verifiedAt time.Time,
) (pgrepo.PurchaseRecord, error) {
	record := pgrepo.PurchaseRecord{
		ID:          "purchase-1",
		UserID:      userID,
		Provider:    provider,
		ReceiptID:   receiptID,
		Status:      enums.PurchaseStatusVerified,
		AmountCents: amountCents,
		SCGranted:   scGranted,
		VerifiedAt:  &verifiedAt,
	}
	s.inserted = append(s.inserted, record)
	return record, nil
}

func (s *purchaseStoreStub) ListByUser(_ context.Context, userID string, _ int) ([]pgrepo.PurchaseRecord, error) {
	var out []pgrepo.PurchaseRecord
	for _, record := range s.inserted {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	return out, nil
}

type creditStoreStub struct {
	balance int64
	credits []int64
}

func (s *creditStoreStub) CreditTx(_ context.Context, _ pgx.Tx, userID string, amount int64, _ pgrepo.CreditBucket) (pgrepo.WalletRecord, error) {
	if userID == "missing-wallet" {
		return pgrepo.WalletRecord{}, pgrepo.ErrWalletNotFound
	}
	s.balance += amount
	s.credits = append(s.credits, amount)
	return pgrepo.WalletRecord{UserID: userID, SkyCrowns: s.balance, LifetimePurchased: s.balance}, nil
}

type verifierStub struct {
	outcome Outcome
	err     error
	calls   int
}

func (v *verifierStub) Verify(context.Context, string) (Outcome, error) {
	v.calls++
	return v.outcome, v.err
}

type archiverStub struct {
	verdicts []map[string]any
}

func (a *archiverStub) StoreVerdict(_ context.Context, _ enums.PaymentProvider, _ string, verdict map[string]any) error {
	a.verdicts = append(a.verdicts, verdict)
	return nil
}

type paymentsFixture struct {
	svc      *Service
	ledger   *ledgerStub
	store    *purchaseStoreStub
	wallets  *creditStoreStub
	verifier *verifierStub
}

func newPaymentsFixture(verifier *verifierStub) *paymentsFixture {
	ledger := newLedgerStub()
	store := &purchaseStoreStub{}
	wallets := &creditStoreStub{}

	svc := NewService(Dependencies{
		Receipts:  ledger,
		Purchases: store,
		Wallets:   wallets,
		Verifiers: map[enums.PaymentProvider]Verifier{
			enums.PaymentProviderGooglePlay: verifier,
		},
		SCPerCent: 2,
	})
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}

	return &paymentsFixture{svc: svc, ledger: ledger, store: store, wallets: wallets, verifier: verifier}
}

func TestProcessPurchaseGrantsPackage(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true, ExternalRef: "order-1"}})

	result, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-abc", "medium_pack")
	if err != nil {
		t.Fatalf("ProcessPurchase: %v", err)
	}
	if result.SCGranted != 1200 {
		t.Fatalf("expected 1200 SC for medium_pack, got %d", result.SCGranted)
	}
	if result.NewBalance != 1200 {
		t.Fatalf("expected balance 1200, got %d", result.NewBalance)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("expected one purchase record, got %d", len(f.store.inserted))
	}
	purchase := f.store.inserted[0]
	if purchase.Status != enums.PurchaseStatusVerified {
		t.Fatalf("expected verified status, got %s", purchase.Status)
	}
	if purchase.AmountCents == nil || *purchase.AmountCents != 199 {
		t.Fatalf("expected amount 199 cents from package table, got %v", purchase.AmountCents)
	}
}

func TestProcessPurchaseDuplicateReceipt(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true}})

	if _, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-abc", "small_pack"); err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	_, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-abc", "small_pack")
	if !errors.Is(err, ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt, got %v", err)
	}
	if f.verifier.calls != 1 {
		t.Fatalf("provider called %d times, want 1", f.verifier.calls)
	}
	if f.wallets.balance != 500 {
		t.Fatalf("duplicate moved currency: balance %d", f.wallets.balance)
	}
}

func TestProcessPurchaseFailedReceiptStaysBurned(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Reason: "Status 21007"}})

	_, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-bad", "small_pack")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}

	// Resubmitting the same receipt hits the dedup gate, not the provider.
	_, err = f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-bad", "small_pack")
	if !errors.Is(err, ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt on resubmit, got %v", err)
	}
	if f.verifier.calls != 1 {
		t.Fatalf("provider called %d times, want 1", f.verifier.calls)
	}
	if len(f.store.inserted) != 0 {
		t.Fatalf("failed receipt produced a purchase record")
	}
}

func TestProcessPurchaseProviderUnavailable(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{err: errors.New("connection refused")})

	_, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-x", "small_pack")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if f.wallets.balance != 0 {
		t.Fatalf("unavailable provider moved currency: balance %d", f.wallets.balance)
	}

	// Fail closed: the receipt hash is burned even though verification never
	// completed.
	_, err = f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-x", "small_pack")
	if !errors.Is(err, ErrDuplicateReceipt) {
		t.Fatalf("expected ErrDuplicateReceipt after outage, got %v", err)
	}
}

func TestProcessPurchaseAmountFallback(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true, AmountCents: 499}})

	// Unknown package id: provider-reported cents through the 2 SC/cent rate.
	result, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-y", "mystery_pack")
	if err != nil {
		t.Fatalf("ProcessPurchase: %v", err)
	}
	if result.SCGranted != 998 {
		t.Fatalf("expected 998 SC from 499 cents at 2 SC/cent, got %d", result.SCGranted)
	}
	if result.PackageID != "" {
		t.Fatalf("expected empty package id for fallback pricing, got %q", result.PackageID)
	}
}

func TestProcessPurchaseNoResolvableAmount(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true}})

	_, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-z", "mystery_pack")
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed when no amount resolves, got %v", err)
	}
}

func TestProcessPurchaseArchivesVerdicts(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true, ExternalRef: "order-7"}})
	archive := &archiverStub{}
	f.svc.archive = archive

	if _, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-ok", "small_pack"); err != nil {
		t.Fatalf("ProcessPurchase: %v", err)
	}
	if len(archive.verdicts) != 1 {
		t.Fatalf("expected one archived verdict, got %d", len(archive.verdicts))
	}
	if valid, _ := archive.verdicts[0]["valid"].(bool); !valid {
		t.Fatalf("archived verdict should be valid: %v", archive.verdicts[0])
	}

	// Rejections are archived too; disputes mostly concern those.
	f2 := newPaymentsFixture(&verifierStub{outcome: Outcome{Reason: "purchaseState 1"}})
	archive2 := &archiverStub{}
	f2.svc.archive = archive2

	if _, err := f2.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProviderGooglePlay, "receipt-rej", "small_pack"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if len(archive2.verdicts) != 1 {
		t.Fatalf("expected one archived verdict for rejection, got %d", len(archive2.verdicts))
	}
	if reason, _ := archive2.verdicts[0]["reason"].(string); reason != "purchaseState 1" {
		t.Fatalf("archived reason = %q", reason)
	}
}

func TestProcessPurchaseUnsupportedProvider(t *testing.T) {
	f := newPaymentsFixture(&verifierStub{outcome: Outcome{Valid: true}})

	_, err := f.svc.ProcessPurchase(context.Background(), "user-1", enums.PaymentProvider("paypal"), "receipt-q", "small_pack")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
	// The gate never saw the receipt, so the id is still usable.
	if f.ledger.attempts != 0 {
		t.Fatalf("unsupported provider reached the ledger")
	}
}
