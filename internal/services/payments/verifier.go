package payments

import "context"

// Outcome is a provider's verdict on a single receipt. A returned error means
// the provider could not be reached or answered garbage; Valid=false means the
// provider answered and rejected the receipt.
type Outcome struct {
	Valid       bool
	AmountCents int
	ExternalRef string
	Reason      string
}

type Verifier interface {
	Verify(ctx context.Context, receiptID string) (Outcome, error)
}
