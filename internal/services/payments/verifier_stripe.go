package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/config"
)

// StripeVerifier fetches the payment intent named by the receipt id. Only a
// "succeeded" intent counts as paid.
type StripeVerifier struct {
	cfg    config.StripeConfig
	client *http.Client
}

func NewStripeVerifier(cfg config.StripeConfig, client *http.Client) *StripeVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &StripeVerifier{cfg: cfg, client: client}
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int    `json:"amount"`
}

func (v *StripeVerifier) Verify(ctx context.Context, receiptID string) (Outcome, error) {
	url := strings.TrimRight(v.cfg.APIBaseURL, "/") + "/v1/payment_intents/" + receiptID

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.cfg.SecretKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("call stripe api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Outcome{Reason: "payment intent not found"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("stripe api returned %d", resp.StatusCode)
	}

	var intent stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return Outcome{}, fmt.Errorf("decode stripe response: %w", err)
	}

	if intent.Status != "succeeded" {
		return Outcome{
			Reason: fmt.Sprintf("payment intent status %q", intent.Status),
		}, nil
	}

	return Outcome{
		Valid:       true,
		AmountCents: intent.Amount,
		ExternalRef: intent.ID,
	}, nil
}
