package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/config"
)

// GoogleVerifier checks purchase tokens against the Play verification
// endpoint. purchaseState 0 means purchased, 1 canceled, 2 pending.
type GoogleVerifier struct {
	cfg    config.GooglePlayConfig
	client *http.Client
}

func NewGoogleVerifier(cfg config.GooglePlayConfig, client *http.Client) *GoogleVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleVerifier{cfg: cfg, client: client}
}

type googleVerifyRequest struct {
	PackageName   string `json:"package_name"`
	PurchaseToken string `json:"purchase_token"`
}

type googleVerifyResponse struct {
	PurchaseState    int    `json:"purchaseState"`
	OrderID          string `json:"orderId"`
	PriceAmountCents int    `json:"priceAmountCents"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, receiptID string) (Outcome, error) {
	body, err := json.Marshal(googleVerifyRequest{
		PackageName:   v.cfg.PackageName,
		PurchaseToken: receiptID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal play verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build play verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("call play verify endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("play verify endpoint returned %d", resp.StatusCode)
	}

	var payload googleVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Outcome{}, fmt.Errorf("decode play verify response: %w", err)
	}

	if payload.PurchaseState != 0 {
		return Outcome{
			Reason: fmt.Sprintf("purchaseState %d", payload.PurchaseState),
		}, nil
	}

	return Outcome{
		Valid:       true,
		AmountCents: payload.PriceAmountCents,
		ExternalRef: payload.OrderID,
	}, nil
}
