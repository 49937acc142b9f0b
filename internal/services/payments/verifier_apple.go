package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/config"
)

// AppleVerifier posts receipt data to the verifyReceipt endpoint. Apple
// answers status 0 for a valid receipt; anything else is a rejection code.
type AppleVerifier struct {
	cfg    config.AppleConfig
	client *http.Client
}

func NewAppleVerifier(cfg config.AppleConfig, client *http.Client) *AppleVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &AppleVerifier{cfg: cfg, client: client}
}

type appleVerifyRequest struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password,omitempty"`
}

type appleVerifyResponse struct {
	Status  int `json:"status"`
	Receipt struct {
		InApp []struct {
			TransactionID string `json:"transaction_id"`
		} `json:"in_app"`
	} `json:"receipt"`
}

func (v *AppleVerifier) Verify(ctx context.Context, receiptID string) (Outcome, error) {
	url := v.cfg.VerifyURL
	if v.cfg.UseSandbox && v.cfg.SandboxURL != "" {
		url = v.cfg.SandboxURL
	}

	body, err := json.Marshal(appleVerifyRequest{
		ReceiptData: receiptID,
		Password:    v.cfg.SharedSecret,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal apple verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build apple verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("call apple verify endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("apple verify endpoint returned %d", resp.StatusCode)
	}

	var payload appleVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Outcome{}, fmt.Errorf("decode apple verify response: %w", err)
	}

	if payload.Status != 0 {
		return Outcome{
			Reason: fmt.Sprintf("Status %d", payload.Status),
		}, nil
	}

	outcome := Outcome{Valid: true}
	if len(payload.Receipt.InApp) > 0 {
		outcome.ExternalRef = payload.Receipt.InApp[0].TransactionID
	}

	// Apple does not report a price; amount resolution falls back to the
	// package table or the configured exchange rate.
	return outcome, nil
}
