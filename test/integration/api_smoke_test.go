package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/app/apiapp"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/config"
)

// The app comes up in degraded mode without postgres, but the router, the
// middleware chain, and the static economy endpoints must still work.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.HTTP.Addr = ":0"

	app, err := apiapp.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestIAPPackagesPublicEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/economy/iap-packages")
	if err != nil {
		t.Fatalf("get iap-packages: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var packages []struct {
		PackageID string `json:"package_id"`
		SC        int64  `json:"sc"`
		USDCents  int    `json:"usd_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&packages); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(packages) != 5 {
		t.Fatalf("expected 5 packages, got %d", len(packages))
	}
}

func TestProtectedEndpointRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/v1/economy/purchase", "application/json", nil)
	if err != nil {
		t.Fatalf("post purchase: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}
