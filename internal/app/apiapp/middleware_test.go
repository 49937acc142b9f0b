package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/redis"
	authsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/auth"
)

func newAuthServiceForTest(t *testing.T) (*authsvc.Service, *authsvc.JWTManager, *redrepo.SessionRepo) {
	t.Helper()

	mini := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := redrepo.NewSessionRepo(client)
	jwt := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(authsvc.Dependencies{
		Sessions: sessions,
		JWT:      jwt,
	}, time.Hour)

	return svc, jwt, sessions
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	svc, _, _ := newAuthServiceForTest(t)
	mw := AuthMiddleware(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/economy/spend", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareRejectsTokenWithoutSession(t *testing.T) {
	svc, jwt, _ := newAuthServiceForTest(t)
	mw := AuthMiddleware(svc, nil)

	// Valid signature, but the session was never created (or was revoked).
	token, _, err := jwt.GenerateAccessToken("user-1", "sid-ghost")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/economy/spend", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run for a revoked session")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareInjectsIdentity(t *testing.T) {
	svc, jwt, sessions := newAuthServiceForTest(t)
	mw := AuthMiddleware(svc, nil)

	token, _, err := jwt.GenerateAccessToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if err := sessions.Create(context.Background(), redrepo.SessionRecord{
		SID:       "sid-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/economy/spend", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	var got authsvc.Identity
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing from context")
		}
		got = identity
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
	if got.UserID != "user-1" || got.SID != "sid-1" {
		t.Fatalf("unexpected identity %+v", got)
	}
}
