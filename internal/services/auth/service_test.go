package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
	redrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/redis"
)

type userStoreStub struct {
	byID       map[string]pgrepo.UserRecord
	byPlatform map[string]string
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{
		byID:       make(map[string]pgrepo.UserRecord),
		byPlatform: make(map[string]string),
	}
}

func (s *userStoreStub) CreateTx(_ context.Context, _ pgx.Tx, displayName, gender, countryCode string, platformIDs map[string]string) (pgrepo.UserRecord, error) {
	now := time.Now().UTC()
	user := pgrepo.UserRecord{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Gender:      gender,
		CountryCode: countryCode,
		PlatformIDs: platformIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[user.ID] = user
	for platform, externalID := range platformIDs {
		s.byPlatform[platform+"|"+externalID] = user.ID
	}
	return user, nil
}

func (s *userStoreStub) FindByID(_ context.Context, userID string) (pgrepo.UserRecord, error) {
	user, ok := s.byID[userID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *userStoreStub) FindByPlatformID(_ context.Context, platform, externalID string) (pgrepo.UserRecord, error) {
	id, ok := s.byPlatform[platform+"|"+externalID]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return s.byID[id], nil
}

type walletProvisionerStub struct {
	created []string
}

func (s *walletProvisionerStub) CreateTx(_ context.Context, _ pgx.Tx, userID string) (pgrepo.WalletRecord, error) {
	s.created = append(s.created, userID)
	return pgrepo.WalletRecord{UserID: userID, UpdatedAt: time.Now().UTC()}, nil
}

func newAuthServiceForTest(t *testing.T) (*Service, *userStoreStub, *walletProvisionerStub, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redrepo.NewClient(mini.Addr(), "", 0)

	users := newUserStoreStub()
	wallets := &walletProvisionerStub{}

	svc := NewService(Dependencies{
		Users:    users,
		Wallets:  wallets,
		Sessions: redrepo.NewSessionRepo(client),
		JWT:      NewJWTManager("test-secret", time.Minute),
	}, time.Hour)
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}
	return svc, users, wallets, cleanup
}

func TestRegisterProvisionsWalletWithUser(t *testing.T) {
	svc, _, wallets, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	res, err := svc.Register(ctx, RegisterInput{
		DisplayName: "Kael",
		Gender:      "boy",
		CountryCode: "de",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.UserID == "" || res.AccessToken == "" {
		t.Fatalf("register returned incomplete result: %+v", res)
	}

	if len(wallets.created) != 1 || wallets.created[0] != res.UserID {
		t.Fatalf("wallet was not provisioned with the user: %v", wallets.created)
	}

	identity, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if identity.UserID != res.UserID {
		t.Fatalf("token subject mismatch: %s != %s", identity.UserID, res.UserID)
	}
}

func TestTokenByPlatformID(t *testing.T) {
	svc, _, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	registered, err := svc.Register(ctx, RegisterInput{
		DisplayName: "Mira",
		Gender:      "girl",
		CountryCode: "US",
		PlatformIDs: map[string]string{"game_center": "gc-777"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := svc.Token(ctx, TokenInput{
		PlatformIDs: map[string]string{"game_center": "gc-777"},
	})
	if err != nil {
		t.Fatalf("token by platform id: %v", err)
	}
	if res.UserID != registered.UserID {
		t.Fatalf("platform login resolved wrong user: %s != %s", res.UserID, registered.UserID)
	}
}

func TestTokenRejectsBannedAndUnknownUsers(t *testing.T) {
	svc, users, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	res, err := svc.Register(ctx, RegisterInput{DisplayName: "Torv", CountryCode: "SE"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	banned := users.byID[res.UserID]
	banned.Banned = true
	users.byID[res.UserID] = banned

	if _, err := svc.Token(ctx, TokenInput{UserID: res.UserID}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("banned user should be unauthorized, got %v", err)
	}
	if _, err := svc.Token(ctx, TokenInput{UserID: uuid.NewString()}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown user should be unauthorized, got %v", err)
	}
	if _, err := svc.Token(ctx, TokenInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty token input should be invalid, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _, _, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	res, err := svc.Register(ctx, RegisterInput{DisplayName: "Suli", CountryCode: "JP"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	identity, err := svc.ValidateAccessToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("validate before logout: %v", err)
	}

	if err := svc.Logout(ctx, identity.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, res.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("token should be rejected after logout, got %v", err)
	}
}
