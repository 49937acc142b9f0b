package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
	redrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/redis"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

type UserStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, displayName, gender, countryCode string, platformIDs map[string]string) (pgrepo.UserRecord, error)
	FindByID(ctx context.Context, userID string) (pgrepo.UserRecord, error)
	FindByPlatformID(ctx context.Context, platform, externalID string) (pgrepo.UserRecord, error)
}

type WalletProvisioner interface {
	CreateTx(ctx context.Context, tx pgx.Tx, userID string) (pgrepo.WalletRecord, error)
}

type SessionStore interface {
	Create(ctx context.Context, session redrepo.SessionRecord) error
	Get(ctx context.Context, sid string) (redrepo.SessionRecord, error)
	Delete(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type Service struct {
	users      UserStore
	wallets    WalletProvisioner
	sessions   SessionStore
	jwt        *JWTManager
	sessionTTL time.Duration
	now        func() time.Time
	runTx      func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Users    UserStore
	Wallets  WalletProvisioner
	Sessions SessionStore
	JWT      *JWTManager
}

type RegisterInput struct {
	DisplayName string
	Gender      string
	CountryCode string
	PlatformIDs map[string]string
}

type TokenInput struct {
	UserID      string
	PlatformIDs map[string]string
}

type LoginResult struct {
	AccessToken   string
	AccessExpires time.Time
	UserID        string
	DisplayName   string
}

func NewService(deps Dependencies, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 720 * time.Hour
	}

	return &Service{
		users:      deps.Users,
		wallets:    deps.Wallets,
		sessions:   deps.Sessions,
		jwt:        deps.JWT,
		sessionTTL: sessionTTL,
		now:        time.Now,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Register creates the account and its zero-balance wallet in one transaction.
// Every user has a wallet from the moment it exists; nothing downstream ever
// provisions one lazily.
func (s *Service) Register(ctx context.Context, in RegisterInput) (LoginResult, error) {
	if s.users == nil || s.wallets == nil || s.jwt == nil {
		return LoginResult{}, fmt.Errorf("auth dependencies are not configured")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return LoginResult{}, ErrInvalidInput
	}

	var user pgrepo.UserRecord
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		created, err := s.users.CreateTx(txCtx, tx, in.DisplayName, in.Gender, in.CountryCode, in.PlatformIDs)
		if err != nil {
			return err
		}
		if _, err := s.wallets.CreateTx(txCtx, tx, created.ID); err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	return s.issueSession(ctx, user)
}

// Token authenticates an existing user by id or by a platform identity
// (Google Play Games, Apple Game Center). Banned users never get a token.
func (s *Service) Token(ctx context.Context, in TokenInput) (LoginResult, error) {
	if s.users == nil || s.jwt == nil {
		return LoginResult{}, fmt.Errorf("auth dependencies are not configured")
	}

	var (
		user pgrepo.UserRecord
		err  error
	)
	switch {
	case strings.TrimSpace(in.UserID) != "":
		user, err = s.users.FindByID(ctx, strings.TrimSpace(in.UserID))
	case len(in.PlatformIDs) > 0:
		user, err = s.findByAnyPlatformID(ctx, in.PlatformIDs)
	default:
		return LoginResult{}, ErrInvalidInput
	}
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return LoginResult{}, ErrUnauthorized
		}
		return LoginResult{}, err
	}
	if user.Banned {
		return LoginResult{}, ErrUnauthorized
	}

	return s.issueSession(ctx, user)
}

func (s *Service) ValidateAccessToken(ctx context.Context, raw string) (Identity, error) {
	if s.jwt == nil {
		return Identity{}, fmt.Errorf("jwt manager is nil")
	}

	identity, err := s.jwt.ParseAccessToken(raw)
	if err != nil {
		return Identity{}, err
	}

	if s.sessions != nil {
		if _, err := s.sessions.Get(ctx, identity.SID); err != nil {
			if errors.Is(err, redrepo.ErrSessionNotFound) {
				return Identity{}, ErrUnauthorized
			}
			return Identity{}, err
		}
	}

	return identity, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if s.sessions == nil {
		return nil
	}
	if strings.TrimSpace(sid) == "" {
		return ErrInvalidInput
	}
	return s.sessions.Delete(ctx, sid)
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if s.sessions == nil {
		return nil
	}
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	return s.sessions.DeleteAllForUser(ctx, userID)
}

func (s *Service) issueSession(ctx context.Context, user pgrepo.UserRecord) (LoginResult, error) {
	sid := uuid.NewString()
	token, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, sid)
	if err != nil {
		return LoginResult{}, err
	}

	if s.sessions != nil {
		if err := s.sessions.Create(ctx, redrepo.SessionRecord{
			SID:       sid,
			UserID:    user.ID,
			ExpiresAt: s.now().UTC().Add(s.sessionTTL),
		}); err != nil {
			return LoginResult{}, err
		}
	}

	return LoginResult{
		AccessToken:   token,
		AccessExpires: expiresAt,
		UserID:        user.ID,
		DisplayName:   user.DisplayName,
	}, nil
}

func (s *Service) findByAnyPlatformID(ctx context.Context, platformIDs map[string]string) (pgrepo.UserRecord, error) {
	for platform, externalID := range platformIDs {
		user, err := s.users.FindByPlatformID(ctx, platform, externalID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, pgrepo.ErrUserNotFound) {
			return pgrepo.UserRecord{}, err
		}
	}
	return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
}
