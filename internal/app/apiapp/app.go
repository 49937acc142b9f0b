package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/config"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/infra/httpclient"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/infra/s3"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/jobs/snapshot"
	pgrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/postgres"
	redrepo "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/repo/redis"
	authsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/auth"
	catalogsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/catalog"
	leaderboardsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/leaderboard"
	paymentsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/payments"
	progresssvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/progress"
	ratesvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/rate"
	shopsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/shop"
	walletsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/wallet"
)

type App struct {
	cfg         config.Config
	logger      *zap.Logger
	server      *http.Server
	postgres    *pgxpool.Pool
	redis       *goredis.Client
	snapshotJob *snapshot.Job
	httpRouter  http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	leaderboardCache := redrepo.NewLeaderboardCacheRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	walletRepo := pgrepo.NewWalletRepo(pool)
	receiptRepo := pgrepo.NewReceiptRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	progressRepo := pgrepo.NewProgressRepo(pool)
	catalogRepo := pgrepo.NewCatalogRepo(pool)
	inventoryRepo := pgrepo.NewInventoryRepo(pool)
	leaderboardRepo := pgrepo.NewLeaderboardRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		Pool:     pool,
		Users:    userRepo,
		Wallets:  walletRepo,
		Sessions: sessionRepo,
		JWT:      jwtManager,
	}, cfg.Auth.SessionTTL)

	walletService := walletsvc.NewService(walletRepo, log)
	catalogService := catalogsvc.NewService(catalogRepo, log)

	var receiptArchive paymentsvc.ReceiptArchiver
	if cfg.S3.Endpoint != "" {
		s3Client, err := s3.NewClient(s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Warn("s3 init failed, receipt archive disabled", zap.Error(err))
		} else {
			archive := paymentsvc.NewS3Archive(s3Client, cfg.S3.ReceiptBucket)
			if err := archive.EnsureBucket(ctx); err != nil {
				log.Warn("receipt archive bucket unavailable", zap.Error(err))
			}
			receiptArchive = archive
		}
	}

	verifyClient := httpclient.New(cfg.Payments.VerifyTimeout)
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Pool:      pool,
		Receipts:  receiptRepo,
		Purchases: purchaseRepo,
		Wallets:   walletRepo,
		Verifiers: map[enums.PaymentProvider]paymentsvc.Verifier{
			enums.PaymentProviderGooglePlay: paymentsvc.NewGoogleVerifier(cfg.Payments.GooglePlay, verifyClient),
			enums.PaymentProviderAppleIAP:   paymentsvc.NewAppleVerifier(cfg.Payments.Apple, verifyClient),
			enums.PaymentProviderStripe:     paymentsvc.NewStripeVerifier(cfg.Payments.Stripe, verifyClient),
		},
		Archive:   receiptArchive,
		SCPerCent: cfg.Payments.SCPerCent,
		Logger:    log,
	})

	shopService := shopsvc.NewService(shopsvc.Dependencies{
		Pool:      pool,
		Catalog:   catalogRepo,
		Wallets:   walletRepo,
		Inventory: inventoryRepo,
		Logger:    log,
	})
	progressService := progresssvc.NewService(progressRepo, walletService, log)
	leaderboardService := leaderboardsvc.NewService(leaderboardRepo, leaderboardCache, log)
	snapshotJob := snapshot.NewLeaderboardSnapshotJob(leaderboardRepo, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.StageSubmitsPerMinute, cfg.Limits.PurchasesPerMinute)

	if pool != nil {
		if err := catalogService.Seed(ctx); err != nil {
			log.Warn("catalog seed failed", zap.Error(err))
		}
	}

	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		CatalogService:     catalogService,
		PaymentService:     paymentService,
		ShopService:        shopService,
		WalletService:      walletService,
		ProgressService:    progressService,
		LeaderboardService: leaderboardService,
		RateLimiter:        rateLimiter,
		Logger:             log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:         cfg,
		logger:      log,
		server:      server,
		postgres:    pool,
		redis:       redisClient,
		snapshotJob: snapshotJob,
		httpRouter:  r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunSnapshotLoop persists leaderboard snapshots on the configured interval
// until ctx is canceled. No-op without a database.
func (a *App) RunSnapshotLoop(ctx context.Context) error {
	if a.snapshotJob == nil || a.postgres == nil {
		return nil
	}

	interval := a.cfg.Jobs.SnapshotInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.snapshotJob.Run(ctx); err != nil {
				a.logger.Error("leaderboard snapshot run failed", zap.Error(err))
			}
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
