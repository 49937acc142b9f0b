package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/auth"
	catalogsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/catalog"
	leaderboardsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/leaderboard"
	paymentsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/payments"
	progresssvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/progress"
	ratesvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/rate"
	shopsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/shop"
	walletsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/wallet"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	CatalogService     *catalogsvc.Service
	PaymentService     *paymentsvc.Service
	ShopService        *shopsvc.Service
	WalletService      *walletsvc.Service
	ProgressService    *progresssvc.Service
	LeaderboardService *leaderboardsvc.Service
	RateLimiter        *ratesvc.Limiter
	Logger             *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	economyHandler := handlers.NewEconomyHandler(deps.CatalogService, deps.PaymentService, deps.ShopService, deps.WalletService, deps.RateLimiter)
	progressHandler := handlers.NewProgressHandler(deps.ProgressService, deps.RateLimiter)
	leaderboardHandler := handlers.NewLeaderboardHandler(deps.LeaderboardService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/token", authHandler.Token)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/v1/economy", func(r chi.Router) {
		r.Get("/iap-packages", economyHandler.Packages)
		r.Get("/catalog", economyHandler.Catalog)
		r.With(authMW).Post("/purchase", economyHandler.Purchase)
		r.With(authMW).Post("/spend", economyHandler.Spend)
		r.Get("/wallet/{user_id}", economyHandler.Wallet)
	})

	r.Route("/v1/progress", func(r chi.Router) {
		r.With(authMW).Post("/stage", progressHandler.SubmitStage)
		r.Get("/user/{user_id}", progressHandler.GetProgress)
	})

	r.Route("/v1/leaderboard", func(r chi.Router) {
		r.Get("/global", leaderboardHandler.Global)
		r.Get("/stage/{stage}", leaderboardHandler.Stage)
		r.Get("/user/{user_id}/rank", leaderboardHandler.UserRank)
	})
}
