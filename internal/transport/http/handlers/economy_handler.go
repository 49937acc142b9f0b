package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/domain/enums"
	authsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/auth"
	catalogsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/catalog"
	paymentsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/payments"
	ratesvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/rate"
	shopsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/shop"
	walletsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/wallet"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/dto"
	httperrors "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/errors"
)

type EconomyHandler struct {
	catalog  *catalogsvc.Service
	payments *paymentsvc.Service
	shop     *shopsvc.Service
	wallets  *walletsvc.Service
	limiter  *ratesvc.Limiter
}

func NewEconomyHandler(
	catalog *catalogsvc.Service,
	payments *paymentsvc.Service,
	shop *shopsvc.Service,
	wallets *walletsvc.Service,
	limiter *ratesvc.Limiter,
) *EconomyHandler {
	return &EconomyHandler{
		catalog:  catalog,
		payments: payments,
		shop:     shop,
		wallets:  wallets,
		limiter:  limiter,
	}
}

func (h *EconomyHandler) Packages(w http.ResponseWriter, _ *http.Request) {
	packages := catalogsvc.Packages()

	out := make([]dto.IAPPackageResponse, 0, len(packages))
	for id, pkg := range packages {
		out = append(out, dto.IAPPackageResponse{
			PackageID: id,
			SC:        pkg.SC,
			USDCents:  pkg.USDCents,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].USDCents < out[j].USDCents })

	httperrors.Write(w, http.StatusOK, out)
}

func (h *EconomyHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeInternal(w, "CATALOG_SERVICE_UNAVAILABLE", "catalog service is unavailable")
		return
	}

	items, err := h.catalog.List(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load catalog")
		return
	}

	out := make([]dto.CatalogItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, dto.CatalogItemResponse{
			ItemID:      item.ItemID,
			Name:        item.Name,
			Description: item.Description,
			Type:        string(item.Type),
			Tier:        item.Tier,
			PriceSC:     item.PriceSC,
			Meta:        item.Meta,
		})
	}

	httperrors.Write(w, http.StatusOK, out)
}

func (h *EconomyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	if h.limiter != nil {
		if retryAfter, allowed, _ := h.limiter.AllowPurchase(r.Context(), identity.UserID); !allowed {
			writeRateLimited(w, "RATE_LIMITED", "too many purchase attempts", retryAfter)
			return
		}
	}

	var req dto.PurchaseIAPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	provider, ok := enums.ParsePaymentProvider(req.Provider)
	if !ok {
		writeBadRequest(w, "UNSUPPORTED_PROVIDER", "unknown payment provider")
		return
	}

	result, err := h.payments.ProcessPurchase(r.Context(), identity.UserID, provider, req.ReceiptID, req.PackageID)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid purchase payload")
		case errors.Is(err, paymentsvc.ErrUnsupportedProvider):
			writeBadRequest(w, "UNSUPPORTED_PROVIDER", "unknown payment provider")
		case errors.Is(err, paymentsvc.ErrDuplicateReceipt):
			writeConflict(w, "DUPLICATE_RECEIPT", "receipt was already processed")
		case errors.Is(err, paymentsvc.ErrVerificationFailed):
			httperrors.Write(w, http.StatusUnprocessableEntity, httperrors.APIError{
				Code:    "VERIFICATION_FAILED",
				Message: "receipt was rejected by the payment provider",
			})
		case errors.Is(err, paymentsvc.ErrProviderUnavailable):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "PROVIDER_UNAVAILABLE",
				Message: "payment provider could not be reached",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process purchase")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseIAPResponse{
		PurchaseID: result.PurchaseID,
		PackageID:  result.PackageID,
		SCGranted:  result.SCGranted,
		Balance:    result.NewBalance,
	})
}

func (h *EconomyHandler) Spend(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.shop == nil {
		writeInternal(w, "SHOP_SERVICE_UNAVAILABLE", "shop service is unavailable")
		return
	}

	var req dto.SpendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.shop.PurchaseItem(r.Context(), identity.UserID, req.ItemID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, shopsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid spend payload")
		case errors.Is(err, shopsvc.ErrItemNotFound):
			writeNotFound(w, "ITEM_NOT_FOUND", "catalog item not found")
		case errors.Is(err, shopsvc.ErrInsufficientFunds):
			httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
				Code:    "INSUFFICIENT_FUNDS",
				Message: "not enough Skycrowns",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process spend")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SpendResponse{
		ItemID:        result.ItemID,
		Quantity:      result.Quantity,
		TotalSC:       result.TotalSC,
		Balance:       result.NewBalance,
		OwnedQuantity: result.OwnedQty,
	})
}

func (h *EconomyHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	if h.wallets == nil {
		writeInternal(w, "WALLET_SERVICE_UNAVAILABLE", "wallet service is unavailable")
		return
	}

	userID := chi.URLParam(r, "user_id")
	wallet, err := h.wallets.Get(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, walletsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		case errors.Is(err, walletsvc.ErrWalletNotFound):
			writeNotFound(w, "WALLET_NOT_FOUND", "wallet not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load wallet")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.WalletResponse{
		UserID:            wallet.UserID,
		SkyCrowns:         wallet.SkyCrowns,
		LifetimeEarned:    wallet.LifetimeEarned,
		LifetimePurchased: wallet.LifetimePurchased,
		UpdatedAt:         wallet.UpdatedAt,
	})
}
