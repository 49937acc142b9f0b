package dto

import "time"

type WalletResponse struct {
	UserID            string    `json:"user_id"`
	SkyCrowns         int64     `json:"sky_crowns"`
	LifetimeEarned    int64     `json:"lifetime_earned"`
	LifetimePurchased int64     `json:"lifetime_purchased"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type IAPPackageResponse struct {
	PackageID string `json:"package_id"`
	SC        int64  `json:"sc"`
	USDCents  int    `json:"usd_cents"`
}

type CatalogItemResponse struct {
	ItemID      string         `json:"item_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Tier        int            `json:"tier"`
	PriceSC     int64          `json:"price_sc"`
	Meta        map[string]any `json:"meta,omitempty"`
}

type PurchaseIAPRequest struct {
	Provider  string `json:"provider"`
	ReceiptID string `json:"receipt_id"`
	PackageID string `json:"package_id,omitempty"`
}

type PurchaseIAPResponse struct {
	PurchaseID string `json:"purchase_id"`
	PackageID  string `json:"package_id,omitempty"`
	SCGranted  int64  `json:"sc_granted"`
	Balance    int64  `json:"balance"`
}

type SpendRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type SpendResponse struct {
	ItemID        string `json:"item_id"`
	Quantity      int    `json:"quantity"`
	TotalSC       int64  `json:"total_sc"`
	Balance       int64  `json:"balance"`
	OwnedQuantity int    `json:"owned_quantity"`
}
