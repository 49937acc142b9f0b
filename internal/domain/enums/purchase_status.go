package enums

type PurchaseStatus string

// Refunded is reachable only from Verified; verified and failed never
// transition between each other.
const (
	PurchaseStatusPending  PurchaseStatus = "pending"
	PurchaseStatusVerified PurchaseStatus = "verified"
	PurchaseStatusFailed   PurchaseStatus = "failed"
	PurchaseStatusRefunded PurchaseStatus = "refunded"
)
