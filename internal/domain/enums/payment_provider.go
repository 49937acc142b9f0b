package enums

import "strings"

type PaymentProvider string

const (
	PaymentProviderGooglePlay PaymentProvider = "google_play"
	PaymentProviderAppleIAP   PaymentProvider = "apple_iap"
	PaymentProviderStripe     PaymentProvider = "stripe"
)

func ParsePaymentProvider(raw string) (PaymentProvider, bool) {
	switch PaymentProvider(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentProviderGooglePlay:
		return PaymentProviderGooglePlay, true
	case PaymentProviderAppleIAP:
		return PaymentProviderAppleIAP, true
	case PaymentProviderStripe:
		return PaymentProviderStripe, true
	default:
		return "", false
	}
}
