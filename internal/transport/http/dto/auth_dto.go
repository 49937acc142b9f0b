package dto

type RegisterRequest struct {
	DisplayName string            `json:"display_name"`
	Gender      string            `json:"gender,omitempty"`
	CountryCode string            `json:"country_code,omitempty"`
	PlatformIDs map[string]string `json:"platform_ids,omitempty"`
}

type TokenRequest struct {
	UserID      string            `json:"user_id,omitempty"`
	PlatformIDs map[string]string `json:"platform_ids,omitempty"`
}

type AuthTokensResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
