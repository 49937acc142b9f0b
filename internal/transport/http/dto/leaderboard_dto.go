package dto

type LeaderboardEntryResponse struct {
	Rank        int64  `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
	Score       int64  `json:"score"`
	Stage       *int   `json:"stage,omitempty"`
}

type UserRankResponse struct {
	UserID string `json:"user_id"`
	Mode   string `json:"mode"`
	Rank   int64  `json:"rank"`
	Score  int64  `json:"score"`
}
