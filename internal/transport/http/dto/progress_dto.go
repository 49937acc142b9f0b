package dto

import "time"

type SubmitStageRequest struct {
	Stage     int   `json:"stage"`
	TimeMS    int64 `json:"time_ms"`
	Deaths    int   `json:"deaths"`
	Stars     int   `json:"stars"`
	Completed bool  `json:"completed"`
}

type SubmitStageResponse struct {
	Stage      int    `json:"stage"`
	BestTimeMS *int64 `json:"best_time_ms,omitempty"`
	IsBestTime bool   `json:"is_best_time"`
	Stars      int    `json:"stars"`
	Completed  bool   `json:"completed"`
	RewardSC   int64  `json:"reward_sc"`
	Balance    int64  `json:"balance"`
}

type ProgressEntryResponse struct {
	Stage      int       `json:"stage"`
	BestTimeMS *int64    `json:"best_time_ms,omitempty"`
	Deaths     int       `json:"deaths"`
	Stars      int       `json:"stars"`
	Completed  bool      `json:"completed"`
	UpdatedAt  time.Time `json:"updated_at"`
}
