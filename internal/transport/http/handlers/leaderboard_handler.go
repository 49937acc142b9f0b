package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	leaderboardsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/leaderboard"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/dto"
	httperrors "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/errors"
)

type LeaderboardHandler struct {
	service *leaderboardsvc.Service
}

func NewLeaderboardHandler(service *leaderboardsvc.Service) *LeaderboardHandler {
	return &LeaderboardHandler{service: service}
}

func (h *LeaderboardHandler) Global(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "LEADERBOARD_SERVICE_UNAVAILABLE", "leaderboard service is unavailable")
		return
	}

	mode, err := leaderboardsvc.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown leaderboard mode")
		return
	}
	limit, offset := pageParams(r)

	entries, err := h.service.Global(r.Context(), mode, r.URL.Query().Get("country"), limit, offset)
	if err != nil {
		if errors.Is(err, leaderboardsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid leaderboard request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load leaderboard")
		return
	}

	httperrors.Write(w, http.StatusOK, toLeaderboardResponse(entries))
}

func (h *LeaderboardHandler) Stage(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "LEADERBOARD_SERVICE_UNAVAILABLE", "leaderboard service is unavailable")
		return
	}

	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil || stage <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid stage number")
		return
	}
	limit, offset := pageParams(r)

	entries, err := h.service.Stage(r.Context(), stage, r.URL.Query().Get("country"), limit, offset)
	if err != nil {
		if errors.Is(err, leaderboardsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid leaderboard request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load stage leaderboard")
		return
	}

	httperrors.Write(w, http.StatusOK, toLeaderboardResponse(entries))
}

func (h *LeaderboardHandler) UserRank(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "LEADERBOARD_SERVICE_UNAVAILABLE", "leaderboard service is unavailable")
		return
	}

	mode, err := leaderboardsvc.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown leaderboard mode")
		return
	}

	rank, err := h.service.Rank(r.Context(), chi.URLParam(r, "user_id"), mode)
	if err != nil {
		if errors.Is(err, leaderboardsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid rank request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load user rank")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UserRankResponse{
		UserID: rank.UserID,
		Mode:   string(rank.Mode),
		Rank:   rank.Rank,
		Score:  rank.Score,
	})
}

func pageParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func toLeaderboardResponse(entries []leaderboardsvc.Entry) []dto.LeaderboardEntryResponse {
	out := make([]dto.LeaderboardEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.LeaderboardEntryResponse{
			Rank:        entry.Rank,
			UserID:      entry.UserID,
			DisplayName: entry.DisplayName,
			CountryCode: entry.CountryCode,
			Score:       entry.Score,
			Stage:       entry.Stage,
		})
	}
	return out
}
