package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/auth"
	progresssvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/progress"
	ratesvc "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/services/rate"
	"github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/dto"
	httperrors "github.com/komparedocers/1-game-crownborn-shattered-lineage/internal/transport/http/errors"
)

type ProgressHandler struct {
	service *progresssvc.Service
	limiter *ratesvc.Limiter
}

func NewProgressHandler(service *progresssvc.Service, limiter *ratesvc.Limiter) *ProgressHandler {
	return &ProgressHandler{service: service, limiter: limiter}
}

func (h *ProgressHandler) SubmitStage(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}

	if h.limiter != nil {
		if retryAfter, ok, _ := h.limiter.AllowStageSubmit(r.Context(), identity.UserID); !ok {
			writeRateLimited(w, "RATE_LIMITED", "too many stage submissions", retryAfter)
			return
		}
	}

	var req dto.SubmitStageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.SubmitStage(r.Context(), identity.UserID, req.Stage, req.TimeMS, req.Deaths, req.Stars, req.Completed)
	if err != nil {
		if errors.Is(err, progresssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid stage submission")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to record stage submission")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SubmitStageResponse{
		Stage:      result.Record.Stage,
		BestTimeMS: result.Record.BestTimeMS,
		IsBestTime: result.IsBestTime,
		Stars:      result.Record.Stars,
		Completed:  result.Record.Completed,
		RewardSC:   result.RewardSC,
		Balance:    result.NewBalance,
	})
}

func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PROGRESS_SERVICE_UNAVAILABLE", "progress service is unavailable")
		return
	}

	userID := chi.URLParam(r, "user_id")
	records, err := h.service.GetProgress(r.Context(), userID)
	if err != nil {
		if errors.Is(err, progresssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load progress")
		return
	}

	out := make([]dto.ProgressEntryResponse, 0, len(records))
	for _, record := range records {
		out = append(out, dto.ProgressEntryResponse{
			Stage:      record.Stage,
			BestTimeMS: record.BestTimeMS,
			Deaths:     record.Deaths,
			Stars:      record.Stars,
			Completed:  record.Completed,
			UpdatedAt:  record.UpdatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, out)
}
