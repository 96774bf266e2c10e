package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/models"
	availabilityService "github.com/nikhil/staffhub/internal/service/availability"
)

type AvailabilityService interface {
	SetAvailability(ctx context.Context, userID string, req availabilityService.SetAvailabilityRequest) (models.AvailabilityRecord, error)
	GetAvailability(ctx context.Context, userID string) (models.AvailabilityRecord, error)
	ListTeamAvailability(ctx context.Context) ([]models.TeamAvailability, error)
}

type AvailabilityHandler struct {
	Service AvailabilityService
}

func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: service}
}

// defaultAvailability is what callers without a live record see.
type defaultAvailability struct {
	Status models.AvailabilityStatus `json:"status"`
}

func (h *AvailabilityHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	var req availabilityService.SetAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, apperrors.Validation("invalid request payload"))
		return
	}

	record, err := h.Service.SetAvailability(r.Context(), caller.UserID, req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, record)
}

func (h *AvailabilityHandler) GetMyAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	record, err := h.Service.GetAvailability(r.Context(), caller.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !record.Present() {
		middleware.WriteJSON(w, http.StatusOK, defaultAvailability{Status: models.StatusUnavailable})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, record)
}

// GetTeamAvailability is mounted behind RequireAction(ViewTeamAvailability).
func (h *AvailabilityHandler) GetTeamAvailability(w http.ResponseWriter, r *http.Request) {
	team, err := h.Service.ListTeamAvailability(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, team)
}
