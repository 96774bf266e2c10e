package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/models"
)

type AttendanceService interface {
	CheckIn(ctx context.Context, userID string) (models.AttendanceRecord, error)
	CheckOut(ctx context.Context, userID string) (time.Time, error)
}

type AttendanceHandler struct {
	Service AttendanceService
}

func NewAttendanceHandler(service AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{Service: service}
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	record, err := h.Service.CheckIn(r.Context(), caller.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, record)
}

// CheckOut closes the caller's session, which also clears their availability.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	at, err := h.Service.CheckOut(r.Context(), caller.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"userId": caller.UserID, "checkOutTime": at})
}
