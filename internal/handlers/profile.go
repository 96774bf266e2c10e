package handlers

import (
	"net/http"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/middleware"
	profileService "github.com/nikhil/staffhub/internal/service/users"
)

type ProfileHandler struct {
	Service *profileService.ProfileService
}

func NewProfileHandler(service *profileService.ProfileService) *ProfileHandler {
	return &ProfileHandler{Service: service}
}

// GetUserProfile returns the caller's own profile.
func (h *ProfileHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	user, err := h.Service.GetUserProfile(r.Context(), caller.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, user)
}

// ListEmployees is the REST twin of the employees:get websocket action.
func (h *ProfileHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperrors.ErrMissingToken)
		return
	}
	users, err := h.Service.ListEmployees(r.Context(), caller)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, users)
}
