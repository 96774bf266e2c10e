package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/models"
	services "github.com/nikhil/staffhub/internal/service/auth"
	"github.com/nikhil/staffhub/internal/validation"
)

type AuthHandler struct {
	Service *services.AuthService
}

// NewAuthHandler creates a new instance of AuthHandler
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: service}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login handles the user authentication request
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var credentials LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		middleware.WriteError(w, apperrors.Validation("invalid request payload"))
		return
	}
	if err := validation.Struct(credentials); err != nil {
		middleware.WriteError(w, err)
		return
	}

	token, user, err := h.Service.Login(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}
