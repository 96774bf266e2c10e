package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/nikhil/staffhub/internal/apperrors"
)

// ErrorResponse is the body of every failed REST call.
type ErrorResponse struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError renders err with its mapped status. Internal details stay in
// the logs.
func WriteError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		code = apperrors.CodeInternal
	}
	WriteJSON(w, apperrors.HTTPStatus(err), ErrorResponse{Code: code, Message: apperrors.PublicMessage(err)})
}
