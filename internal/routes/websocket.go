package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/staffhub/internal/middleware"
)

// RegisterWebSocketRoutes registers all WebSocket related routes
func RegisterWebSocketRoutes(router *mux.Router, deps *Dependencies) {
	// Credentials come from the Authorization header or the token query parameter.
	router.Handle("/ws", middleware.WebSocketAuthMiddleware(deps.Auth)(http.HandlerFunc(deps.WebSocket.HandleWebSocket))).Methods(http.MethodGet)
}

// OpsRoutes mounts unauthenticated health and metrics endpoints.
func OpsRoutes(router *mux.Router, deps *Dependencies) {
	router.HandleFunc("/healthz", deps.Health.Healthz).Methods(http.MethodGet)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}
}
