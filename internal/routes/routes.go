package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/staffhub/internal/handlers"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/middleware"
)

// Dependencies are the handlers and middleware the route modules mount.
type Dependencies struct {
	Log          *logger.Logger
	Auth         middleware.Authenticator
	AuthHandler  *handlers.AuthHandler
	Profile      *handlers.ProfileHandler
	Attendance   *handlers.AttendanceHandler
	Availability *handlers.AvailabilityHandler
	WebSocket    *handlers.WebSocketHandler
	Health       *handlers.HealthHandler
	Metrics      http.Handler
}

// List of all route registration functions
var routeModules = []func(*mux.Router, *Dependencies){
	RegisterAuthRoutes,
	UserProfileRoutes,
	AttendanceRoutes,
	AvailabilityRoutes,
	RegisterWebSocketRoutes,
	OpsRoutes,
}

// Register all routes dynamically
func RegisterAllRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Recover(deps.Log), middleware.AccessLog(deps.Log))

	for _, register := range routeModules {
		register(router, deps)
	}

	return router
}
