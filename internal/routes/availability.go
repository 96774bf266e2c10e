package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/permissions"
)

func AttendanceRoutes(router *mux.Router, deps *Dependencies) {
	protectedRouter := router.PathPrefix("/attendance").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware(deps.Auth), middleware.ResponseWrapperMiddleware)
	protectedRouter.HandleFunc("/check-in", deps.Attendance.CheckIn).Methods(http.MethodPost)
	protectedRouter.HandleFunc("/check-out", deps.Attendance.CheckOut).Methods(http.MethodPost)
}

func AvailabilityRoutes(router *mux.Router, deps *Dependencies) {
	authenticated := middleware.AuthMiddleware(deps.Auth)
	router.Handle("/availability", authenticated(http.HandlerFunc(deps.Availability.SetAvailability))).Methods(http.MethodPost)

	protectedRouter := router.PathPrefix("/availability").Subrouter()
	protectedRouter.Use(authenticated, middleware.ResponseWrapperMiddleware)
	protectedRouter.HandleFunc("/me", deps.Availability.GetMyAvailability).Methods(http.MethodGet)
	protectedRouter.Handle("/team",
		middleware.RequireAction(permissions.ViewTeamAvailability)(http.HandlerFunc(deps.Availability.GetTeamAvailability))).Methods(http.MethodGet)
}
