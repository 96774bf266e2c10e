package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/staffhub/internal/middleware"
	"github.com/nikhil/staffhub/internal/permissions"
)

func RegisterAuthRoutes(router *mux.Router, deps *Dependencies) {
	// Public routes without auth middleware
	publicRouter := router.PathPrefix("/auth").Subrouter()
	publicRouter.Use(middleware.ResponseWrapperMiddleware)
	publicRouter.HandleFunc("/login", deps.AuthHandler.Login).Methods(http.MethodPost)
}

func UserProfileRoutes(router *mux.Router, deps *Dependencies) {
	protectedRouter := router.PathPrefix("/user").Subrouter()
	protectedRouter.Use(middleware.AuthMiddleware(deps.Auth), middleware.ResponseWrapperMiddleware)
	protectedRouter.HandleFunc("/profile", deps.Profile.GetUserProfile).Methods(http.MethodGet)
	protectedRouter.Handle("/employees",
		middleware.RequireAction(permissions.ListEmployees)(http.HandlerFunc(deps.Profile.ListEmployees))).Methods(http.MethodGet)
}
