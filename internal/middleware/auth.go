package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/permissions"
)

type ContextKey string

const UserContextKey ContextKey = "currentUser"

// Authenticator resolves a bearer credential into the current user.
type Authenticator interface {
	ResolveFromCredential(ctx context.Context, token string) (models.User, error)
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

// AuthMiddleware rejects requests without a valid Authorization bearer token.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return authenticate(auth, bearerToken)
}

// WebSocketAuthMiddleware also accepts the token query parameter, since
// browsers cannot set headers on the upgrade request. It runs before the
// upgrade so a bad credential is a plain 401.
func WebSocketAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return authenticate(auth, func(r *http.Request) string {
		if token := bearerToken(r); token != "" {
			return token
		}
		return r.URL.Query().Get("token")
	})
}

func authenticate(auth Authenticator, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.ResolveFromCredential(r.Context(), extract(r))
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAction lets through only callers whose role allows action. It must
// run after AuthMiddleware.
func RequireAction(action permissions.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteError(w, apperrors.ErrMissingToken)
				return
			}
			if !permissions.Allows(user.Role, action) {
				WriteError(w, apperrors.Forbidden(string(action)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ResponseWrapperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
