package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/config"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository/repotest"
)

const testSecret = "test-secret"

func newTestService(t *testing.T, users ...models.User) (*AuthService, *repotest.Users) {
	t.Helper()
	repo := repotest.NewUsers(users...)
	svc := NewAuthService(repo, config.JWTConfig{Secret: testSecret, TTL: time.Hour}, logger.NewNop())
	return svc, repo
}

func activeUser(t *testing.T, id, email, password string, role models.Role) models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return models.User{UserID: id, Email: email, PasswordHash: hash, FirstName: "Test", Role: role, Status: models.UserActive}
}

func TestLogin_IssuesTokenThatResolves(t *testing.T) {
	u := activeUser(t, "u-1", "dev@example.com", "s3cret", models.RoleDeveloper)
	svc, _ := newTestService(t, u)

	token, user, err := svc.Login(context.Background(), "dev@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "u-1", user.UserID)

	resolved, err := svc.ResolveFromCredential(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDeveloper, resolved.Role)
}

func TestLogin_Failures(t *testing.T) {
	active := activeUser(t, "u-1", "a@example.com", "right", models.RoleDeveloper)
	inactive := activeUser(t, "u-2", "b@example.com", "right", models.RoleDeveloper)
	inactive.Status = models.UserInactive
	svc, _ := newTestService(t, active, inactive)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown email", "nobody@example.com", "right", apperrors.ErrInvalidCredentials},
		{"wrong password", "a@example.com", "wrong", apperrors.ErrInvalidCredentials},
		{"inactive user", "b@example.com", "right", apperrors.ErrUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
		})
	}
}

func TestLogin_StoreErrorIsInternal(t *testing.T) {
	svc, repo := newTestService(t)
	repo.Err = errors.New("db down")

	_, _, err := svc.Login(context.Background(), "a@example.com", "x")
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	assert.Equal(t, "internal error", apperrors.PublicMessage(err))
}

func TestResolveFromCredential_Rejections(t *testing.T) {
	u := activeUser(t, "u-1", "a@example.com", "pw", models.RoleTeamLead)
	svc, repo := newTestService(t, u)

	valid, err := svc.GenerateJWT(u)
	require.NoError(t, err)

	ghost, err := svc.GenerateJWT(models.User{UserID: "ghost"})
	require.NoError(t, err)

	otherKey := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u-1"})
	forged, err := otherKey.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	t.Run("missing", func(t *testing.T) {
		_, err := svc.ResolveFromCredential(context.Background(), "  ")
		assert.ErrorIs(t, err, apperrors.ErrMissingToken)
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := svc.ResolveFromCredential(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
	t.Run("wrong signature", func(t *testing.T) {
		_, err := svc.ResolveFromCredential(context.Background(), forged)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.ResolveFromCredential(context.Background(), ghost)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ResolveFromCredential(context.Background(), valid)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
	t.Run("deactivated after issue", func(t *testing.T) {
		disabled := u
		disabled.Status = models.UserInactive
		repo.Put(disabled)
		_, err := svc.ResolveFromCredential(context.Background(), valid)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})
}

func TestResolveFromCredential_RoleComesFromDirectory(t *testing.T) {
	u := activeUser(t, "u-1", "a@example.com", "pw", models.RoleDeveloper)
	svc, repo := newTestService(t, u)

	token, err := svc.GenerateJWT(u)
	require.NoError(t, err)

	promoted := u
	promoted.Role = models.RoleProjectManager
	repo.Put(promoted)

	resolved, err := svc.ResolveFromCredential(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectManager, resolved.Role)
}
