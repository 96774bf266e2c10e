package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/config"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository"
)

// Claims carried in every session token.
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users  repository.UserRepository
	Log    *logger.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(users repository.UserRepository, cfg config.JWTConfig, log *logger.Logger) *AuthService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		Users:  users,
		Log:    log,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.Users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		s.Log.Error("Failed to look up user", "error", err)
		return "", models.User{}, apperrors.Internal("failed to log in", err)
	}
	if user == nil {
		return "", models.User{}, apperrors.ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		s.Log.Warn("Invalid password", "user_id", user.UserID)
		return "", models.User{}, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return "", models.User{}, apperrors.ErrUserInactive
	}

	token, err := s.GenerateJWT(*user)
	if err != nil {
		s.Log.Error("Failed to sign token", "error", err, "user_id", user.UserID)
		return "", models.User{}, apperrors.Internal("failed to log in", err)
	}

	s.Log.Audit("User logged in", "user_id", user.UserID, "role", user.Role)
	return token, *user, nil
}

// GenerateJWT creates a JWT token for authentication
func (s *AuthService) GenerateJWT(user models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.UserID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// ParseToken verifies the signature and expiry of token.
func (s *AuthService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user id")
	}
	return claims, nil
}

// ResolveFromCredential turns a bearer token into the current user record.
// The role always comes from the user directory, not from the token.
func (s *AuthService) ResolveFromCredential(ctx context.Context, token string) (models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, apperrors.ErrMissingToken
	}

	claims, err := s.ParseToken(token)
	if err != nil {
		s.Log.Debug("Rejected token", "error", err)
		return models.User{}, apperrors.ErrInvalidToken
	}
	return s.ResolveUser(ctx, claims.UserID)
}

// ResolveUser loads an active user by id, failing with an authentication error
// when the user is gone or disabled.
func (s *AuthService) ResolveUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		s.Log.Error("Failed to resolve user", "error", err, "user_id", userID)
		return models.User{}, apperrors.Internal("failed to resolve user", err)
	}
	if user == nil {
		return models.User{}, apperrors.ErrInvalidToken
	}
	if !user.IsActive() {
		return models.User{}, apperrors.ErrUserInactive
	}
	return *user, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
