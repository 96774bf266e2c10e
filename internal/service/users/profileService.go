package profileService

import (
	"context"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/permissions"
	"github.com/nikhil/staffhub/internal/repository"
)

type ProfileService struct {
	Users repository.UserRepository
	Log   *logger.Logger
}

func NewProfileService(users repository.UserRepository, log *logger.Logger) *ProfileService {
	return &ProfileService{Users: users, Log: log}
}

func (p *ProfileService) GetUserProfile(ctx context.Context, userID string) (models.User, error) {
	user, err := p.Users.FindByID(ctx, userID)
	if err != nil {
		p.Log.Error("Failed to load profile", "error", err, "user_id", userID)
		return models.User{}, apperrors.Internal("failed to load profile", err)
	}
	if user == nil {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return *user, nil
}

// ListEmployees returns the active users an Owner can open a direct chat with.
func (p *ProfileService) ListEmployees(ctx context.Context, actor models.User) ([]models.User, error) {
	if !permissions.Allows(actor.Role, permissions.ListEmployees) {
		return nil, apperrors.Forbidden("list employees")
	}
	users, err := p.Users.ListActiveExcludingRole(ctx, models.RoleOwner)
	if err != nil {
		p.Log.Error("Failed to list employees", "error", err)
		return nil, apperrors.Internal("failed to list employees", err)
	}
	return users, nil
}
