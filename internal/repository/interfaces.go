// Package repository is the MySQL persistence layer. Lookups return (nil, nil)
// when the row does not exist.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nikhil/staffhub/internal/models"
)

// ErrDuplicate is returned when an insert hits a unique key.
var ErrDuplicate = errors.New("duplicate key")

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	ListActiveExcludingRole(ctx context.Context, role models.Role) ([]models.User, error)
}

type ChannelRepository interface {
	// Create inserts the channel and its members atomically. pairKey is only
	// set for private channels; a taken pair yields ErrDuplicate.
	Create(ctx context.Context, ch *models.Channel, pairKey string) error
	FindActiveByID(ctx context.Context, id string) (*models.Channel, error)
	FindByPairKey(ctx context.Context, pairKey string) (*models.Channel, error)
	ListActive(ctx context.Context) ([]models.Channel, error)
	ListActiveForMember(ctx context.Context, userID string) ([]models.Channel, error)
	ListMemberChannelIDs(ctx context.Context, userID string) ([]string, error)
	// AddMember and RemoveMember are single statements and report whether
	// the member set changed.
	AddMember(ctx context.Context, channelID, userID string, at time.Time) (bool, error)
	RemoveMember(ctx context.Context, channelID, userID string) (bool, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	// ListRecent returns messages newest first.
	ListRecent(ctx context.Context, channelID string, limit, offset int) ([]models.Message, error)
	UpdateText(ctx context.Context, id, text string, editedAt time.Time) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type AttendanceRepository interface {
	FindOpen(ctx context.Context, userID string) (*models.AttendanceRecord, error)
	Create(ctx context.Context, rec *models.AttendanceRecord) error
	// CloseOpen stamps the open session's check-out time; false means there was none.
	CloseOpen(ctx context.Context, userID string, at time.Time) (bool, error)
}
