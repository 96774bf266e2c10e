package channelService

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/permissions"
	"github.com/nikhil/staffhub/internal/repository"
	"github.com/nikhil/staffhub/internal/validation"
)

const privateChannelName = "Private Chat"

// ChannelService owns the channel directory and its membership rules.
type ChannelService struct {
	Channels repository.ChannelRepository
	Users    repository.UserRepository
	Log      *logger.Logger

	now   func() time.Time
	newID func() string
}

// CreateChannelRequest represents the payload for channel creation
type CreateChannelRequest struct {
	Name        string             `json:"name" validate:"notblank,max=80"`
	Type        models.ChannelType `json:"type" validate:"required,oneof=regular notice private"`
	Description string             `json:"description" validate:"max=300"`
	Members     []string           `json:"members" validate:"omitempty,dive,notblank"`
}

// MembershipRequest is the payload of add and remove member actions
type MembershipRequest struct {
	ChannelID string `json:"channelId" validate:"notblank"`
	UserID    string `json:"userId" validate:"notblank"`
}

// NewChannelService initializes a new channel service
func NewChannelService(channels repository.ChannelRepository, users repository.UserRepository, log *logger.Logger) *ChannelService {
	return &ChannelService{
		Channels: channels,
		Users:    users,
		Log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// FindActiveByID fails with NotFound when the channel is missing or inactive.
func (cs *ChannelService) FindActiveByID(ctx context.Context, channelID string) (*models.Channel, error) {
	ch, err := cs.Channels.FindActiveByID(ctx, channelID)
	if err != nil {
		cs.Log.Error("Failed to load channel", "error", err, "channel_id", channelID)
		return nil, apperrors.Internal("failed to load channel", err)
	}
	if ch == nil {
		return nil, apperrors.ErrChannelNotFound
	}
	return ch, nil
}

// FindByMemberPair returns the private channel of a and b in either order,
// or nil when none exists.
func (cs *ChannelService) FindByMemberPair(ctx context.Context, a, b string) (*models.Channel, error) {
	ch, err := cs.Channels.FindByPairKey(ctx, models.PairKey(a, b))
	if err != nil {
		cs.Log.Error("Failed to look up private channel", "error", err, "user_a", a, "user_b", b)
		return nil, apperrors.Internal("failed to load channel", err)
	}
	return ch, nil
}

func (cs *ChannelService) ListForRole(ctx context.Context, role models.Role, userID string) ([]models.Channel, error) {
	var (
		channels []models.Channel
		err      error
	)
	if permissions.CanViewAllChannels(role) {
		channels, err = cs.Channels.ListActive(ctx)
	} else {
		channels, err = cs.Channels.ListActiveForMember(ctx, userID)
	}
	if err != nil {
		cs.Log.Error("Failed to list channels", "error", err, "user_id", userID)
		return nil, apperrors.Internal("failed to list channels", err)
	}
	return channels, nil
}

// ListMemberChannelIDs returns the active channels userID belongs to, for
// room binding at connect time.
func (cs *ChannelService) ListMemberChannelIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := cs.Channels.ListMemberChannelIDs(ctx, userID)
	if err != nil {
		cs.Log.Error("Failed to list member channels", "error", err, "user_id", userID)
		return nil, apperrors.Internal("failed to list channels", err)
	}
	return ids, nil
}

// Create handles the creation of a new channel
func (cs *ChannelService) Create(ctx context.Context, creator models.User, req CreateChannelRequest) (*models.Channel, error) {
	if !permissions.CanManageChannels(creator.Role) {
		return nil, apperrors.Forbidden("create channels")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	members := uniqueMembers(req.Members)
	if len(members) == 0 {
		members = []string{creator.UserID}
	}

	pairKey := ""
	if req.Type == models.ChannelPrivate {
		if len(members) != 2 {
			return nil, apperrors.Validation("a private channel must have exactly two members")
		}
		pairKey = models.PairKey(members[0], members[1])
	}

	if err := cs.requireUsers(ctx, members); err != nil {
		return nil, err
	}

	now := cs.now()
	ch := &models.Channel{
		ChannelID:   cs.newID(),
		Name:        strings.TrimSpace(req.Name),
		Type:        req.Type,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   creator.UserID,
		Members:     members,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := cs.Channels.Create(ctx, ch, pairKey); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrPrivateChannelTaken
		}
		cs.Log.Error("Failed to create channel", "error", err, "name", ch.Name)
		return nil, apperrors.Internal("failed to create channel", err)
	}

	cs.Log.Info("Channel created", "channel_id", ch.ChannelID, "type", ch.Type, "created_by", creator.UserID)
	return ch, nil
}

// EnsurePrivate finds the private channel between actor and recipient or
// creates it. created reports whether this call inserted it. Callers check
// the role that is allowed to start the conversation.
func (cs *ChannelService) EnsurePrivate(ctx context.Context, actor models.User, recipientID string) (ch *models.Channel, created bool, err error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, false, apperrors.Validation("recipientId is required")
	}
	if recipientID == actor.UserID {
		return nil, false, apperrors.Validation("cannot start a private chat with yourself")
	}

	existing, err := cs.FindByMemberPair(ctx, actor.UserID, recipientID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if err := cs.requireUsers(ctx, []string{recipientID}); err != nil {
		return nil, false, err
	}

	now := cs.now()
	ch = &models.Channel{
		ChannelID: cs.newID(),
		Name:      privateChannelName,
		Type:      models.ChannelPrivate,
		CreatedBy: actor.UserID,
		Members:   []string{actor.UserID, recipientID},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = cs.Channels.Create(ctx, ch, models.PairKey(actor.UserID, recipientID))
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		// Lost the insert race; the winner's channel is the answer.
		winner, err := cs.FindByMemberPair(ctx, actor.UserID, recipientID)
		if err != nil {
			return nil, false, err
		}
		if winner == nil {
			return nil, false, apperrors.Internal("failed to load private channel", nil)
		}
		return winner, false, nil
	case err != nil:
		cs.Log.Error("Failed to create private channel", "error", err, "user_a", actor.UserID, "user_b", recipientID)
		return nil, false, apperrors.Internal("failed to create channel", err)
	}

	cs.Log.Info("Private channel created", "channel_id", ch.ChannelID, "user_a", actor.UserID, "user_b", recipientID)
	return ch, true, nil
}

// StartPrivate is EnsurePrivate gated on the private-chat role set.
func (cs *ChannelService) StartPrivate(ctx context.Context, actor models.User, recipientID string) (*models.Channel, bool, error) {
	if !permissions.CanStartPrivateChat(actor.Role) {
		return nil, false, apperrors.Forbidden("start private chats")
	}
	return cs.EnsurePrivate(ctx, actor, recipientID)
}

// AddMember adds req.UserID to a regular or notice channel. changed is false
// when the user already was a member.
func (cs *ChannelService) AddMember(ctx context.Context, actor models.User, req MembershipRequest) (ch *models.Channel, changed bool, err error) {
	ch, err = cs.editableChannel(ctx, actor, req)
	if err != nil {
		return nil, false, err
	}
	if err := cs.requireUsers(ctx, []string{req.UserID}); err != nil {
		return nil, false, err
	}

	changed, err = cs.Channels.AddMember(ctx, ch.ChannelID, req.UserID, cs.now())
	if err != nil {
		cs.Log.Error("Failed to add member", "error", err, "channel_id", ch.ChannelID, "user_id", req.UserID)
		return nil, false, apperrors.Internal("failed to add member", err)
	}
	if changed && !ch.HasMember(req.UserID) {
		ch.Members = append(ch.Members, req.UserID)
	}
	return ch, changed, nil
}

// RemoveMember removes req.UserID; removing a non-member changes nothing.
func (cs *ChannelService) RemoveMember(ctx context.Context, actor models.User, req MembershipRequest) (ch *models.Channel, changed bool, err error) {
	ch, err = cs.editableChannel(ctx, actor, req)
	if err != nil {
		return nil, false, err
	}

	changed, err = cs.Channels.RemoveMember(ctx, ch.ChannelID, req.UserID)
	if err != nil {
		cs.Log.Error("Failed to remove member", "error", err, "channel_id", ch.ChannelID, "user_id", req.UserID)
		return nil, false, apperrors.Internal("failed to remove member", err)
	}
	if changed {
		members := ch.Members[:0]
		for _, m := range ch.Members {
			if m != req.UserID {
				members = append(members, m)
			}
		}
		ch.Members = members
	}
	return ch, changed, nil
}

func (cs *ChannelService) editableChannel(ctx context.Context, actor models.User, req MembershipRequest) (*models.Channel, error) {
	if !permissions.CanManageChannels(actor.Role) {
		return nil, apperrors.Forbidden("manage channel members")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	ch, err := cs.FindActiveByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch.Type == models.ChannelPrivate {
		return nil, apperrors.Validation("private channel membership cannot be changed")
	}
	return ch, nil
}

func (cs *ChannelService) requireUsers(ctx context.Context, ids []string) error {
	found, err := cs.Users.FindByIDs(ctx, ids)
	if err != nil {
		cs.Log.Error("Failed to load users", "error", err)
		return apperrors.Internal("failed to load users", err)
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return apperrors.ErrUserNotFound
		}
	}
	return nil
}

func uniqueMembers(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
