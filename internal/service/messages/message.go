package messageService

import (
	"context"
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

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// ChannelDirectory is the part of the channel service messaging depends on.
type ChannelDirectory interface {
	FindActiveByID(ctx context.Context, channelID string) (*models.Channel, error)
	EnsurePrivate(ctx context.Context, actor models.User, recipientID string) (*models.Channel, bool, error)
}

type MessageService struct {
	Messages    repository.MessageRepository
	Channels    ChannelDirectory
	Log         *logger.Logger
	PageSize    int
	MaxPageSize int

	now   func() time.Time
	newID func() string
}

type ListMessagesRequest struct {
	ChannelID string `json:"channelId" validate:"notblank"`
	Limit     int    `json:"limit" validate:"min=0"`
	Offset    int    `json:"offset" validate:"min=0"`
}

type SendMessageRequest struct {
	ChannelID   string   `json:"channelId" validate:"notblank"`
	Text        string   `json:"text" validate:"max=4000"`
	Attachments []string `json:"attachments" validate:"omitempty,max=20,dive,notblank"`
}

type EditMessageRequest struct {
	MessageID string `json:"messageId" validate:"notblank"`
	Text      string `json:"text" validate:"max=4000"`
}

type DeleteMessageRequest struct {
	MessageID string `json:"messageId" validate:"notblank"`
}

type NoticeRequest struct {
	ChannelID string `json:"channelId" validate:"notblank"`
	Text      string `json:"text" validate:"max=4000"`
}

type PrivateSendRequest struct {
	RecipientID string   `json:"recipientId" validate:"notblank"`
	Text        string   `json:"text" validate:"max=4000"`
	Attachments []string `json:"attachments" validate:"omitempty,max=20,dive,notblank"`
}

// PrivateDelivery is the outcome of a private send.
type PrivateDelivery struct {
	Message *models.Message
	Channel *models.Channel
	Created bool
}

func NewMessageService(messages repository.MessageRepository, channels ChannelDirectory, pageSize, maxPage int, log *logger.Logger) *MessageService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if maxPage <= 0 {
		maxPage = maxPageSize
	}
	if pageSize > maxPage {
		pageSize = maxPage
	}
	return &MessageService{
		Messages:    messages,
		Channels:    channels,
		Log:         log,
		PageSize:    pageSize,
		MaxPageSize: maxPage,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// canRead admits members and the privileged roles, whatever the channel type.
func canRead(actor models.User, ch *models.Channel) bool {
	return ch.HasMember(actor.UserID) || permissions.Allows(actor.Role, permissions.ReadAnyChannel)
}

func authorizePost(actor models.User, ch *models.Channel) error {
	if ch.Type == models.ChannelNotice {
		if !permissions.CanPostNotice(actor.Role) {
			return apperrors.ErrNoticeOwnerOnly
		}
		return nil
	}
	if ch.HasMember(actor.UserID) || permissions.Allows(actor.Role, permissions.PostAnyChannel) {
		return nil
	}
	return apperrors.ErrNotChannelMember
}

// List returns a page of the channel's history in chronological order.
func (ms *MessageService) List(ctx context.Context, actor models.User, req ListMessagesRequest) ([]models.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	ch, err := ms.Channels.FindActiveByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, ch) {
		return nil, apperrors.ErrNotChannelMember
	}

	limit := req.Limit
	if limit == 0 {
		limit = ms.PageSize
	}
	if limit > ms.MaxPageSize {
		limit = ms.MaxPageSize
	}

	messages, err := ms.Messages.ListRecent(ctx, ch.ChannelID, limit, req.Offset)
	if err != nil {
		ms.Log.Error("Failed to list messages", "error", err, "channel_id", ch.ChannelID)
		return nil, apperrors.Internal("failed to list messages", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (ms *MessageService) Send(ctx context.Context, actor models.User, req SendMessageRequest) (*models.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	ch, err := ms.Channels.FindActiveByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if err := authorizePost(actor, ch); err != nil {
		return nil, err
	}
	return ms.save(ctx, actor, ch, req.Text, req.Attachments)
}

// SendNotice posts to a notice channel. Only the Owner may do so.
func (ms *MessageService) SendNotice(ctx context.Context, actor models.User, req NoticeRequest) (*models.Message, error) {
	if !permissions.CanPostNotice(actor.Role) {
		return nil, apperrors.ErrNoticeOwnerOnly
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	ch, err := ms.Channels.FindActiveByID(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch.Type != models.ChannelNotice {
		return nil, apperrors.Validation("channel is not a notice channel")
	}
	return ms.save(ctx, actor, ch, req.Text, nil)
}

// SendPrivate finds or creates the private channel with the recipient and
// posts into it.
func (ms *MessageService) SendPrivate(ctx context.Context, actor models.User, req PrivateSendRequest) (*PrivateDelivery, error) {
	if !permissions.Allows(actor.Role, permissions.SendPrivateMessage) {
		return nil, apperrors.Forbidden("send private messages")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	ch, created, err := ms.Channels.EnsurePrivate(ctx, actor, req.RecipientID)
	if err != nil {
		return nil, err
	}
	msg, err := ms.save(ctx, actor, ch, req.Text, req.Attachments)
	if err != nil {
		return nil, err
	}
	return &PrivateDelivery{Message: msg, Channel: ch, Created: created}, nil
}

func (ms *MessageService) save(ctx context.Context, actor models.User, ch *models.Channel, text string, attachments []string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	if attachments == nil {
		attachments = []string{}
	}

	author := actor.Summary()
	msg := &models.Message{
		MessageID:   ms.newID(),
		ChannelID:   ch.ChannelID,
		AuthorID:    actor.UserID,
		Author:      &author,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   ms.now(),
	}
	if err := ms.Messages.Create(ctx, msg); err != nil {
		ms.Log.Error("Failed to save message", "error", err, "channel_id", ch.ChannelID, "user_id", actor.UserID)
		return nil, apperrors.Internal("failed to send message", err)
	}
	return msg, nil
}

// Edit rewrites a message's text. Only its author may edit, whatever the role.
func (ms *MessageService) Edit(ctx context.Context, actor models.User, req EditMessageRequest) (*models.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	msg, err := ms.find(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actor.UserID {
		return nil, apperrors.ErrNotMessageAuthor
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	editedAt := ms.now()
	updated, err := ms.Messages.UpdateText(ctx, msg.MessageID, text, editedAt)
	if err != nil {
		ms.Log.Error("Failed to edit message", "error", err, "message_id", msg.MessageID)
		return nil, apperrors.Internal("failed to edit message", err)
	}
	if !updated {
		return nil, apperrors.ErrMessageNotFound
	}

	msg.Text = text
	msg.IsEdited = true
	msg.EditedAt = &editedAt
	return msg, nil
}

// Delete removes a message for its author or a moderator and returns what was removed.
func (ms *MessageService) Delete(ctx context.Context, actor models.User, req DeleteMessageRequest) (*models.Message, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	msg, err := ms.find(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actor.UserID && !permissions.CanModerateMessages(actor.Role) {
		return nil, apperrors.Forbidden("delete this message")
	}

	deleted, err := ms.Messages.Delete(ctx, msg.MessageID)
	if err != nil {
		ms.Log.Error("Failed to delete message", "error", err, "message_id", msg.MessageID)
		return nil, apperrors.Internal("failed to delete message", err)
	}
	if !deleted {
		return nil, apperrors.ErrMessageNotFound
	}
	return msg, nil
}

func (ms *MessageService) find(ctx context.Context, id string) (*models.Message, error) {
	msg, err := ms.Messages.FindByID(ctx, id)
	if err != nil {
		ms.Log.Error("Failed to load message", "error", err, "message_id", id)
		return nil, apperrors.Internal("failed to load message", err)
	}
	if msg == nil {
		return nil, apperrors.ErrMessageNotFound
	}
	return msg, nil
}
