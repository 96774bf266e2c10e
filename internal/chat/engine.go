// Package chat dispatches websocket actions to the channel and message
// services and fans the results out through the realtime hub.
package chat

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/metrics"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/realtime"
	channelService "github.com/nikhil/staffhub/internal/service/channels"
	messageService "github.com/nikhil/staffhub/internal/service/messages"
)

// Outbound event names.
const (
	EventUserData            = "user:data"
	EventChannelCreated      = "channel:created"
	EventChannelAdded        = "channel:added"
	EventChannelMemberAdded  = "channel:memberAdded"
	EventChannelRemoved      = "channel:removed"
	EventChannelMemberRemove = "channel:memberRemoved"
	EventChannelNew          = "channel:new"
	EventMessageNew          = "message:new"
	EventMessageEdited       = "message:edited"
	EventMessageDeleted      = "message:deleted"
	EventNoticeNew           = "notice:new"
	EventTypingUser          = "typing:user"
	EventPrivateMessage      = "private:message"
)

type ChannelDirectory interface {
	ListForRole(ctx context.Context, role models.Role, userID string) ([]models.Channel, error)
	ListMemberChannelIDs(ctx context.Context, userID string) ([]string, error)
	Create(ctx context.Context, creator models.User, req channelService.CreateChannelRequest) (*models.Channel, error)
	AddMember(ctx context.Context, actor models.User, req channelService.MembershipRequest) (*models.Channel, bool, error)
	RemoveMember(ctx context.Context, actor models.User, req channelService.MembershipRequest) (*models.Channel, bool, error)
	StartPrivate(ctx context.Context, actor models.User, recipientID string) (*models.Channel, bool, error)
}

type MessageStore interface {
	List(ctx context.Context, actor models.User, req messageService.ListMessagesRequest) ([]models.Message, error)
	Send(ctx context.Context, actor models.User, req messageService.SendMessageRequest) (*models.Message, error)
	SendNotice(ctx context.Context, actor models.User, req messageService.NoticeRequest) (*models.Message, error)
	SendPrivate(ctx context.Context, actor models.User, req messageService.PrivateSendRequest) (*messageService.PrivateDelivery, error)
	Edit(ctx context.Context, actor models.User, req messageService.EditMessageRequest) (*models.Message, error)
	Delete(ctx context.Context, actor models.User, req messageService.DeleteMessageRequest) (*models.Message, error)
}

type EmployeeDirectory interface {
	ListEmployees(ctx context.Context, actor models.User) ([]models.User, error)
}

// UserResolver re-reads a connected user. Only used when role refresh is on.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (models.User, error)
}

type Options struct {
	// RefreshRole re-resolves the caller before every action instead of
	// trusting the handshake snapshot.
	RefreshRole bool
}

type action func(ctx context.Context, c *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error)

// Engine implements realtime.Handler for chat connections.
type Engine struct {
	hub       *realtime.Hub
	channels  ChannelDirectory
	messages  MessageStore
	employees EmployeeDirectory
	users     UserResolver
	opts      Options
	log       *logger.Logger
	metrics   metrics.Recorder
	actions   map[string]action
}

func NewEngine(hub *realtime.Hub, channels ChannelDirectory, messages MessageStore, employees EmployeeDirectory, users UserResolver, opts Options, rec metrics.Recorder, log *logger.Logger) *Engine {
	if rec == nil {
		rec = metrics.Nop{}
	}
	e := &Engine{
		hub:       hub,
		channels:  channels,
		messages:  messages,
		employees: employees,
		users:     users,
		opts:      opts,
		log:       log,
		metrics:   rec,
	}
	e.actions = map[string]action{
		"channels:get":         e.getChannels,
		"channel:create":       e.createChannel,
		"channel:addMember":    e.addMember,
		"channel:removeMember": e.removeMember,
		"messages:get":         e.getMessages,
		"message:send":         e.sendMessage,
		"message:edit":         e.editMessage,
		"message:delete":       e.deleteMessage,
		"notice:send":          e.sendNotice,
		"typing:start":         e.typing(true),
		"typing:stop":          e.typing(false),
		"employees:get":        e.getEmployees,
		"private:create":       e.createPrivate,
		"private:send":         e.sendPrivate,
	}
	return e
}

// Connect registers c with the hub, subscribes it to its member channels and
// pushes the identity snapshot. Registration comes first so memberships
// granted while the channel list is loading still reach this connection.
func (e *Engine) Connect(ctx context.Context, c *realtime.Client) error {
	user := c.User()
	log := e.log.WithUser(user.UserID)

	e.hub.Register(c)
	ids, err := e.channels.ListMemberChannelIDs(ctx, user.UserID)
	if err != nil {
		e.hub.Unregister(c)
		return err
	}
	for _, id := range ids {
		e.hub.Join(c, realtime.ChannelRoom(id))
	}
	c.Emit(EventUserData, user)

	log.Info("User connected", "client_id", c.ID, "channels", len(ids))
	return nil
}

// HandleEvent runs one inbound action.
func (e *Engine) HandleEvent(ctx context.Context, c *realtime.Client, event string, data json.RawMessage) (interface{}, error) {
	log := e.log.WithUser(c.UserID())
	run, ok := e.actions[event]
	if !ok {
		e.metrics.RecordEvent("unknown", metrics.OutcomeError)
		log.Warn("Unknown event", "event", event)
		return nil, apperrors.Validation("unknown event " + event)
	}

	actor, err := e.actor(ctx, c)
	if err == nil {
		var result interface{}
		result, err = run(ctx, c, actor, data)
		if err == nil {
			e.metrics.RecordEvent(event, metrics.OutcomeOK)
			return result, nil
		}
	}

	e.metrics.RecordEvent(event, metrics.OutcomeError)
	if apperrors.HasCode(err, apperrors.CodeInternal) {
		log.Error("Event failed", "event", event, "error", err)
	} else {
		log.Warn("Event rejected", "event", event, "error", err)
	}
	return nil, err
}

func (e *Engine) HandleDisconnect(c *realtime.Client) {
	e.log.WithUser(c.UserID()).Info("User disconnected", "client_id", c.ID)
}

func (e *Engine) actor(ctx context.Context, c *realtime.Client) (models.User, error) {
	if !e.opts.RefreshRole || e.users == nil {
		return c.User(), nil
	}
	user, err := e.users.ResolveUser(ctx, c.UserID())
	if err != nil {
		return models.User{}, err
	}
	c.SetUser(user)
	return user, nil
}

// decode reads an action payload. An absent payload leaves v zeroed.
func decode(data json.RawMessage, v interface{}) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Validation("invalid payload")
	}
	return nil
}

func (e *Engine) getChannels(ctx context.Context, _ *realtime.Client, actor models.User, _ json.RawMessage) (interface{}, error) {
	return e.channels.ListForRole(ctx, actor.Role, actor.UserID)
}

func (e *Engine) createChannel(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req channelService.CreateChannelRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	ch, err := e.channels.Create(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	room := realtime.ChannelRoom(ch.ChannelID)
	for _, member := range ch.Members {
		e.hub.JoinUser(member, room)
		e.hub.EmitToUser(member, EventChannelCreated, ch)
	}
	return ch, nil
}

type memberEvent struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
}

func (e *Engine) addMember(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req channelService.MembershipRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	ch, changed, err := e.channels.AddMember(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if !changed {
		return ch, nil
	}

	room := realtime.ChannelRoom(ch.ChannelID)
	e.hub.JoinUser(req.UserID, room)
	e.hub.EmitToUser(req.UserID, EventChannelAdded, ch)
	e.hub.EmitToRoom(room, EventChannelMemberAdded, memberEvent{ChannelID: ch.ChannelID, UserID: req.UserID})
	return ch, nil
}

func (e *Engine) removeMember(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req channelService.MembershipRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	ch, changed, err := e.channels.RemoveMember(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if !changed {
		return ch, nil
	}

	room := realtime.ChannelRoom(ch.ChannelID)
	e.hub.LeaveUser(req.UserID, room)
	e.hub.EmitToUser(req.UserID, EventChannelRemoved, memberEvent{ChannelID: ch.ChannelID, UserID: req.UserID})
	e.hub.EmitToRoom(room, EventChannelMemberRemove, memberEvent{ChannelID: ch.ChannelID, UserID: req.UserID})
	return ch, nil
}

func (e *Engine) getMessages(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.ListMessagesRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return e.messages.List(ctx, actor, req)
}

func (e *Engine) sendMessage(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.SendMessageRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	msg, err := e.messages.Send(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	e.hub.EmitToRoom(realtime.ChannelRoom(msg.ChannelID), EventMessageNew, msg)
	return msg, nil
}

func (e *Engine) editMessage(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.EditMessageRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	msg, err := e.messages.Edit(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	e.hub.EmitToRoom(realtime.ChannelRoom(msg.ChannelID), EventMessageEdited, msg)
	return msg, nil
}

type deletedMessage struct {
	MessageID string `json:"id"`
	ChannelID string `json:"channelId"`
}

func (e *Engine) deleteMessage(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.DeleteMessageRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	msg, err := e.messages.Delete(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	payload := deletedMessage{MessageID: msg.MessageID, ChannelID: msg.ChannelID}
	e.hub.EmitToRoom(realtime.ChannelRoom(msg.ChannelID), EventMessageDeleted, payload)
	return payload, nil
}

func (e *Engine) sendNotice(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.NoticeRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	msg, err := e.messages.SendNotice(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	e.hub.Broadcast(EventNoticeNew, msg)
	return msg, nil
}

type typingRequest struct {
	ChannelID string `json:"channelId"`
}

type typingEvent struct {
	ChannelID string             `json:"channelId"`
	User      models.UserSummary `json:"user"`
	IsTyping  bool               `json:"isTyping"`
}

// typing relays indicators to the rest of the channel. Only connections
// already subscribed to the channel room can relay.
func (e *Engine) typing(isTyping bool) action {
	return func(_ context.Context, c *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
		var req typingRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		room := realtime.ChannelRoom(req.ChannelID)
		if req.ChannelID == "" || !e.hub.InRoom(c, room) {
			return nil, nil
		}
		e.hub.EmitToRoomExcept(room, c, EventTypingUser, typingEvent{
			ChannelID: req.ChannelID,
			User:      actor.Summary(),
			IsTyping:  isTyping,
		})
		return nil, nil
	}
}

func (e *Engine) getEmployees(ctx context.Context, _ *realtime.Client, actor models.User, _ json.RawMessage) (interface{}, error) {
	return e.employees.ListEmployees(ctx, actor)
}

type privateCreateRequest struct {
	RecipientID string `json:"recipientId"`
}

func (e *Engine) createPrivate(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req privateCreateRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	ch, created, err := e.channels.StartPrivate(ctx, actor, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if created {
		e.announcePrivate(ch)
	}
	return ch, nil
}

type privateResult struct {
	Message *models.Message `json:"message"`
	Channel *models.Channel `json:"channel"`
}

func (e *Engine) sendPrivate(ctx context.Context, _ *realtime.Client, actor models.User, data json.RawMessage) (interface{}, error) {
	var req messageService.PrivateSendRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	delivery, err := e.messages.SendPrivate(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	if delivery.Created {
		e.announcePrivate(delivery.Channel)
	}
	e.hub.EmitToRoom(realtime.ChannelRoom(delivery.Channel.ChannelID), EventPrivateMessage, delivery.Message)
	return privateResult{Message: delivery.Message, Channel: delivery.Channel}, nil
}

// announcePrivate subscribes both parties of a new private channel and tells
// them about it.
func (e *Engine) announcePrivate(ch *models.Channel) {
	room := realtime.ChannelRoom(ch.ChannelID)
	for _, member := range ch.Members {
		e.hub.JoinUser(member, room)
		e.hub.EmitToUser(member, EventChannelNew, ch)
	}
}

var _ realtime.Handler = (*Engine)(nil)
