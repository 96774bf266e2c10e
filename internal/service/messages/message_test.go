package messageService

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository/repotest"
	channelService "github.com/nikhil/staffhub/internal/service/channels"
)

var (
	owner = models.User{UserID: "owner", FirstName: "Olive", Role: models.RoleOwner, Status: models.UserActive}
	lead  = models.User{UserID: "lead", Role: models.RoleTeamLead, Status: models.UserActive}
	pm    = models.User{UserID: "pm", Role: models.RoleProjectManager, Status: models.UserActive}
	dev   = models.User{UserID: "dev", FirstName: "Dana", Role: models.RoleDeveloper, Status: models.UserActive}
	dev2  = models.User{UserID: "dev2", Role: models.RoleDeveloper, Status: models.UserActive}
)

type fixture struct {
	svc      *MessageService
	channels *channelService.ChannelService
	messages *repotest.Messages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := repotest.NewUsers(owner, lead, pm, dev, dev2)
	messages := repotest.NewMessages(users)
	channels := channelService.NewChannelService(repotest.NewChannels(), users, logger.NewNop())
	svc := NewMessageService(messages, channels, 50, 200, logger.NewNop())

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("m-%03d", n)
	}
	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{svc: svc, channels: channels, messages: messages}
}

func (f *fixture) channel(t *testing.T, typ models.ChannelType, members ...string) *models.Channel {
	t.Helper()
	ch, err := f.channels.Create(context.Background(), owner, channelService.CreateChannelRequest{Name: string(typ), Type: typ, Members: members})
	require.NoError(t, err)
	return ch
}

func TestSend_MemberPostsTrimmedText(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "owner", "dev")

	msg, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "  hi  "})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.IsEdited)
	assert.Nil(t, msg.EditedAt)
	assert.Equal(t, []string{}, msg.Attachments)
	require.NotNil(t, msg.Author)
	assert.Equal(t, "Dana", msg.Author.FirstName)
}

func TestSend_Authorization(t *testing.T) {
	f := newFixture(t)
	regular := f.channel(t, models.ChannelRegular, "owner")
	notice := f.channel(t, models.ChannelNotice, "owner", "dev", "lead")
	private, _, err := f.channels.EnsurePrivate(context.Background(), dev, "dev2")
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   models.User
		channel *models.Channel
		want    error
	}{
		{"non-member developer on regular", dev, regular, apperrors.ErrNotChannelMember},
		{"privileged non-member on regular", lead, regular, nil},
		{"member developer on notice", dev, notice, apperrors.ErrNoticeOwnerOnly},
		{"member team lead on notice", lead, notice, apperrors.ErrNoticeOwnerOnly},
		{"owner on notice", owner, notice, nil},
		{"privileged outsider on private", pm, private, nil},
		{"team lead outsider on private", lead, private, nil},
		{"member on private", dev2, private, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.messages.Len()
			_, err := f.svc.Send(context.Background(), tt.actor, SendMessageRequest{ChannelID: tt.channel.ChannelID, Text: "hello"})
			if tt.want == nil {
				assert.NoError(t, err)
				assert.Equal(t, before+1, f.messages.Len())
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, f.messages.Len())
		})
	}
}

func TestSend_RejectsBlankText(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "dev")

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: text})
		assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	}
	assert.Zero(t, f.messages.Len())
}

func TestSend_UnknownChannel(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), owner, SendMessageRequest{ChannelID: "nope", Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrChannelNotFound)
}

func TestList_ChronologicalPage(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "dev")
	for i := 1; i <= 5; i++ {
		_, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}

	page, err := f.svc.List(context.Background(), dev, ListMessagesRequest{ChannelID: ch.ChannelID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"msg 3", "msg 4", "msg 5"}, []string{page[0].Text, page[1].Text, page[2].Text})

	older, err := f.svc.List(context.Background(), dev, ListMessagesRequest{ChannelID: ch.ChannelID, Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"msg 1", "msg 2"}, []string{older[0].Text, older[1].Text})
}

func TestList_Authorization(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "owner")

	_, err := f.svc.List(context.Background(), dev, ListMessagesRequest{ChannelID: ch.ChannelID})
	assert.ErrorIs(t, err, apperrors.ErrNotChannelMember)

	_, err = f.svc.List(context.Background(), pm, ListMessagesRequest{ChannelID: ch.ChannelID})
	assert.NoError(t, err)

	_, err = f.svc.List(context.Background(), dev, ListMessagesRequest{ChannelID: ch.ChannelID, Limit: -1})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestList_PrivilegedOutsiderReadsPrivate(t *testing.T) {
	f := newFixture(t)
	private, _, err := f.channels.EnsurePrivate(context.Background(), dev, "dev2")
	require.NoError(t, err)
	_, err = f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: private.ChannelID, Text: "psst"})
	require.NoError(t, err)

	for _, actor := range []models.User{owner, lead, pm} {
		page, err := f.svc.List(context.Background(), actor, ListMessagesRequest{ChannelID: private.ChannelID})
		require.NoError(t, err, string(actor.Role))
		require.Len(t, page, 1)
		assert.Equal(t, "psst", page[0].Text)
	}

	outsider := models.User{UserID: "dev3", Role: models.RoleDeveloper, Status: models.UserActive}
	_, err = f.svc.List(context.Background(), outsider, ListMessagesRequest{ChannelID: private.ChannelID})
	assert.ErrorIs(t, err, apperrors.ErrNotChannelMember)
}

func TestList_LimitIsCapped(t *testing.T) {
	f := newFixture(t)
	f.svc.MaxPageSize = 2
	ch := f.channel(t, models.ChannelRegular, "dev")
	for i := 0; i < 4; i++ {
		_, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "x"})
		require.NoError(t, err)
	}

	page, err := f.svc.List(context.Background(), dev, ListMessagesRequest{ChannelID: ch.ChannelID, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestEdit_OnlyAuthor(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "owner", "dev")
	msg, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "tpyo"})
	require.NoError(t, err)

	for _, actor := range []models.User{owner, lead, pm, dev2} {
		_, err := f.svc.Edit(context.Background(), actor, EditMessageRequest{MessageID: msg.MessageID, Text: "hijack"})
		assert.ErrorIs(t, err, apperrors.ErrNotMessageAuthor, string(actor.Role))
	}

	_, err = f.svc.Edit(context.Background(), dev, EditMessageRequest{MessageID: msg.MessageID, Text: "   "})
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	edited, err := f.svc.Edit(context.Background(), dev, EditMessageRequest{MessageID: msg.MessageID, Text: " typo "})
	require.NoError(t, err)
	assert.Equal(t, "typo", edited.Text)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.EditedAt)

	stored, err := f.messages.FindByID(context.Background(), msg.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "typo", stored.Text)
}

func TestDelete_AuthorOrModerator(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "dev", "dev2")
	first, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "one"})
	require.NoError(t, err)
	second, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "two"})
	require.NoError(t, err)

	_, err = f.svc.Delete(context.Background(), dev2, DeleteMessageRequest{MessageID: first.MessageID})
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))

	deleted, err := f.svc.Delete(context.Background(), dev, DeleteMessageRequest{MessageID: first.MessageID})
	require.NoError(t, err)
	assert.Equal(t, ch.ChannelID, deleted.ChannelID)

	_, err = f.svc.Delete(context.Background(), pm, DeleteMessageRequest{MessageID: second.MessageID})
	require.NoError(t, err)
	assert.Zero(t, f.messages.Len())

	_, err = f.svc.Delete(context.Background(), dev, DeleteMessageRequest{MessageID: first.MessageID})
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

func TestSendNotice(t *testing.T) {
	f := newFixture(t)
	notice := f.channel(t, models.ChannelNotice)
	regular := f.channel(t, models.ChannelRegular)

	msg, err := f.svc.SendNotice(context.Background(), owner, NoticeRequest{ChannelID: notice.ChannelID, Text: "office closed"})
	require.NoError(t, err)
	assert.Equal(t, notice.ChannelID, msg.ChannelID)

	_, err = f.svc.SendNotice(context.Background(), lead, NoticeRequest{ChannelID: notice.ChannelID, Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrNoticeOwnerOnly)

	_, err = f.svc.SendNotice(context.Background(), owner, NoticeRequest{ChannelID: regular.ChannelID, Text: "x"})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestSendPrivate_ReusesChannel(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.SendPrivate(context.Background(), owner, PrivateSendRequest{RecipientID: "dev", Text: "hello"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, []string{"owner", "dev"}, first.Channel.Members)

	second, err := f.svc.SendPrivate(context.Background(), owner, PrivateSendRequest{RecipientID: "dev", Text: "again"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Channel.ChannelID, second.Channel.ChannelID)
	assert.Equal(t, first.Channel.ChannelID, second.Message.ChannelID)
}

func TestSendPrivate_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	for _, actor := range []models.User{lead, pm, dev} {
		_, err := f.svc.SendPrivate(context.Background(), actor, PrivateSendRequest{RecipientID: "dev2", Text: "hi"})
		assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
	}

	_, err := f.svc.SendPrivate(context.Background(), owner, PrivateSendRequest{RecipientID: "dev2", Text: " "})
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	ch := f.channel(t, models.ChannelRegular, "dev")
	f.messages.Err = errors.New("disk full")

	_, err := f.svc.Send(context.Background(), dev, SendMessageRequest{ChannelID: ch.ChannelID, Text: "x"})
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
}
