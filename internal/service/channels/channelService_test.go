package channelService

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/staffhub/internal/apperrors"
	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/models"
	"github.com/nikhil/staffhub/internal/repository/repotest"
)

var (
	owner = models.User{UserID: "owner", Role: models.RoleOwner, Status: models.UserActive}
	lead  = models.User{UserID: "lead", Role: models.RoleTeamLead, Status: models.UserActive}
	atl   = models.User{UserID: "atl", Role: models.RoleAssistantLead, Status: models.UserActive}
	dev   = models.User{UserID: "dev", Role: models.RoleDeveloper, Status: models.UserActive}
	dev2  = models.User{UserID: "dev2", Role: models.RoleDeveloper, Status: models.UserActive}
)

func newService(t *testing.T) (*ChannelService, *repotest.Channels) {
	t.Helper()
	channels := repotest.NewChannels()
	svc := NewChannelService(channels, repotest.NewUsers(owner, lead, atl, dev, dev2), logger.NewNop())
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("ch-%d", n)
	}
	return svc, channels
}

func TestCreate_DefaultsMembersToCreator(t *testing.T) {
	svc, _ := newService(t)

	ch, err := svc.Create(context.Background(), lead, CreateChannelRequest{Name: " general ", Type: models.ChannelRegular})
	require.NoError(t, err)
	assert.Equal(t, "general", ch.Name)
	assert.Equal(t, []string{"lead"}, ch.Members)
	assert.True(t, ch.IsActive)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		req  CreateChannelRequest
		code apperrors.Code
	}{
		{"blank name", CreateChannelRequest{Name: "  ", Type: models.ChannelRegular}, apperrors.CodeInvalidArgument},
		{"missing type", CreateChannelRequest{Name: "x"}, apperrors.CodeInvalidArgument},
		{"unknown type", CreateChannelRequest{Name: "x", Type: "group"}, apperrors.CodeInvalidArgument},
		{"private with one member", CreateChannelRequest{Name: "x", Type: models.ChannelPrivate, Members: []string{"dev"}}, apperrors.CodeInvalidArgument},
		{"private with duplicated member", CreateChannelRequest{Name: "x", Type: models.ChannelPrivate, Members: []string{"dev", "dev"}}, apperrors.CodeInvalidArgument},
		{"unknown member", CreateChannelRequest{Name: "x", Type: models.ChannelRegular, Members: []string{"nobody"}}, apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), owner, tt.req)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestCreate_RequiresPrivilegedRole(t *testing.T) {
	svc, channels := newService(t)

	for _, u := range []models.User{dev, atl} {
		_, err := svc.Create(context.Background(), u, CreateChannelRequest{Name: "x", Type: models.ChannelRegular})
		assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
	}
	assert.Zero(t, channels.Count())
}

func TestCreate_PrivateDuplicatePairConflicts(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), owner, CreateChannelRequest{Name: "dm", Type: models.ChannelPrivate, Members: []string{"dev", "dev2"}})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner, CreateChannelRequest{Name: "dm", Type: models.ChannelPrivate, Members: []string{"dev2", "dev"}})
	assert.ErrorIs(t, err, apperrors.ErrPrivateChannelTaken)
}

func TestAddMember_IsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ch, err := svc.Create(context.Background(), lead, CreateChannelRequest{Name: "general", Type: models.ChannelRegular})
	require.NoError(t, err)

	req := MembershipRequest{ChannelID: ch.ChannelID, UserID: "dev"}
	updated, changed, err := svc.AddMember(context.Background(), lead, req)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"lead", "dev"}, updated.Members)

	again, changed, err := svc.AddMember(context.Background(), lead, req)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, again.Members, 2)
}

func TestAddMember_Rejections(t *testing.T) {
	svc, _ := newService(t)
	ch, err := svc.Create(context.Background(), owner, CreateChannelRequest{Name: "general", Type: models.ChannelRegular})
	require.NoError(t, err)
	dm, _, err := svc.EnsurePrivate(context.Background(), owner, "dev")
	require.NoError(t, err)

	_, _, err = svc.AddMember(context.Background(), dev, MembershipRequest{ChannelID: ch.ChannelID, UserID: "dev2"})
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))

	_, _, err = svc.AddMember(context.Background(), owner, MembershipRequest{ChannelID: "missing", UserID: "dev2"})
	assert.ErrorIs(t, err, apperrors.ErrChannelNotFound)

	_, _, err = svc.AddMember(context.Background(), owner, MembershipRequest{ChannelID: ch.ChannelID, UserID: "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, _, err = svc.AddMember(context.Background(), owner, MembershipRequest{ChannelID: dm.ChannelID, UserID: "dev2"})
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestRemoveMember(t *testing.T) {
	svc, _ := newService(t)
	ch, err := svc.Create(context.Background(), owner, CreateChannelRequest{Name: "general", Type: models.ChannelRegular, Members: []string{"owner", "dev"}})
	require.NoError(t, err)

	updated, changed, err := svc.RemoveMember(context.Background(), owner, MembershipRequest{ChannelID: ch.ChannelID, UserID: "dev"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"owner"}, updated.Members)

	_, changed, err = svc.RemoveMember(context.Background(), owner, MembershipRequest{ChannelID: ch.ChannelID, UserID: "dev"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestListForRole(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), owner, CreateChannelRequest{Name: "a", Type: models.ChannelRegular, Members: []string{"owner", "dev"}})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), owner, CreateChannelRequest{Name: "b", Type: models.ChannelNotice})
	require.NoError(t, err)

	all, err := svc.ListForRole(context.Background(), models.RoleProjectManager, "pm")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListForRole(context.Background(), models.RoleDeveloper, "dev")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].Name)
}

func TestEnsurePrivate_SameChannelRegardlessOfOrder(t *testing.T) {
	svc, channels := newService(t)

	first, created, err := svc.EnsurePrivate(context.Background(), owner, "dev")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.EnsurePrivate(context.Background(), dev, "owner")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ChannelID, second.ChannelID)
	assert.Equal(t, 1, channels.Count())
}

func TestEnsurePrivate_ConcurrentCallsConverge(t *testing.T) {
	svc, channels := newService(t)
	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("ch-%d", n)
	}

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor, other := owner, "dev"
			if i%2 == 1 {
				actor, other = dev, "owner"
			}
			ch, _, err := svc.EnsurePrivate(context.Background(), actor, other)
			if assert.NoError(t, err) {
				ids[i] = ch.ChannelID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, channels.Count())
}

func TestEnsurePrivate_Rejections(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.EnsurePrivate(context.Background(), owner, "owner")
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, _, err = svc.EnsurePrivate(context.Background(), owner, "")
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))

	_, _, err = svc.EnsurePrivate(context.Background(), owner, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestStartPrivate_RoleSet(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.StartPrivate(context.Background(), atl, "dev")
	assert.NoError(t, err, "assistant leads may start private chats")

	_, _, err = svc.StartPrivate(context.Background(), dev, "dev2")
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
}

func TestStoreErrorsAreInternal(t *testing.T) {
	svc, channels := newService(t)
	channels.Err = errors.New("connection refused")

	_, err := svc.FindActiveByID(context.Background(), "x")
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
	assert.Equal(t, "internal error", apperrors.PublicMessage(err))
}
