// Package permissions holds the single (action, role) table every chat and
// availability authorization check consults.
package permissions

import "github.com/nikhil/staffhub/internal/models"

type Action string

const (
	ViewAllChannels      Action = "view_all_channels"
	ManageChannels       Action = "manage_channels"
	ModerateMessages     Action = "moderate_messages"
	ReadAnyChannel       Action = "read_any_channel"
	PostAnyChannel       Action = "post_any_channel"
	PostNotice           Action = "post_notice"
	ListEmployees        Action = "list_employees"
	StartPrivateChat     Action = "start_private_chat"
	SendPrivateMessage   Action = "send_private_message"
	ViewTeamAvailability Action = "view_team_availability"
)

type roleSet map[models.Role]struct{}

func roles(rs ...models.Role) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

var (
	privileged = roles(models.RoleOwner, models.RoleTeamLead, models.RoleProjectManager)
	ownerOnly  = roles(models.RoleOwner)
)

var table = map[Action]roleSet{
	ViewAllChannels:      privileged,
	ManageChannels:       privileged,
	ModerateMessages:     privileged,
	ReadAnyChannel:       privileged,
	PostAnyChannel:       privileged,
	PostNotice:           ownerOnly,
	ListEmployees:        ownerOnly,
	StartPrivateChat:     roles(models.RoleOwner, models.RoleTeamLead, models.RoleAssistantLead, models.RoleProjectManager),
	SendPrivateMessage:   ownerOnly,
	ViewTeamAvailability: privileged,
}

// Allows reports whether role may perform action. Unknown actions are denied.
func Allows(role models.Role, action Action) bool {
	set, ok := table[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

func CanManageChannels(role models.Role) bool { return Allows(role, ManageChannels) }

func CanModerateMessages(role models.Role) bool { return Allows(role, ModerateMessages) }

func CanViewAllChannels(role models.Role) bool { return Allows(role, ViewAllChannels) }

func CanPostNotice(role models.Role) bool { return Allows(role, PostNotice) }

func CanStartPrivateChat(role models.Role) bool { return Allows(role, StartPrivateChat) }
