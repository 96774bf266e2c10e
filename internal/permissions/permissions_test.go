package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhil/staffhub/internal/models"
)

var allRoles = []models.Role{
	models.RoleOwner, models.RoleSystemAdmin, models.RoleTeamLead, models.RoleAssistantLead,
	models.RoleProjectManager, models.RoleDeveloper, models.RoleUnassigned,
}

func allowedRoles(action Action) []models.Role {
	var out []models.Role
	for _, r := range allRoles {
		if Allows(r, action) {
			out = append(out, r)
		}
	}
	return out
}

func TestTable(t *testing.T) {
	privileged := []models.Role{models.RoleOwner, models.RoleTeamLead, models.RoleProjectManager}

	assert.Equal(t, privileged, allowedRoles(ManageChannels))
	assert.Equal(t, privileged, allowedRoles(ModerateMessages))
	assert.Equal(t, privileged, allowedRoles(ViewAllChannels))
	assert.Equal(t, privileged, allowedRoles(ViewTeamAvailability))
	assert.Equal(t, []models.Role{models.RoleOwner}, allowedRoles(PostNotice))
	assert.Equal(t, []models.Role{models.RoleOwner}, allowedRoles(ListEmployees))
	assert.Equal(t, []models.Role{models.RoleOwner}, allowedRoles(SendPrivateMessage))
	assert.Equal(t,
		[]models.Role{models.RoleOwner, models.RoleTeamLead, models.RoleAssistantLead, models.RoleProjectManager},
		allowedRoles(StartPrivateChat))
}

func TestAllows_UnknownActionDenied(t *testing.T) {
	assert.False(t, Allows(models.RoleOwner, Action("drop_database")))
}

func TestSystemAdminIsNotPrivilegedInChat(t *testing.T) {
	assert.False(t, CanManageChannels(models.RoleSystemAdmin))
	assert.False(t, CanModerateMessages(models.RoleSystemAdmin))
}
