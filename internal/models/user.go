package models

// Role is the wire value of an employee role.
type Role string

const (
	RoleOwner          Role = "CEO"
	RoleSystemAdmin    Role = "SA"
	RoleTeamLead       Role = "TL"
	RoleAssistantLead  Role = "ATL"
	RoleProjectManager Role = "PM"
	RoleDeveloper      Role = "DEV"
	RoleUnassigned     Role = "UNASSIGNED"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleSystemAdmin, RoleTeamLead, RoleAssistantLead,
		RoleProjectManager, RoleDeveloper, RoleUnassigned:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive   UserStatus = "Active"
	UserInactive UserStatus = "Inactive"
)

// User is owned by the identity collaborator; this service only reads it.
type User struct {
	UserID       string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) IsActive() bool { return u.Status == UserActive }

// Summary is the minimal profile embedded in messages and availability lists.
func (u User) Summary() UserSummary {
	return UserSummary{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

type UserSummary struct {
	UserID    string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}
