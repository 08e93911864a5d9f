package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "AGENT"
	StaffRoleTeamLead StaffRole = "TEAM_LEAD"
	StaffRoleAdmin    StaffRole = "ADMIN"
)

// AllStaffRoles lists every known role in ascending privilege.
var AllStaffRoles = []StaffRole{StaffRoleAgent, StaffRoleTeamLead, StaffRoleAdmin}

// ParseStaffRole normalizes a configured role name.
func ParseStaffRole(raw string) (StaffRole, bool) {
	for _, r := range AllStaffRoles {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// StaffMember is a workspace account allowed to act on tickets.
type StaffMember struct {
	SlackID   string
	Name      string
	Role      StaffRole
	Active    bool
	CreatedAt time.Time
}
