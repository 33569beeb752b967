package domain

import "strconv"

// AppRole is the platform-wide clearance level. Lower values are more privileged.
type AppRole int

const (
	AppRoleAdministrator AppRole = 1
	AppRoleUser          AppRole = 2
)

// Satisfies reports whether r meets the required clearance.
// The ordering is inverted: a smaller value grants more, so the check is r <= required.
func (r AppRole) Satisfies(required AppRole) bool {
	return r <= required
}

// Valid reports whether r is a known application role.
func (r AppRole) Valid() bool {
	return r == AppRoleAdministrator || r == AppRoleUser
}

func (r AppRole) String() string {
	return strconv.Itoa(int(r))
}

// ParseAppRole decodes the decimal form carried in tokens.
func ParseAppRole(s string) (AppRole, bool) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	role := AppRole(v)
	return role, role.Valid()
}

// GroupRole is the clearance level a subject holds inside one group or event.
// Lower values are more privileged: OWNER < ADMINISTRATOR < MEMBER.
type GroupRole int

const (
	GroupRoleOwner         GroupRole = 1
	GroupRoleAdministrator GroupRole = 2
	GroupRoleMember        GroupRole = 3
)

// Satisfies reports whether r meets the required clearance (r <= required).
func (r GroupRole) Satisfies(required GroupRole) bool {
	return r <= required
}

// Valid reports whether r is one of the three container roles.
func (r GroupRole) Valid() bool {
	return r >= GroupRoleOwner && r <= GroupRoleMember
}

func (r GroupRole) String() string {
	switch r {
	case GroupRoleOwner:
		return "OWNER"
	case GroupRoleAdministrator:
		return "ADMINISTRATOR"
	case GroupRoleMember:
		return "MEMBER"
	default:
		return "UNKNOWN"
	}
}
