package models

// Role names. RoleGuest is used for unauthenticated callers and is never persisted.
const (
	RoleGuest   = "guest"
	RoleRegular = "regular"
	RoleOwner   = "owner"
	RoleWriter  = "writer"
	RoleManager = "manager"
	RoleAdmin   = "admin"
	RoleGod     = "god"
)

// User statuses.
const (
	StatusNormal    = "normal"
	StatusSuspended = "suspended"
)

var roleLevels = map[string]int{
	RoleRegular: 1,
	RoleOwner:   2,
	RoleWriter:  2,
	RoleManager: 2,
	RoleAdmin:   3,
	RoleGod:     4,
}

// PersistedRoles returns every role a stored user can hold, lowest level first.
func PersistedRoles() []string {
	return []string{RoleRegular, RoleOwner, RoleWriter, RoleManager, RoleAdmin, RoleGod}
}

// RoleLevel returns the hierarchy level of role, or 0 for guest and unknown roles.
func RoleLevel(role string) int {
	return roleLevels[role]
}

// IsValidRole reports whether role may be stored on a user.
func IsValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// IsValidStatus reports whether status is a known user status.
func IsValidStatus(status string) bool {
	return status == StatusNormal || status == StatusSuspended
}
