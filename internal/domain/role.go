package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the portal role of an authenticated user. The zero value means
// no role (anonymous).
type Role string

const (
	RoleNone       Role = ""
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
	RoleSupervisor Role = "SUPERVISOR"
	RolePersonnel  Role = "PERSONNEL"
)

// Roles lists every known role in display order
var Roles = []Role{RoleAdmin, RoleStaff, RoleSupervisor, RolePersonnel}

// ParseRole converts a backend role string into a Role.
// Unknown values are rejected because the role set is closed.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleStaff, RoleSupervisor, RolePersonnel:
		return r, nil
	}
	return RoleNone, fmt.Errorf("%w: unknown role %q", ErrInvalidRole, s)
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r.In(Roles...)
}

// IsStaff reports whether r may sign in through the staff login
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff || r == RoleSupervisor
}

// In reports whether r is contained in allowed
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// MarshalJSON encodes RoleNone as null
func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts null, empty or a role string
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = RoleNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Role(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}
