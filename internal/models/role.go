package models

import (
	"fmt"
	"strings"
)

// Role is a membership role. Roles are totally ordered: viewer < manager < owner.
type Role int

const (
	RoleViewer Role = iota
	RoleManager
	RoleOwner
)

var roleNames = [...]string{"viewer", "manager", "owner"}

// String returns the persisted name of the role.
func (r Role) String() string {
	if r < RoleViewer || r > RoleOwner {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r >= RoleViewer && r <= RoleOwner
}

// AtLeast reports whether r is numerically >= min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// ParseRole parses a persisted role name.
func ParseRole(s string) (Role, error) {
	for i, n := range roleNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Role(i), nil
		}
	}
	return RoleViewer, fmt.Errorf("unknown role %q", s)
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
