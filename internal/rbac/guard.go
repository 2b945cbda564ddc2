// Package rbac gates operations on the caller's role within its own organization.
package rbac

import (
	"fmt"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
)

// Operation names a class of action gated by role.
type Operation string

const (
	OpRead              Operation = "read"
	OpCompute           Operation = "compute"
	OpExport            Operation = "export"
	OpWriteRecords      Operation = "write_records"
	OpCredentialsRead   Operation = "credentials_read"
	OpCredentialsUpdate Operation = "credentials_update"
	OpMemberAdd         Operation = "member_add"
	OpMemberRoleChange  Operation = "member_role_change"
	OpMemberRemove      Operation = "member_remove"
)

// MinimumRoles maps each operation to the lowest role allowed to perform it.
var MinimumRoles = map[Operation]models.Role{
	OpRead:              models.RoleViewer,
	OpCompute:           models.RoleManager,
	OpExport:            models.RoleManager,
	OpWriteRecords:      models.RoleManager,
	OpCredentialsRead:   models.RoleOwner,
	OpCredentialsUpdate: models.RoleOwner,
	OpMemberAdd:         models.RoleOwner,
	OpMemberRoleChange:  models.RoleOwner,
	OpMemberRemove:      models.RoleOwner,
}

// RequireRole returns s unchanged when its role is at least min.
func RequireRole(s orgscope.Scope, min models.Role) (orgscope.Scope, error) {
	if !s.Valid() {
		return s, apperr.ErrNoMembership
	}
	if !s.Role.AtLeast(min) {
		return s, &apperr.AuthorizationError{Reason: fmt.Sprintf("role %s below required %s", s.Role, min)}
	}
	return s, nil
}

// Allow checks s against the minimum role for op. Unknown operations are denied.
func Allow(s orgscope.Scope, op Operation) (orgscope.Scope, error) {
	min, ok := MinimumRoles[op]
	if !ok {
		return s, &apperr.AuthorizationError{Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	return RequireRole(s, min)
}
