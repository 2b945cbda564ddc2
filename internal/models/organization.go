package models

import (
	"time"
)

// Organization represents a tenant. Every business row references one.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership links a user to an organization with a role.
// Primary key is (org_id, user_id).
type Membership struct {
	OrgID        int64     `json:"org_id"`
	UserID       int64     `json:"user_id"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// MembershipOrg is a membership joined with its organization (for GET /orgs).
type MembershipOrg struct {
	Organization
	Role         Role      `json:"role"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Member is a membership joined with user details (for GET /orgs/members).
type Member struct {
	UserID             int64     `json:"user_id"`
	ExternalIdentityID string    `json:"external_identity_id"`
	DisplayName        string    `json:"display_name"`
	Role               Role      `json:"role"`
	AddedAt            time.Time `json:"added_at"`
}
