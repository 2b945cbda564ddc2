package organizations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/pkg/database"
)

// Repository handles organization and membership persistence.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates an organizations repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

// Create creates an organization and makes ownerID its owner in one transaction.
func (r *Repository) Create(ctx context.Context, name string, ownerID int64) (*models.Organization, error) {
	var org models.Organization
	err := r.exec.InTx(ctx, func(tx *scopedb.Executor) error {
		err := tx.QueryRowUnscoped(ctx, "create organization",
			`INSERT INTO organizations (name) VALUES ($1) RETURNING id, name, created_at`, name).
			Scan(&org.ID, &org.Name, &org.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert organization: %w", err)
		}
		_, err = tx.ExecScoped(ctx, org.ID,
			`INSERT INTO memberships (org_id, user_id, role, last_active_at) VALUES (@org_id, @user_id, @role, NOW())`,
			pgx.NamedArgs{"user_id": ownerID, "role": models.RoleOwner.String()})
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// ActiveMembership returns the membership used as the request scope: the only one, or
// the most recently active. The lookup is keyed by user because no org is known yet.
func (r *Repository) ActiveMembership(ctx context.Context, userID int64) (*models.Membership, error) {
	var (
		m    models.Membership
		role string
	)
	err := r.exec.QueryRowUnscoped(ctx, "resolve active organization",
		`SELECT org_id, user_id, role, created_at, last_active_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY last_active_at DESC, created_at DESC
		LIMIT 1`, userID).
		Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt, &m.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNoMembership
	}
	if err != nil {
		return nil, err
	}
	if m.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns every organization the user belongs to with the user's role.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]models.MembershipOrg, error) {
	rows, err := r.exec.QueryUnscoped(ctx, "list memberships of caller",
		`SELECT o.id, o.name, o.created_at, m.role, m.last_active_at
		FROM memberships m
		INNER JOIN organizations o ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY m.last_active_at DESC, o.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MembershipOrg
	for rows.Next() {
		var (
			mo   models.MembershipOrg
			role string
		)
		if err := rows.Scan(&mo.ID, &mo.Name, &mo.CreatedAt, &role, &mo.LastActiveAt); err != nil {
			return nil, err
		}
		if mo.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		list = append(list, mo)
	}
	return list, rows.Err()
}

// Activate marks the caller's membership in orgID as most recently used. A caller with
// no membership in orgID gets ErrMembershipNotFound and nothing changes.
func (r *Repository) Activate(ctx context.Context, orgID, userID int64) error {
	tag, err := r.exec.ExecScoped(ctx, orgID,
		`UPDATE memberships SET last_active_at = NOW() WHERE org_id = @org_id AND user_id = @user_id`,
		pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrMembershipNotFound
	}
	return nil
}

// ListMembers returns the members of orgID with user details.
func (r *Repository) ListMembers(ctx context.Context, orgID int64) ([]models.Member, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT m.user_id, u.external_identity_id, u.display_name, m.role, m.created_at
		FROM memberships m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.org_id = @org_id
		ORDER BY m.created_at ASC`, nil)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Member
	for rows.Next() {
		var (
			m    models.Member
			role string
		)
		if err := rows.Scan(&m.UserID, &m.ExternalIdentityID, &m.DisplayName, &role, &m.AddedAt); err != nil {
			return nil, err
		}
		if m.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// AddMember adds the user with the given external identity to orgID.
func (r *Repository) AddMember(ctx context.Context, orgID int64, externalID string, role models.Role) (*models.Member, error) {
	m := models.Member{ExternalIdentityID: externalID, Role: role}
	err := r.exec.QueryRowUnscoped(ctx, "look up invitee by external identity",
		`SELECT id, display_name FROM users WHERE external_identity_id = $1`, externalID).
		Scan(&m.UserID, &m.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	// An invitation must not switch the invitee's active organization.
	err = r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO memberships (org_id, user_id, role, last_active_at)
		 VALUES (@org_id, @user_id, @role, to_timestamp(0)) RETURNING created_at`,
		pgx.NamedArgs{"user_id": m.UserID, "role": role.String()}).Scan(&m.AddedAt)
	if database.IsUniqueViolation(err) {
		return nil, apperr.ErrMembershipExists
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ChangeRole sets the role of userID in orgID. Demoting the last owner is rejected
// before anything is written.
func (r *Repository) ChangeRole(ctx context.Context, orgID, userID int64, role models.Role) error {
	return r.exec.InTx(ctx, func(tx *scopedb.Executor) error {
		owners, err := lockOwners(ctx, tx, orgID)
		if err != nil {
			return err
		}
		current, err := lockMember(ctx, tx, orgID, userID)
		if err != nil {
			return err
		}
		if current == models.RoleOwner && role != models.RoleOwner && owners <= 1 {
			return apperr.ErrLastOwner
		}
		_, err = tx.ExecScoped(ctx, orgID,
			`UPDATE memberships SET role = @role WHERE org_id = @org_id AND user_id = @user_id`,
			pgx.NamedArgs{"user_id": userID, "role": role.String()})
		return err
	})
}

// RemoveMember deletes the membership of userID in orgID. Removing the last owner is
// rejected regardless of who asks.
func (r *Repository) RemoveMember(ctx context.Context, orgID, userID int64) error {
	return r.exec.InTx(ctx, func(tx *scopedb.Executor) error {
		owners, err := lockOwners(ctx, tx, orgID)
		if err != nil {
			return err
		}
		current, err := lockMember(ctx, tx, orgID, userID)
		if err != nil {
			return err
		}
		if current == models.RoleOwner && owners <= 1 {
			return apperr.ErrLastOwner
		}
		_, err = tx.ExecScoped(ctx, orgID,
			`DELETE FROM memberships WHERE org_id = @org_id AND user_id = @user_id`,
			pgx.NamedArgs{"user_id": userID})
		return err
	})
}

// lockOwners locks the owner rows of orgID in a fixed order and returns how many exist.
// Concurrent owner mutations serialize here, so two owners cannot remove each other.
func lockOwners(ctx context.Context, tx *scopedb.Executor, orgID int64) (int, error) {
	rows, err := tx.QueryScoped(ctx, orgID,
		`SELECT user_id FROM memberships WHERE org_id = @org_id AND role = @role ORDER BY user_id FOR UPDATE`,
		pgx.NamedArgs{"role": models.RoleOwner.String()})
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	owners := 0
	for rows.Next() {
		owners++
	}
	return owners, rows.Err()
}

func lockMember(ctx context.Context, tx *scopedb.Executor, orgID, userID int64) (models.Role, error) {
	var role string
	err := tx.QueryRowScoped(ctx, orgID,
		`SELECT role FROM memberships WHERE org_id = @org_id AND user_id = @user_id FOR UPDATE`,
		pgx.NamedArgs{"user_id": userID}).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.ErrMembershipNotFound
	}
	if err != nil {
		return 0, err
	}
	return models.ParseRole(role)
}
