package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// Repository handles user persistence and first-sight provisioning.
type Repository struct {
	exec   *scopedb.Executor
	logger *zap.Logger
}

// NewRepository creates an identity repository.
func NewRepository(exec *scopedb.Executor, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{exec: exec, logger: logger}
}

const userColumns = `id, external_identity_id, display_name, created_at`

// FindOrProvision returns the user for externalID. On first sight it creates the user, a
// default organization and the owner membership in one transaction, so every
// authenticated caller has at least one membership.
func (r *Repository) FindOrProvision(ctx context.Context, externalID, displayName string) (*models.User, error) {
	var user *models.User
	err := r.exec.InTx(ctx, func(tx *scopedb.Executor) error {
		u, err := getByExternalID(ctx, tx, externalID)
		if err == nil {
			user = u
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		u = &models.User{}
		err = tx.QueryRowUnscoped(ctx, "provision user on first sight",
			`INSERT INTO users (external_identity_id, display_name) VALUES ($1, $2)
			ON CONFLICT (external_identity_id) DO NOTHING
			RETURNING `+userColumns, externalID, displayName).
			Scan(&u.ID, &u.ExternalIdentityID, &u.DisplayName, &u.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			// a concurrent request provisioned this identity first
			user, err = getByExternalID(ctx, tx, externalID)
			return err
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		var orgID int64
		err = tx.QueryRowUnscoped(ctx, "provision default organization",
			`INSERT INTO organizations (name) VALUES ($1) RETURNING id`, defaultOrgName(u)).Scan(&orgID)
		if err != nil {
			return fmt.Errorf("insert default organization: %w", err)
		}

		_, err = tx.ExecScoped(ctx, orgID,
			`INSERT INTO memberships (org_id, user_id, role) VALUES (@org_id, @user_id, @role)`,
			pgx.NamedArgs{"user_id": u.ID, "role": models.RoleOwner.String()})
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}

		r.logger.Info("provisioned default tenant",
			zap.Int64("user_id", u.ID),
			zap.Int64("org_id", orgID),
		)
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByExternalID returns the user for an external identity id.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return getByExternalID(ctx, r.exec, externalID)
}

func getByExternalID(ctx context.Context, exec *scopedb.Executor, externalID string) (*models.User, error) {
	var u models.User
	err := exec.QueryRowUnscoped(ctx, "resolve identity",
		`SELECT `+userColumns+` FROM users WHERE external_identity_id = $1`, externalID).
		Scan(&u.ID, &u.ExternalIdentityID, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func defaultOrgName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName + "'s organization"
	}
	return u.ExternalIdentityID + "'s organization"
}
