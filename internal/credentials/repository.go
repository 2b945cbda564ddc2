package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// Cipher seals and opens individual secret fields.
type Cipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Repository persists credential bundles. Secret fields are sealed before they are
// written and opened only after they are read.
type Repository struct {
	exec   *scopedb.Executor
	cipher Cipher
}

// NewRepository creates a credentials repository.
func NewRepository(exec *scopedb.Executor, cipher Cipher) *Repository {
	return &Repository{exec: exec, cipher: cipher}
}

// Get returns the decrypted bundle for orgID.
func (r *Repository) Get(ctx context.Context, orgID int64) (*models.CredentialBundle, error) {
	var b models.CredentialBundle
	err := r.exec.QueryRowScoped(ctx, orgID,
		`SELECT org_id, marketplace_api_key, marketplace_secret, payments_token, updated_at
		FROM credential_bundles WHERE org_id = @org_id`, nil).
		Scan(&b.OrgID, &b.MarketplaceAPIKey, &b.MarketplaceSecret, &b.PaymentsToken, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrCredentialsNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, f := range []*string{&b.MarketplaceAPIKey, &b.MarketplaceSecret, &b.PaymentsToken} {
		if *f, err = r.cipher.Open(*f); err != nil {
			return nil, fmt.Errorf("open credential field: %w", err)
		}
	}
	return &b, nil
}

// Upsert seals and stores the bundle for orgID.
func (r *Repository) Upsert(ctx context.Context, orgID int64, b models.CredentialBundle) (*models.CredentialBundle, error) {
	sealed := make([]string, 3)
	for i, v := range []string{b.MarketplaceAPIKey, b.MarketplaceSecret, b.PaymentsToken} {
		s, err := r.cipher.Seal(v)
		if err != nil {
			return nil, fmt.Errorf("seal credential field: %w", err)
		}
		sealed[i] = s
	}
	err := r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO credential_bundles (org_id, marketplace_api_key, marketplace_secret, payments_token, updated_at)
		VALUES (@org_id, @api_key, @secret, @payments_token, NOW())
		ON CONFLICT (org_id) DO UPDATE SET
			marketplace_api_key = EXCLUDED.marketplace_api_key,
			marketplace_secret = EXCLUDED.marketplace_secret,
			payments_token = EXCLUDED.payments_token,
			updated_at = NOW()
		RETURNING updated_at`,
		pgx.NamedArgs{"api_key": sealed[0], "secret": sealed[1], "payments_token": sealed[2]}).
		Scan(&b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.OrgID = orgID
	return &b, nil
}
