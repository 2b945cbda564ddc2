package reviews

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// Repository handles review persistence.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates a reviews repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

// List returns orgID's reviews, newest first. An empty sku lists all.
func (r *Repository) List(ctx context.Context, orgID int64, sku string, limit, offset int) ([]*models.Review, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT id, org_id, sku, rating, body, created_at
		FROM reviews
		WHERE org_id = @org_id AND (@sku = '' OR sku = @sku)
		ORDER BY created_at DESC, id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"sku": sku, "limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.OrgID, &rv.SKU, &rv.Rating, &rv.Body, &rv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rv)
	}
	return list, rows.Err()
}

// Create inserts a review for orgID.
func (r *Repository) Create(ctx context.Context, orgID int64, rv *models.Review) (*models.Review, error) {
	out := *rv
	err := r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO reviews (org_id, sku, rating, body) VALUES (@org_id, @sku, @rating, @body)
		RETURNING id, org_id, created_at`,
		pgx.NamedArgs{"sku": rv.SKU, "rating": rv.Rating, "body": rv.Body}).
		Scan(&out.ID, &out.OrgID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
