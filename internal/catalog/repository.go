package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/pkg/database"
)

// Repository handles catalog item persistence.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates a catalog repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

const itemColumns = `id, org_id, sku, title, price_cents, stock, created_at, updated_at`

func scanItem(row pgx.Row) (*models.CatalogItem, error) {
	var it models.CatalogItem
	err := row.Scan(&it.ID, &it.OrgID, &it.SKU, &it.Title, &it.PriceCents, &it.Stock, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// List returns a page of orgID's catalog ordered by SKU.
func (r *Repository) List(ctx context.Context, orgID int64, limit, offset int) ([]*models.CatalogItem, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT `+itemColumns+` FROM catalog_items WHERE org_id = @org_id ORDER BY sku LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CatalogItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// GetBySKU returns one item of orgID. Items of other orgs are reported as not found.
func (r *Repository) GetBySKU(ctx context.Context, orgID int64, sku string) (*models.CatalogItem, error) {
	it, err := scanItem(r.exec.QueryRowScoped(ctx, orgID,
		`SELECT `+itemColumns+` FROM catalog_items WHERE org_id = @org_id AND sku = @sku`,
		pgx.NamedArgs{"sku": sku}))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrCatalogItemNotFound
	}
	return it, err
}

// Create inserts an item for orgID. The org id is always the resolved scope, never the body.
func (r *Repository) Create(ctx context.Context, orgID int64, it *models.CatalogItem) (*models.CatalogItem, error) {
	created, err := scanItem(r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO catalog_items (org_id, sku, title, price_cents, stock)
		VALUES (@org_id, @sku, @title, @price_cents, @stock)
		RETURNING `+itemColumns,
		pgx.NamedArgs{"sku": it.SKU, "title": it.Title, "price_cents": it.PriceCents, "stock": it.Stock}))
	if database.IsUniqueViolation(err) {
		return nil, apperr.ErrCatalogItemExists
	}
	return created, err
}

// ExportRows reads the catalog report view for orgID, at most limit rows.
func (r *Repository) ExportRows(ctx context.Context, orgID, limit int64) (exports.Table, error) {
	t := exports.Table{Header: []string{"sku", "title", "price_cents", "stock", "avg_rating", "review_count"}}
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT sku, title, price_cents, stock, avg_rating::TEXT, review_count
		FROM report_catalog_items WHERE org_id = @org_id ORDER BY sku LIMIT @limit`,
		pgx.NamedArgs{"limit": limit})
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sku, title, rating string
			price, reviews     int64
			stock              int
		)
		if err := rows.Scan(&sku, &title, &price, &stock, &rating, &reviews); err != nil {
			return t, err
		}
		t.Rows = append(t.Rows, []string{sku, title, strconv.FormatInt(price, 10), strconv.Itoa(stock), rating, strconv.FormatInt(reviews, 10)})
	}
	return t, rows.Err()
}
