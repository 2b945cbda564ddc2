package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// ErrSummaryNotComputed is returned before the first recompute of an org.
var ErrSummaryNotComputed = &apperr.NotFoundError{Entity: "sales summary"}

// Repository handles sales events and their per-org summary.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates a sales repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

// List returns orgID's sales events, newest first, optionally since a time.
func (r *Repository) List(ctx context.Context, orgID int64, since time.Time, limit, offset int) ([]*models.SalesEvent, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT id, org_id, sku, quantity, amount_cents, sold_at
		FROM sales_events
		WHERE org_id = @org_id AND sold_at >= @since
		ORDER BY sold_at DESC, id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"since": since, "limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SalesEvent
	for rows.Next() {
		var e models.SalesEvent
		if err := rows.Scan(&e.ID, &e.OrgID, &e.SKU, &e.Quantity, &e.AmountCents, &e.SoldAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// Record inserts a sale for orgID.
func (r *Repository) Record(ctx context.Context, orgID int64, e *models.SalesEvent) (*models.SalesEvent, error) {
	out := *e
	soldAt := e.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now()
	}
	err := r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO sales_events (org_id, sku, quantity, amount_cents, sold_at)
		VALUES (@org_id, @sku, @quantity, @amount_cents, @sold_at)
		RETURNING id, org_id, sold_at`,
		pgx.NamedArgs{"sku": e.SKU, "quantity": e.Quantity, "amount_cents": e.AmountCents, "sold_at": soldAt}).
		Scan(&out.ID, &out.OrgID, &out.SoldAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary returns the last computed summary for orgID.
func (r *Repository) Summary(ctx context.Context, orgID int64) (*models.SalesSummary, error) {
	var s models.SalesSummary
	err := r.exec.QueryRowScoped(ctx, orgID,
		`SELECT org_id, events, units, revenue_cents, computed_at FROM sales_summaries WHERE org_id = @org_id`, nil).
		Scan(&s.OrgID, &s.Events, &s.Units, &s.RevenueCents, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSummaryNotComputed
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Recompute rebuilds the summary of orgID from its own sales events.
func (r *Repository) Recompute(ctx context.Context, orgID int64) error {
	_, err := r.exec.ExecScoped(ctx, orgID,
		`INSERT INTO sales_summaries (org_id, events, units, revenue_cents, computed_at)
		SELECT @org_id, COUNT(*), COALESCE(SUM(quantity), 0), COALESCE(SUM(amount_cents), 0), NOW()
		FROM sales_events
		WHERE org_id = @org_id
		ON CONFLICT (org_id) DO UPDATE SET
			events = EXCLUDED.events,
			units = EXCLUDED.units,
			revenue_cents = EXCLUDED.revenue_cents,
			computed_at = EXCLUDED.computed_at`, nil)
	return err
}

// ExportRows reads the daily sales report view for orgID, at most limit rows.
func (r *Repository) ExportRows(ctx context.Context, orgID, limit int64) (exports.Table, error) {
	t := exports.Table{Header: []string{"day", "units", "revenue_cents"}}
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT day, units, revenue_cents FROM report_sales_daily WHERE org_id = @org_id ORDER BY day DESC LIMIT @limit`,
		pgx.NamedArgs{"limit": limit})
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			day            time.Time
			units, revenue int64
		)
		if err := rows.Scan(&day, &units, &revenue); err != nil {
			return t, err
		}
		t.Rows = append(t.Rows, []string{day.Format(time.DateOnly), strconv.FormatInt(units, 10), strconv.FormatInt(revenue, 10)})
	}
	return t, rows.Err()
}
