package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// Balance is one account total from the ledger balances report.
type Balance struct {
	Account      string `json:"account"`
	BalanceCents int64  `json:"balance_cents"`
}

// Repository handles ledger entries.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates a ledger repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

// List returns orgID's entries, newest first.
func (r *Repository) List(ctx context.Context, orgID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT id, org_id, account, amount_cents, memo, posted_at
		FROM ledger_entries
		WHERE org_id = @org_id
		ORDER BY posted_at DESC, id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"limit": limit, "offset": offset})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.Account, &e.AmountCents, &e.Memo, &e.PostedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}

// Post appends an entry for orgID.
func (r *Repository) Post(ctx context.Context, orgID int64, e *models.LedgerEntry) (*models.LedgerEntry, error) {
	out := *e
	err := r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO ledger_entries (org_id, account, amount_cents, memo) VALUES (@org_id, @account, @amount_cents, @memo)
		RETURNING id, org_id, posted_at`,
		pgx.NamedArgs{"account": e.Account, "amount_cents": e.AmountCents, "memo": e.Memo}).
		Scan(&out.ID, &out.OrgID, &out.PostedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Balances reads per-account totals for orgID from the balances report view.
func (r *Repository) Balances(ctx context.Context, orgID int64) ([]Balance, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT account, balance_cents FROM report_ledger_balances WHERE org_id = @org_id ORDER BY account`, nil)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.Account, &b.BalanceCents); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}
