package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/internal/telemetry"
	"github.com/sellerdesk/backend/pkg/database"
)

const (
	// ViewPrefix marks reporting views exposed to exports and analytics.
	ViewPrefix = "report_"

	tenantColumn = "org_id"
)

// AuditViews checks every reporting view in the public schema: the tenant column must
// exist and no row may leave it NULL.
func AuditViews(ctx context.Context, exec *scopedb.Executor) ([]Violation, error) {
	views, err := listViews(ctx, exec)
	if err != nil {
		return nil, err
	}
	var out []Violation
	for _, view := range views {
		v, err := auditView(ctx, exec, view)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	sortViolations(out)
	return out, nil
}

func listViews(ctx context.Context, exec *scopedb.Executor) ([]string, error) {
	var views []string
	err := exec.QueryRowUnscoped(ctx, "list reporting views",
		`SELECT COALESCE(array_agg(table_name::TEXT ORDER BY table_name), '{}')
		 FROM information_schema.views
		 WHERE table_schema = 'public' AND table_name LIKE $1`,
		strings.ReplaceAll(ViewPrefix, "_", `\_`)+"%",
	).Scan(&views)
	if err != nil {
		return nil, fmt.Errorf("list reporting views: %w", err)
	}
	return views, nil
}

func auditView(ctx context.Context, exec *scopedb.Executor, view string) (*Violation, error) {
	ident := pgx.Identifier{view}.Sanitize()

	var discard any
	err := exec.QueryRowUnscoped(ctx, "audit reporting view column",
		"SELECT "+tenantColumn+" FROM "+ident+" LIMIT 0").Scan(&discard)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case database.IsUndefinedColumn(err):
		return &Violation{Kind: telemetry.KindUnscopedView, Subject: view, Missing: tenantColumn + " column"}, nil
	case err != nil:
		return nil, fmt.Errorf("audit view %s: %w", view, err)
	}

	var nulls int64
	err = exec.QueryRowUnscoped(ctx, "audit reporting view rows",
		"SELECT COUNT(*) FROM "+ident+" WHERE "+tenantColumn+" IS NULL").Scan(&nulls)
	if err != nil {
		return nil, fmt.Errorf("count unscoped rows in %s: %w", view, err)
	}
	if nulls > 0 {
		return &Violation{
			Kind:    telemetry.KindUnscopedView,
			Subject: view,
			Missing: fmt.Sprintf("%s on %d row(s)", tenantColumn, nulls),
		}, nil
	}
	return nil, nil
}

var (
	createView = regexp.MustCompile(`(?is)CREATE\s+(?:OR\s+REPLACE\s+)?VIEW\s+("?[\w.]+"?)\s+AS\s+(.*?);`)
	selectList = regexp.MustCompile(`(?is)^\s*SELECT\s+(.*?)\s+FROM\s`)
	tenantRef  = regexp.MustCompile(`(?i)(^|[\s,.(])org_id(\s*,|\s*$|\s+AS\s+org_id)`)
)

// AuditViewSource checks CREATE VIEW statements in migration text without a database:
// every reporting view must select org_id.
func AuditViewSource(sql string) []Violation {
	var out []Violation
	for _, m := range createView.FindAllStringSubmatch(sql, -1) {
		name := strings.Trim(m[1], `"`)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if !strings.HasPrefix(name, ViewPrefix) {
			continue
		}
		sel := selectList.FindStringSubmatch(m[2])
		if sel == nil || !tenantRef.MatchString(sel[1]) {
			out = append(out, Violation{Kind: telemetry.KindUnscopedView, Subject: name, Missing: tenantColumn + " in select list"})
		}
	}
	sortViolations(out)
	return out
}
