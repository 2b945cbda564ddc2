// Package scopedb is the single chokepoint for tenant-owned data access.
//
// Every tenant-scoped statement is executed through Executor.ExecScoped, QueryScoped or
// QueryRowScoped. The executor refuses statements without the tenant filter, binds the
// resolved org id over any caller-supplied value, records the violation and returns a
// fatal *apperr.ScopeViolation. It never rewrites a statement.
package scopedb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/orgscope"
	"github.com/sellerdesk/backend/internal/telemetry"
)

// DB is the subset of pgxpool.Pool / pgx.Tx the executor needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is implemented by pools that can open transactions.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const logPrefixLen = 80

// Executor wraps a DB with tenant scope enforcement.
type Executor struct {
	db         DB
	logger     *zap.Logger
	violations *telemetry.Violations
}

// New creates an executor over db.
func New(db DB, logger *zap.Logger, violations *telemetry.Violations) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{db: db, logger: logger, violations: violations}
}

// WithDB returns a copy of the executor bound to db (typically a pgx.Tx).
func (e *Executor) WithDB(db DB) *Executor {
	cp := *e
	cp.db = db
	return &cp
}

// InTx runs fn with an executor bound to a new transaction. The transaction is committed
// when fn returns nil and rolled back otherwise.
func (e *Executor) InTx(ctx context.Context, fn func(tx *Executor) error) error {
	b, ok := e.db.(Beginner)
	if !ok {
		return fmt.Errorf("scopedb: %T cannot begin transactions", e.db)
	}
	return pgx.BeginFunc(ctx, b, func(tx pgx.Tx) error {
		return fn(e.WithDB(tx))
	})
}

// bind validates the statement and returns the parameter set with the tenant bound.
func (e *Executor) bind(orgID int64, sql string, args pgx.NamedArgs) (pgx.NamedArgs, error) {
	if orgID <= 0 {
		return nil, e.violation(apperr.KindMissingOrgID, sql)
	}
	if kind, ok := CheckStatement(sql); !ok {
		return nil, e.violation(kind, sql)
	}
	bound := make(pgx.NamedArgs, len(args)+1)
	for k, v := range args {
		if strings.EqualFold(k, TenantParam) {
			continue
		}
		bound[k] = v
	}
	bound[TenantParam] = orgID
	return bound, nil
}

func (e *Executor) violation(kind, sql string) error {
	v := &apperr.ScopeViolation{Kind: kind, StatementPrefix: prefix(sql, logPrefixLen)}
	e.violations.Inc(kind)
	e.logger.Error("tenant scope violation",
		zap.String("kind", kind),
		zap.String("statement_prefix", v.StatementPrefix),
		zap.String("caller", caller(4)),
	)
	return v
}

// ExecScoped runs a write statement for orgID. Inserts must list org_id among their columns.
func (e *Executor) ExecScoped(ctx context.Context, orgID int64, sql string, args pgx.NamedArgs) (pgconn.CommandTag, error) {
	bound, err := e.bind(orgID, sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return e.db.Exec(ctx, sql, bound)
}

// QueryScoped runs a query for orgID.
func (e *Executor) QueryScoped(ctx context.Context, orgID int64, sql string, args pgx.NamedArgs) (pgx.Rows, error) {
	bound, err := e.bind(orgID, sql, args)
	if err != nil {
		return nil, err
	}
	return e.db.Query(ctx, sql, bound)
}

// QueryRowScoped runs a single-row query for orgID. A violation surfaces from Scan.
func (e *Executor) QueryRowScoped(ctx context.Context, orgID int64, sql string, args pgx.NamedArgs) pgx.Row {
	bound, err := e.bind(orgID, sql, args)
	if err != nil {
		return errRow{err: err}
	}
	return e.db.QueryRow(ctx, sql, bound)
}

// ExecUnscoped runs a tenant-independent statement. Every call site must appear in the
// scope auditor's unscoped allow-list.
func (e *Executor) ExecUnscoped(ctx context.Context, reason, sql string, args ...any) (pgconn.CommandTag, error) {
	e.logUnscoped(ctx, reason, sql)
	return e.db.Exec(ctx, sql, args...)
}

// QueryUnscoped is the query form of ExecUnscoped.
func (e *Executor) QueryUnscoped(ctx context.Context, reason, sql string, args ...any) (pgx.Rows, error) {
	e.logUnscoped(ctx, reason, sql)
	return e.db.Query(ctx, sql, args...)
}

// QueryRowUnscoped is the single-row form of ExecUnscoped.
func (e *Executor) QueryRowUnscoped(ctx context.Context, reason, sql string, args ...any) pgx.Row {
	e.logUnscoped(ctx, reason, sql)
	return e.db.QueryRow(ctx, sql, args...)
}

func (e *Executor) logUnscoped(ctx context.Context, reason, sql string) {
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("caller", caller(3)),
		zap.String("statement_prefix", prefix(sql, logPrefixLen)),
	}
	if s, ok := orgscope.FromContext(ctx); ok {
		fields = append(fields, zap.Int64("user_id", s.UserID), zap.Int64("org_id", s.OrgID))
	} else if id, ok := orgscope.IdentityFromContext(ctx); ok {
		fields = append(fields, zap.Int64("user_id", id.UserID))
	}
	e.logger.Warn("unscoped statement", fields...)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }
