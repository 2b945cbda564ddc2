package scopedb

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
	"github.com/sellerdesk/backend/internal/telemetry"
)

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []call
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	return nil, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	return errRow{}
}

func (f *fakeDB) lastNamed(t *testing.T) pgx.NamedArgs {
	t.Helper()
	require.NotEmpty(t, f.calls)
	last := f.calls[len(f.calls)-1]
	require.Len(t, last.args, 1)
	named, ok := last.args[0].(pgx.NamedArgs)
	require.True(t, ok, "expected pgx.NamedArgs, got %T", last.args[0])
	return named
}

func newTestExecutor(db DB) (*Executor, *telemetry.Violations, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	v := telemetry.NewViolations(prometheus.NewRegistry(), 0)
	return New(db, zap.New(core), v), v, logs
}

func TestExecutor_BindsResolvedOrg(t *testing.T) {
	db := &fakeDB{}
	e, _, _ := newTestExecutor(db)

	_, err := e.QueryScoped(context.Background(), 42,
		`SELECT id FROM catalog_items WHERE org_id = @org_id AND sku = @sku`,
		pgx.NamedArgs{"sku": "A-1"})
	require.NoError(t, err)

	named := db.lastNamed(t)
	assert.Equal(t, int64(42), named["org_id"])
	assert.Equal(t, "A-1", named["sku"])
}

func TestExecutor_OverwritesSmuggledTenant(t *testing.T) {
	db := &fakeDB{}
	e, _, _ := newTestExecutor(db)

	smuggled := pgx.NamedArgs{"org_id": int64(2), "ORG_ID": int64(3), "sku": "A-1"}
	_, err := e.ExecScoped(context.Background(), 1,
		`UPDATE catalog_items SET stock = 0 WHERE org_id = @org_id AND sku = @sku`, smuggled)
	require.NoError(t, err)

	named := db.lastNamed(t)
	assert.Equal(t, int64(1), named["org_id"])
	assert.NotContains(t, named, "ORG_ID")
	// the caller's map is left untouched
	assert.Equal(t, int64(2), smuggled["org_id"])
}

func TestExecutor_RejectsMissingOrgID(t *testing.T) {
	for _, orgID := range []int64{0, -5} {
		db := &fakeDB{}
		e, v, logs := newTestExecutor(db)

		_, err := e.QueryScoped(context.Background(), orgID,
			`SELECT id FROM catalog_items WHERE org_id = @org_id`, nil)

		var sv *apperr.ScopeViolation
		require.ErrorAs(t, err, &sv)
		assert.Equal(t, apperr.KindMissingOrgID, sv.Kind)
		assert.Empty(t, db.calls, "statement must not reach the database")
		assert.Equal(t, 1.0, testutil.ToFloat64(v.Counter().WithLabelValues(apperr.KindMissingOrgID)))
		assert.Equal(t, 0.0, testutil.ToFloat64(v.Counter().WithLabelValues(apperr.KindMissingFilterToken)))

		entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		require.Len(t, entries, 1)
		assert.Equal(t, "tenant scope violation", entries[0].Message)
	}
}

func TestExecutor_RejectsMissingFilterWithoutRewriting(t *testing.T) {
	db := &fakeDB{}
	e, v, logs := newTestExecutor(db)
	stmt := `SELECT id FROM catalog_items`

	_, err := e.ExecScoped(context.Background(), 1, stmt, nil)
	require.True(t, apperr.IsScopeViolation(err))
	_, err = e.QueryScoped(context.Background(), 1, stmt, nil)
	require.True(t, apperr.IsScopeViolation(err))
	var id int64
	err = e.QueryRowScoped(context.Background(), 1, stmt, nil).Scan(&id)
	require.True(t, apperr.IsScopeViolation(err))

	assert.Empty(t, db.calls)
	assert.Equal(t, 3.0, testutil.ToFloat64(v.Counter().WithLabelValues(apperr.KindMissingFilterToken)))

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 3)
	assert.Equal(t, stmt, entries[0].ContextMap()["statement_prefix"])
}

func TestExecutor_UnscopedLogsWarningWithCaller(t *testing.T) {
	db := &fakeDB{}
	e, v, logs := newTestExecutor(db)
	ctx := orgscope.WithScope(context.Background(), orgscope.Scope{UserID: 9, OrgID: 3, Role: models.RoleOwner})

	_, err := e.ExecUnscoped(ctx, "health check", `SELECT 1`)
	require.NoError(t, err)

	require.Len(t, db.calls, 1)
	assert.Equal(t, `SELECT 1`, db.calls[0].sql)

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "health check", fields["reason"])
	assert.Equal(t, int64(9), fields["user_id"])
	assert.Contains(t, fields["caller"], "executor_test.go")
	assert.Equal(t, 0.0, testutil.ToFloat64(v.Counter().WithLabelValues(apperr.KindMissingFilterToken)))
}

func TestExecutor_InTxRequiresBeginner(t *testing.T) {
	e, _, _ := newTestExecutor(&fakeDB{})
	err := e.InTx(context.Background(), func(*Executor) error { return nil })
	assert.Error(t, err)
}
