//go:build integration

package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/internal/telemetry"
	"github.com/sellerdesk/backend/pkg/database/dbtest"
)

func TestAuditViews_Postgres(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.Start(t)
	exec := scopedb.New(pool, nil, nil)

	vs, err := AuditViews(ctx, exec)
	require.NoError(t, err)
	assert.Empty(t, vs, "migrated reporting views are scoped")

	_, err = pool.Exec(ctx, `CREATE VIEW report_leaky AS SELECT sku FROM catalog_items`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `CREATE VIEW report_orphans AS SELECT NULL::BIGINT AS org_id`)
	require.NoError(t, err)

	vs, err = AuditViews(ctx, exec)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, Violation{Kind: telemetry.KindUnscopedView, Subject: "report_leaky", Missing: "org_id column"}, vs[0])
	assert.Equal(t, Violation{Kind: telemetry.KindUnscopedView, Subject: "report_orphans", Missing: "org_id on 1 row(s)"}, vs[1])
}
