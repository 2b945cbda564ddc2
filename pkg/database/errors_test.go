package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})
	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	undefined := &pgconn.PgError{Code: pgerrcode.UndefinedColumn}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsUndefinedColumn(undefined))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("boom")))
}

func TestMigrationNamesOrdered(t *testing.T) {
	names, err := MigrationNames()
	assert.NoError(t, err)
	assert.Equal(t, []string{"001_tenancy.sql", "002_business.sql", "003_reporting_views.sql"}, names)

	src, err := MigrationSource()
	assert.NoError(t, err)
	assert.Contains(t, src, "CREATE OR REPLACE VIEW report_sales_daily")
}
