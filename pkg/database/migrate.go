package database

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate runs embedded SQL migrations in order (001_tenancy.sql, 002_..., etc.).
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := MigrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		sql, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err = pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
	}
	return nil
}

// MigrationNames lists embedded migrations in execution order.
func MigrationNames() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// MigrationSource returns the concatenated text of all migrations, for source audits.
func MigrationSource() (string, error) {
	names, err := MigrationNames()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, name := range names {
		sql, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return "", fmt.Errorf("read migration %s: %w", name, err)
		}
		b.Write(sql)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
