package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/portfolio-reconciler/internal/config"
	"github.com/stretchr/testify/require"
)

// testContext bounds a test's calls against live dependencies
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	return &config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "portfolio_reconciler",
		User:           "reconciler",
		Password:       "reconciler_dev_password",
		MaxConnections: 5,
	}
}

// openMigratedPostgres connects to the local record source and applies every
// migration, skipping the test when Postgres is not running.
func openMigratedPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(testContext(t), cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, NewMigrator(cfg.URL(), filepath.Join("..", "..", "migrations", "postgres")).Up())
	return db
}

func strPtr(s string) *string { return &s }
