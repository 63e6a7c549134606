package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ettore-crm/internal/config"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testPostgresConfig() *config.PostgresConfig {
	env := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}
	return &config.PostgresConfig{
		Host:           env("TEST_POSTGRES_HOST", "localhost"),
		Port:           env("TEST_POSTGRES_PORT", "5432"),
		Database:       env("TEST_POSTGRES_DB", "ettore_test"),
		User:           env("TEST_POSTGRES_USER", "ettore"),
		Password:       env("TEST_POSTGRES_PASSWORD", "ettore_dev_password"),
		SSLMode:        "disable",
		MaxConnections: 5,
	}
}

// openTestDB connects to the test database and applies migrations, skipping
// the test when Postgres is not reachable.
func openTestDB(t *testing.T) *PostgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := testPostgresConfig()
	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := RunMigrations(cfg.URL()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return db
}
