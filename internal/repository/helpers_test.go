package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KDR9MGR/digital-payments-sub001/internal/config"
	"github.com/KDR9MGR/digital-payments-sub001/internal/db"
)

// setupTestDB connects to the database described by the DB_* environment
// variables, defaulting to a local dev instance, and skips the test when it
// is unreachable.
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Host:            envOr("DB_HOST", "localhost"),
		Port:            envOr("DB_PORT", "5432"),
		User:            envOr("DB_USER", "postgres"),
		Password:        envOr("DB_PASSWORD", "postgres"),
		DBName:          envOr("DB_NAME", "payments_test"),
		SSLMode:         envOr("DB_SSLMODE", "disable"),
		ConnMaxLifetime: 5 * time.Minute,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.Connect(context.Background(), &cfg, logger)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	runMigrations(t, database)
	truncateTables(t, database)
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	return database
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runMigrations(t *testing.T, database *db.DB) {
	t.Helper()

	migrationPath := filepath.Join("..", "db", "migrations", "000001_init.up.sql")
	sqlBytes, err := os.ReadFile(migrationPath) // #nosec G304
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	if _, err := database.ExecContext(context.Background(), string(sqlBytes)); err != nil {
		// The schema uses IF NOT EXISTS throughout; any other failure is real.
		t.Fatalf("failed to apply migrations: %v", err)
	}
}

func truncateTables(t *testing.T, database *db.DB) {
	t.Helper()

	tables := []string{"idempotency_keys", "webhook_events", "transactions", "accounts"}
	for _, table := range tables {
		if _, err := database.ExecContext(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
