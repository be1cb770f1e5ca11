package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/db"
)

// OpenTestDB connects to the postgres named by TEST_DB_HOST, migrates it and
// truncates every table. Tests are skipped when the variable is unset.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "justnotes",
		Password: "justnotes_pass",
		DBName:   "justnotes_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(context.Background(), conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if _, err := conn.Exec("TRUNCATE comments, notes, folders, users"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
