package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// setupTestDB connects to the database described by DB_* (optionally from a
// local .env), applies the schema and empties every table. The test is
// skipped when no database is reachable.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	_ = godotenv.Load("../../../.env")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("DB_USER", "kanso_user"),
		getEnv("DB_PASSWORD", "secret"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "kanso_db"),
	)

	db, err := sqlx.Connect(getEnv("DB_DRIVER", "pgx"), dsn)
	if err != nil {
		t.Skipf("Skipping integration tests: database connection failed: %v", err)
	}

	require.NoError(t, EnsureSchema(context.Background(), db))
	cleanup(t, db)
	t.Cleanup(func() {
		cleanup(t, db)
		db.Close()
	})
	return db
}

func cleanup(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec("TRUNCATE TABLE habit_entries, habits, users CASCADE")
	require.NoError(t, err, "Failed to clean up database")
}

func seedUser(t *testing.T, db *sqlx.DB, id, email string) {
	t.Helper()
	db.MustExec(`INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, 'hash', NOW(), NOW())`, id, email)
}
