package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SanketOodles/wa-automation-backend/internal/database"
)

// setupTestDB connects to TEST_DATABASE_URL, applies migrations and wipes
// mutable tables. Seeded roles and the default organisation survive.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(url)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE accounts, user_roles, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM organisations WHERE id > 1`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM roles WHERE id > 4`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE roles SET deleted_at = NULL, status = 'active' WHERE id <= 4`)
	require.NoError(t, err)

	return db
}

func ptr[T any](v T) *T {
	return &v
}
