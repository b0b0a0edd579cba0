package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{"asset_cache", "source_failure", "derived_cache"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}

	assert.NoError(t, HealthCheck(ctx, db))
}

func TestOpen_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	db.Close()

	db, err = Open(ctx, path)
	require.NoError(t, err, "re-opening must not re-apply migrations")
	db.Close()
}
