package db

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, name := range names {
		body, err := fs.ReadFile(Migrations(), name)
		require.NoError(t, err)
		text := string(body)
		up := strings.Index(text, "-- +goose Up")
		down := strings.Index(text, "-- +goose Down")
		assert.Zero(t, up, name)
		assert.Greater(t, down, up, name)
	}
}

func TestProviderListsVersionsInOrder(t *testing.T) {
	// sql.Open does not connect, so no server is needed to list sources.
	conn, err := sql.Open("postgres", "postgres://localhost/unused?sslmode=disable")
	require.NoError(t, err)
	defer conn.Close()

	p, err := (&DB{conn}).provider()
	require.NoError(t, err)
	var versions []int64
	for _, src := range p.ListSources() {
		assert.Equal(t, goose.TypeSQL, src.Type)
		versions = append(versions, src.Version)
	}
	assert.Equal(t, []int64{1, 2, 3}, versions)
}

// Runs against a real Postgres when TEST_DATABASE_URL is set.
func TestMigrateUpDownUp(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	d, err := Connect(ctx, url)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Migrate(ctx))
	require.NoError(t, d.Migrate(ctx))

	require.NoError(t, d.MigrateDown(ctx))
	var exists bool
	require.NoError(t, d.QueryRowContext(ctx, `SELECT to_regclass('public.ads') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)

	require.NoError(t, d.Migrate(ctx))
	require.NoError(t, d.QueryRowContext(ctx, `SELECT to_regclass('public.ads') IS NOT NULL`).Scan(&exists))
	assert.True(t, exists)
}
