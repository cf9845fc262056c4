package xbarstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "xbar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLite_Suite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return newTestSQLite(t) }, suiteOptions{pruneByUtime: true})
}

func TestSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "xbar.db")

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, newSnap("persist", 0, "GET", "/", "")))
	require.NoError(t, s.Close(ctx))

	// 第二次打开时迁移无变化
	s, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close(ctx) }()

	got, err := s.Get(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "persist", got.ID())

	var version int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)
}
