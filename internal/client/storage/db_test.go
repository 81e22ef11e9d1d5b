package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "anonify.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))
	require.True(t, tableExists(t, db, "goose_db_version"))
	require.True(t, tableExists(t, db, "metadata"))
	require.True(t, tableExists(t, db, "archived_results"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "anonify.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	require.True(t, tableExists(t, db, "metadata"))
}

func TestOpen_WiresRepositories(t *testing.T) {
	ctx := context.Background()

	repos, err := Open(ctx, filepath.Join(t.TempDir(), "anonify.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Metadata.Set(ctx, "username", "alice"))
	v, ok, err := repos.Metadata.Get(ctx, "username")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", v)

	list, err := repos.Results.ListByChat(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPurge_WipesAllLocalRecords(t *testing.T) {
	ctx := context.Background()

	repos, err := Open(ctx, filepath.Join(t.TempDir(), "anonify.db"))
	require.NoError(t, err)
	defer repos.Close()

	require.NoError(t, repos.Metadata.Set(ctx, "access_token", "tok"))
	require.NoError(t, repos.Results.Save(ctx, &models.ArchivedResult{TaskID: "t", ChatID: 1, Location: "x", CreatedAt: time.Now()}))

	require.NoError(t, repos.Purge(ctx))

	all, err := repos.Metadata.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
	list, err := repos.Results.ListByChat(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)
}
