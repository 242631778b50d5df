package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/repomanager"
	"github.com/stretchr/testify/assert"
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
	dsn := filepath.Join(t.TempDir(), "fitsync.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"goose_db_version", "cache_entries", "metadata", "pending_operations"} {
		assert.True(t, tableExists(t, db, table), table)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "fitsync.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
	assert.True(t, tableExists(t, db, "cache_entries"))
}

func TestRepositories_SurviveReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "fitsync.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	repos := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, repos.Cache(db).Upsert(ctx, &models.Record{Collection: "users", ID: "a@b.c", Payload: json.RawMessage(`{"email":"a@b.c"}`)}))
	require.NoError(t, repos.Metadata(db).Set(ctx, "session:email", "a@b.c"))
	require.NoError(t, db.Close())

	db, err = InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	rec, err := repos.Cache(db).GetByKey(ctx, "users", "a@b.c")
	require.NoError(t, err)
	require.NotNil(t, rec)
	v, ok, err := repos.Metadata(db).Get(ctx, "session:email")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", v)
}
