package repomanager

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/pending"
	"github.com/stretchr/testify/require"
)

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var m RepositoryManager = NewSQLiteRepositoryManager()

	require.IsType(t, &cache.SQLiteRepository{}, m.Cache(db))
	require.IsType(t, &metadata.SQLiteRepository{}, m.Metadata(db))
	require.IsType(t, &pending.SQLiteRepository{}, m.Pending(db))
}
