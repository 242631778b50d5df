// Package repomanager vends the client's SQLite repositories bound to a
// DBTX, so callers can run several of them inside one transaction.
package repomanager

import (
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/pending"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
)

type RepositoryManager interface {
	Cache(db dbx.DBTX) cache.Repository
	Metadata(db dbx.DBTX) metadata.Repository
	Pending(db dbx.DBTX) pending.Repository
}

// SQLiteRepositoryManager returns the SQLite implementations.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Cache(db dbx.DBTX) cache.Repository {
	return cache.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Pending(db dbx.DBTX) pending.Repository {
	return pending.NewSQLiteRepository(db)
}
