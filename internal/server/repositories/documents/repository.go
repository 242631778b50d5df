// Package documents stores JSON documents of every collection in one
// PostgreSQL table and serves keyset-paginated, ordered reads over them.
package documents

import (
	"context"

	"github.com/dmitrijs2005/fitsync/internal/server/models"
)

// Sortable columns.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
)

// Query selects one page of a collection. After, when set, is the keyset
// position of the last row of the previous page.
type Query struct {
	Collection string
	SortField  string
	Descending bool
	Limit      int
	After      *Cursor
}

type Repository interface {
	// Get returns common.ErrorNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*models.Document, error)
	// GetForUpdate is Get with a row lock; use it inside a transaction.
	GetForUpdate(ctx context.Context, collection, id string) (*models.Document, error)
	// Upsert inserts d or replaces its payload, keeping owner and created_at
	// of an existing row. Timestamps and seq are filled in from the database.
	Upsert(ctx context.Context, d *models.Document) (*models.Document, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, collection, id string) (bool, error)
	QueryOrdered(ctx context.Context, q Query) ([]*models.Document, error)
}
