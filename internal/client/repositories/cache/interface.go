package cache

import (
	"context"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
)

// SortKey names a column QueryAll may order by.
type SortKey string

const (
	SortByTimestamp SortKey = "sort_at"
	SortBySyncedAt  SortKey = "last_synced_at"
	SortByID        SortKey = "id"
)

// Repository is the local store used by the reconciler and services.
type Repository interface {
	// Upsert inserts rec or replaces the payload and timestamps of the
	// existing record with the same key. Upserting the same record twice
	// leaves the store as after the first call.
	Upsert(ctx context.Context, rec *models.Record) error

	// UpsertBatch applies Upsert to each record in order.
	UpsertBatch(ctx context.Context, recs []*models.Record) error

	// Evict removes every record of collection for which match returns true
	// and reports how many were removed.
	Evict(ctx context.Context, collection string, match func(*models.Record) bool) (int, error)

	// QueryAll returns all records of collection ordered by key. Ties are
	// broken by first-insert order.
	QueryAll(ctx context.Context, collection string, key SortKey, desc bool) ([]*models.Record, error)

	// GetByKey returns the record or nil when there is none.
	GetByKey(ctx context.Context, collection, id string) (*models.Record, error)

	Count(ctx context.Context, collection string) (int, error)

	// Clear removes every cached record of collection.
	Clear(ctx context.Context, collection string) error
}
