package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
)

// Store is the reconciler surface used by the services.
type Store interface {
	LoadCollection(ctx context.Context, collection, cursor string) (*reconciler.Feed, error)
	Snapshot(ctx context.Context, collection string) ([]*models.Record, error)
	GetEntity(ctx context.Context, collection, id string) (*models.Record, bool, error)
	WriteEntity(ctx context.Context, collection, id string, payload json.RawMessage) (reconciler.WriteResult, error)
	DeleteEntity(ctx context.Context, collection, id string) (reconciler.WriteResult, error)
}

// firstBatch reads one batch of a fresh load and closes the feed.
func firstBatch(ctx context.Context, s Store, collection, cursor string) (reconciler.Batch, error) {
	f, err := s.LoadCollection(ctx, collection, cursor)
	if err != nil {
		return reconciler.Batch{}, err
	}
	defer f.Close()

	select {
	case b, ok := <-f.Batches():
		if !ok {
			return reconciler.Batch{Collection: collection}, nil
		}
		return b, nil
	case <-ctx.Done():
		return reconciler.Batch{}, ctx.Err()
	}
}

func marshalPayload(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}
