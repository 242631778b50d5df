// Package pending persists the sync queue: mutations made while the remote
// store could not confirm them, in the order they were made.
package pending

import (
	"context"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
)

type Repository interface {
	// Enqueue appends op. An op with an OpID already queued replaces the
	// stored payload but keeps its position.
	Enqueue(ctx context.Context, op *models.PendingOperation) error

	// List returns the queued operations oldest first.
	List(ctx context.Context) ([]*models.PendingOperation, error)

	Delete(ctx context.Context, opID string) error

	// MarkAttempt increments the attempt counter and records lastErr.
	MarkAttempt(ctx context.Context, opID, lastErr string) error

	Count(ctx context.Context) (int, error)

	// Clear drops every queued operation and returns how many there were.
	Clear(ctx context.Context) (int, error)
}
