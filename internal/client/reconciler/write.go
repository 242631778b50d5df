package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

// WriteResult describes what happened to a write or delete.
type WriteResult struct {
	OpID string
	// Record is the optimistic local version (nil for deletes).
	Record *models.Record
	// Synced is set once the remote store confirmed the op.
	Synced bool
	// Queued is set while the op waits in the sync queue.
	Queued bool
	// LocalErr wraps ErrLocalStore when the optimistic write failed.
	LocalErr error
	// RemoteErr is the reason the op was not confirmed, if any. For a
	// discarded op the local change will not reach the remote store.
	RemoteErr error
}

// WriteEntity records the write in the sync queue, applies it to the local
// store and, when online, drains the queue so it reaches the remote store in
// FIFO order. For merging collections payload is a patch.
func (r *Reconciler) WriteEntity(ctx context.Context, collection, id string, payload json.RawMessage) (WriteResult, error) {
	p, err := r.Policy(collection)
	if err != nil {
		return WriteResult{}, err
	}
	if p.ReadOnly {
		return WriteResult{}, fmt.Errorf("%w: %s", ErrReadOnly, collection)
	}
	if id == "" || !domain.IsObject(payload) {
		return WriteResult{}, fmt.Errorf("%w: %s/%q needs an id and a JSON object", domain.ErrInvalidPayload, collection, id)
	}

	rec, err := r.prepareLocal(ctx, p, id, payload)
	if err != nil {
		return WriteResult{}, err
	}

	op := &models.PendingOperation{
		OpID:       r.newID(),
		Collection: collection,
		EntityID:   id,
		Kind:       models.OpWrite,
		Payload:    payload,
		Merge:      p.Merge,
		CreatedAt:  r.now(),
	}
	if err := r.queue.Enqueue(ctx, op); err != nil {
		return WriteResult{}, fmt.Errorf("write-ahead: %w", err)
	}

	res := WriteResult{OpID: op.OpID, Record: rec}
	if rec != nil {
		lock := r.lock(collection)
		lock.Lock()
		err := r.cache.Upsert(ctx, rec)
		lock.Unlock()
		if err != nil {
			res.LocalErr = r.localFailure(ctx, op, err)
		}
	}

	return r.route(ctx, op, res)
}

// DeleteEntity removes id locally and remotely, queueing the remote delete
// while offline.
func (r *Reconciler) DeleteEntity(ctx context.Context, collection, id string) (WriteResult, error) {
	p, err := r.Policy(collection)
	if err != nil {
		return WriteResult{}, err
	}
	if p.ReadOnly {
		return WriteResult{}, fmt.Errorf("%w: %s", ErrReadOnly, collection)
	}

	op := &models.PendingOperation{
		OpID:       r.newID(),
		Collection: collection,
		EntityID:   id,
		Kind:       models.OpDelete,
		CreatedAt:  r.now(),
	}
	if err := r.queue.Enqueue(ctx, op); err != nil {
		return WriteResult{}, fmt.Errorf("write-ahead: %w", err)
	}

	res := WriteResult{OpID: op.OpID}
	lock := r.lock(collection)
	lock.Lock()
	_, err = r.cache.Evict(ctx, collection, func(rec *models.Record) bool { return rec.ID == id })
	lock.Unlock()
	if err != nil {
		res.LocalErr = r.localFailure(ctx, op, err)
	}

	return r.route(ctx, op, res)
}

func (r *Reconciler) localFailure(ctx context.Context, op *models.PendingOperation, err error) error {
	r.log.Error(ctx, "optimistic local write failed", "collection", op.Collection, "id", op.EntityID, "error", err)
	return fmt.Errorf("%w: %v", ErrLocalStore, err)
}

// route leaves op queued while offline, or drains the queue and reports
// what happened to op.
func (r *Reconciler) route(ctx context.Context, op *models.PendingOperation, res WriteResult) (WriteResult, error) {
	if !r.oracle.IsConnected(ctx) {
		res.Queued = true
		return res, nil
	}

	report, err := r.queue.Drain(ctx)
	if errors.Is(err, syncqueue.ErrReauthRequired) {
		r.signalReauth(ctx, err)
		res.Queued = true
		res.RemoteErr = err
		return res, err
	}

	applied, discarded := report.Contains(op.OpID)
	switch {
	case applied:
		res.Synced = true
	case discarded != nil:
		res.RemoteErr = discarded
	default:
		res.Queued = true
		res.RemoteErr = report.Stopped
		if res.RemoteErr == nil {
			res.RemoteErr = err
		}
	}
	return res, nil
}

// prepareLocal builds the optimistic record for a write: the payload merged
// onto the cached version when the collection merges, validated as a whole
// document. A patch for an entity that is not cached yet is merged onto
// domain.MergeBase.
func (r *Reconciler) prepareLocal(ctx context.Context, p Policy, id string, payload json.RawMessage) (*models.Record, error) {
	existing, err := r.cache.GetByKey(ctx, p.Collection, id)
	if err != nil {
		// the local store is unusable; the write still goes ahead remotely
		r.log.Error(ctx, "local read failed", "collection", p.Collection, "id", id, "error", err)
		existing = nil
	}

	doc := []byte(payload)
	if p.Merge {
		base := domain.MergeBase(p.Collection, id)
		if existing != nil {
			base = existing.Payload
		}
		if doc, err = domain.MergeObjects(base, payload); err != nil {
			return nil, err
		}
	}

	parsed, err := domain.ParseDocument(p.Collection, doc)
	if err != nil {
		return nil, err
	}

	rec := &models.Record{
		Collection:   p.Collection,
		ID:           id,
		Payload:      doc,
		SortAt:       r.now(),
		LastSyncedAt: r.now(),
	}
	if post, ok := parsed.(domain.Post); ok {
		rec.SortAt = post.CreatedAt
	}
	return rec, nil
}

// onApplied refreshes the local store with the document the remote store
// confirmed.
func (r *Reconciler) onApplied(ctx context.Context, op *models.PendingOperation, doc *models.Document) {
	if op.Kind != models.OpWrite || doc == nil {
		return
	}
	p, err := r.Policy(op.Collection)
	if err != nil {
		return
	}
	rec, err := r.toRecord(p, doc)
	if err != nil {
		r.log.Warn(ctx, "confirmed document rejected", "error", err)
		return
	}

	lock := r.lock(op.Collection)
	lock.Lock()
	defer lock.Unlock()
	if err := r.cache.Upsert(ctx, rec); err != nil {
		r.log.Error(ctx, "canonical refresh failed", "collection", op.Collection, "id", op.EntityID, "error", err)
	}
}
