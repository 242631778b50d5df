// Package syncqueue is the durable ledger of writes the remote store has not
// confirmed yet. Operations are replayed oldest first; see Classify for how
// a failed replay is treated.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/pending"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
)

// ErrReauthRequired means the remote store rejected the session. Queued
// operations are kept until the user signs in again.
var ErrReauthRequired = errors.New("re-authentication required")

// Remote is the part of the remote store replays need.
type Remote interface {
	Write(ctx context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error)
	Delete(ctx context.Context, collection, id string) error
}

// AppliedFunc is called after an op is confirmed. doc is the stored
// document for writes and nil for deletes.
type AppliedFunc func(ctx context.Context, op *models.PendingOperation, doc *models.Document)

// Discarded is an op dropped after a permanent failure.
type Discarded struct {
	Op  *models.PendingOperation
	Err error
}

// DrainReport describes one Drain call.
type DrainReport struct {
	Applied   []*models.PendingOperation
	Discarded []Discarded
	// Remaining is the number of ops left queued when the drain stopped.
	Remaining int
	// Stopped is the retryable error that ended the drain early, if any.
	Stopped error
}

// Contains reports whether opID was applied or discarded by this drain,
// returning the discard reason for the latter.
func (r DrainReport) Contains(opID string) (applied bool, discarded error) {
	for _, op := range r.Applied {
		if op.OpID == opID {
			return true, nil
		}
	}
	for _, d := range r.Discarded {
		if d.Op.OpID == opID {
			return false, d.Err
		}
	}
	return false, nil
}

type Queue struct {
	repo      pending.Repository
	remote    Remote
	log       logging.Logger
	onApplied AppliedFunc
	retry     []retryx.Option

	// serializes drains so an op is never replayed twice concurrently
	mu sync.Mutex
}

type Option func(*Queue)

// WithOnApplied registers fn to run after each confirmed op.
func WithOnApplied(fn AppliedFunc) Option {
	return func(q *Queue) { q.onApplied = fn }
}

// WithRetry overrides the per-op retry policy.
func WithRetry(opts ...retryx.Option) Option {
	return func(q *Queue) { q.retry = opts }
}

func New(repo pending.Repository, remote Remote, l logging.Logger, opts ...Option) *Queue {
	q := &Queue{repo: repo, remote: remote, log: l.With("module", "syncqueue")}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue stores op durably. Enqueueing an OpID again replaces its payload.
func (q *Queue) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	if err := q.repo.Enqueue(ctx, op); err != nil {
		return err
	}
	q.log.Debug(ctx, "op queued", "op_id", op.OpID, "collection", op.Collection, "entity_id", op.EntityID, "kind", op.Kind)
	return nil
}

func (q *Queue) Remove(ctx context.Context, opID string) error {
	return q.repo.Delete(ctx, opID)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.repo.Count(ctx)
}

// Pending returns the queued ops oldest first.
func (q *Queue) Pending(ctx context.Context) ([]*models.PendingOperation, error) {
	return q.repo.List(ctx)
}

// Clear drops every queued op and returns how many were dropped.
func (q *Queue) Clear(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.repo.Clear(ctx)
}

// Drain replays queued ops in FIFO order. It stops at the first retryable
// failure, and at an authentication failure, which is returned as
// ErrReauthRequired. Permanent failures are discarded and reported.
func (q *Queue) Drain(ctx context.Context) (DrainReport, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var report DrainReport
	ops, err := q.repo.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending: %w", err)
	}

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			report.Remaining = len(ops) - i
			return report, err
		}

		doc, err := q.replay(ctx, op)
		switch Classify(op, err) {
		case Done:
			if err := q.repo.Delete(ctx, op.OpID); err != nil {
				report.Remaining = len(ops) - i
				return report, err
			}
			report.Applied = append(report.Applied, op)
			if q.onApplied != nil {
				q.onApplied(ctx, op, doc)
			}

		case Permanent:
			q.log.Warn(ctx, "op discarded", "op_id", op.OpID, "collection", op.Collection, "entity_id", op.EntityID, "error", err)
			if derr := q.repo.Delete(ctx, op.OpID); derr != nil {
				report.Remaining = len(ops) - i
				return report, derr
			}
			report.Discarded = append(report.Discarded, Discarded{Op: op, Err: err})

		case Fatal:
			q.markAttempt(ctx, op, err)
			report.Remaining = len(ops) - i
			return report, fmt.Errorf("%w: %v", ErrReauthRequired, err)

		case Retryable:
			q.markAttempt(ctx, op, err)
			report.Remaining = len(ops) - i
			report.Stopped = err
			q.log.Info(ctx, "drain stopped", "op_id", op.OpID, "remaining", report.Remaining, "error", err)
			return report, nil
		}
	}

	if len(ops) > 0 {
		q.log.Info(ctx, "drain finished", "applied", len(report.Applied), "discarded", len(report.Discarded))
	}
	return report, nil
}

func (q *Queue) replay(ctx context.Context, op *models.PendingOperation) (*models.Document, error) {
	var doc *models.Document
	opts := append([]retryx.Option{
		retryx.If(func(err error) bool { return Classify(op, err) == Retryable }),
	}, q.retry...)

	err := retryx.Do(ctx, func(ctx context.Context) error {
		var err error
		switch op.Kind {
		case models.OpDelete:
			err = q.remote.Delete(ctx, op.Collection, op.EntityID)
		case models.OpWrite:
			doc, err = q.remote.Write(ctx, op.Collection, op.EntityID, op.Payload, op.Merge)
		default:
			err = fmt.Errorf("%w %q", errUnknownKind, op.Kind)
		}
		return err
	}, opts...)
	return doc, err
}

var errUnknownKind = errors.New("unknown op kind")

func (q *Queue) markAttempt(ctx context.Context, op *models.PendingOperation, cause error) {
	if err := q.repo.MarkAttempt(ctx, op.OpID, cause.Error()); err != nil {
		q.log.Error(ctx, "failed to record attempt", "op_id", op.OpID, "error", err)
	}
}
