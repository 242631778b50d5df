package reconciler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
)

// Batch is one delivery of a Feed.
type Batch struct {
	Collection string
	// Records are the delivered entities in collection order. For a stale
	// batch they are the whole local snapshot.
	Records []*models.Record
	// Removed lists ids deleted remotely (live batches only).
	Removed []string
	// Stale is set when the records come from the local store only.
	Stale bool
	Live  bool
	// NextCursor requests the following page; empty on the last page.
	NextCursor string
	// Evicted counts records dropped from the retention window.
	Evicted int
	// Err is a recoverable remote failure. The local store is untouched.
	Err error
}

// Feed streams the batches of one LoadCollection call.
type Feed struct {
	batches chan Batch
	cancel  context.CancelFunc
	sub     client.Subscription

	// held while a batch is applied and emitted
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// Batches is closed when the feed ends.
func (f *Feed) Batches() <-chan Batch { return f.batches }

// Close stops the feed. A batch arriving afterwards is dropped without
// touching the local store.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		f.cancel()
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		if f.sub != nil {
			_ = f.sub.Close()
		}
	})
	return nil
}

func newFeed(ctx context.Context) (*Feed, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Feed{batches: make(chan Batch, 1), cancel: cancel}, ctx
}

// staticFeed delivers a single batch and ends.
func staticFeed(ctx context.Context, b Batch) *Feed {
	f, _ := newFeed(ctx)
	f.batches <- b
	close(f.batches)
	return f
}

// LoadCollection starts reading collection. Offline it yields one stale batch
// from the local store; online it subscribes to the remote store and applies
// each batch locally before emitting it. A non-empty cursor requests a later
// page and is rejected offline.
func (r *Reconciler) LoadCollection(ctx context.Context, collection, cursor string) (*Feed, error) {
	p, err := r.Policy(collection)
	if err != nil {
		return nil, err
	}

	if !r.oracle.IsConnected(ctx) {
		if cursor != "" {
			return nil, ErrPaginationOffline
		}
		recs, err := r.snapshot(ctx, p)
		if err != nil {
			return nil, err
		}
		return staticFeed(ctx, Batch{Collection: collection, Records: recs, Stale: true}), nil
	}

	f, fctx := newFeed(ctx)
	sub, err := r.remote.QueryOrdered(fctx, models.Query{
		Collection: collection,
		SortField:  p.SortField,
		Descending: p.Descending,
		PageSize:   r.pageSize,
		Cursor:     cursor,
	})
	if err != nil {
		f.cancel()
		return staticFeed(ctx, r.failedBatch(ctx, p, err)), nil
	}
	f.sub = sub

	go r.pump(fctx, f, p)
	return f, nil
}

// Snapshot returns what the local store holds for collection, in collection
// order. It never touches the remote store.
func (r *Reconciler) Snapshot(ctx context.Context, collection string) ([]*models.Record, error) {
	p, err := r.Policy(collection)
	if err != nil {
		return nil, err
	}
	return r.snapshot(ctx, p)
}

func (r *Reconciler) snapshot(ctx context.Context, p Policy) ([]*models.Record, error) {
	return r.cache.QueryAll(ctx, p.Collection, cache.SortByTimestamp, p.Descending)
}

// failedBatch reports err together with whatever the local store holds.
func (r *Reconciler) failedBatch(ctx context.Context, p Policy, err error) Batch {
	if errors.Is(err, client.ErrUnauthorized) {
		r.signalReauth(ctx, err)
		err = fmt.Errorf("%w: %v", syncqueue.ErrReauthRequired, err)
	} else {
		r.log.Warn(ctx, "remote read failed", "collection", p.Collection, "error", err)
	}
	b := Batch{Collection: p.Collection, Stale: true, Err: err}
	recs, lerr := r.snapshot(ctx, p)
	if lerr != nil {
		r.log.Error(ctx, "local read failed", "collection", p.Collection, "error", lerr)
	}
	b.Records = recs
	return b
}

func (r *Reconciler) pump(ctx context.Context, f *Feed, p Policy) {
	defer close(f.batches)
	defer f.sub.Close()

	first := true
	for {
		nctx, cancel := ctx, context.CancelFunc(func() {})
		if first {
			nctx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		page, err := f.sub.Next(nctx)
		cancel()

		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			r.emit(ctx, f, r.failedBatch(ctx, p, err))
			return
		}
		first = false

		if !r.deliver(ctx, f, p, page) {
			return
		}
	}
}

// deliver applies page and emits it unless the feed was closed. It reports
// whether the feed is still open.
func (r *Reconciler) deliver(ctx context.Context, f *Feed, p Policy, page *models.Page) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || ctx.Err() != nil {
		return false
	}

	b, err := r.applyBatch(ctx, p, page)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.log.Error(ctx, "batch not applied", "collection", p.Collection, "error", err)
		b = Batch{Collection: p.Collection, Live: page.Live, NextCursor: page.NextCursor, Err: err}
	}
	return r.emitLocked(ctx, f, b)
}

func (r *Reconciler) emit(ctx context.Context, f *Feed, b Batch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		r.emitLocked(ctx, f, b)
	}
}

func (r *Reconciler) emitLocked(ctx context.Context, f *Feed, b Batch) bool {
	select {
	case f.batches <- b:
		return true
	case <-ctx.Done():
		return false
	}
}

// applyBatch writes page to the local store in one transaction: upserts,
// remote deletions, retention eviction and the watermark.
func (r *Reconciler) applyBatch(ctx context.Context, p Policy, page *models.Page) (Batch, error) {
	lock := r.lock(p.Collection)
	lock.Lock()
	defer lock.Unlock()

	b := Batch{Collection: p.Collection, Live: page.Live, NextCursor: page.NextCursor}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c := r.repos.Cache(tx)
		m := r.repos.Metadata(tx)

		prev, _, err := readWatermark(ctx, m, p.Collection)
		if err != nil {
			return err
		}

		var newest time.Time
		removed := make(map[string]bool)
		for _, doc := range page.Documents {
			if ts := doc.Timestamp(p.SortField); ts.After(newest) {
				newest = ts
			}
			if doc.Deleted {
				removed[doc.ID] = true
				b.Removed = append(b.Removed, doc.ID)
				continue
			}
			rec, err := r.toRecord(p, doc)
			if err != nil {
				r.log.Warn(ctx, "skipping invalid document", "error", err)
				continue
			}
			if err := c.Upsert(ctx, rec); err != nil {
				return err
			}
			b.Records = append(b.Records, rec)
		}

		if len(removed) > 0 {
			if _, err := c.Evict(ctx, p.Collection, func(rec *models.Record) bool { return removed[rec.ID] }); err != nil {
				return err
			}
		}

		if newest.After(prev) {
			if p.Window > 0 {
				n, err := enforceWindow(ctx, c, p)
				if err != nil {
					return err
				}
				b.Evicted = n
			}
			if err := writeWatermark(ctx, m, p.Collection, newest); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Batch{}, err
	}

	if b.Evicted > 0 {
		r.log.Debug(ctx, "window enforced", "collection", p.Collection, "evicted", b.Evicted)
	}
	return b, nil
}

// enforceWindow keeps the first p.Window records in collection order and
// evicts the rest.
func enforceWindow(ctx context.Context, c cache.Repository, p Policy) (int, error) {
	recs, err := c.QueryAll(ctx, p.Collection, cache.SortByTimestamp, p.Descending)
	if err != nil {
		return 0, err
	}
	if len(recs) <= p.Window {
		return 0, nil
	}
	drop := make(map[string]bool, len(recs)-p.Window)
	for _, rec := range recs[p.Window:] {
		drop[rec.ID] = true
	}
	return c.Evict(ctx, p.Collection, func(rec *models.Record) bool { return drop[rec.ID] })
}
