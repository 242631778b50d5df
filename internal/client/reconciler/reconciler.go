// Package reconciler keeps the local store consistent with the remote store.
//
// Reads go to the remote store when the connectivity oracle reports online,
// with every delivered batch written to the local store in one transaction
// together with the collection's watermark; offline reads are served from
// the local store and marked stale. Writes are recorded in the sync queue
// first, applied optimistically to the local store, and then sent to the
// remote store or left queued until the next offline-to-online transition.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	DefaultTimeout  = 10 * time.Second

	watermarkPrefix = "watermark:"
)

type Reconciler struct {
	db        dbx.DB
	repos     repomanager.RepositoryManager
	cache     cache.Repository
	meta      metadata.Repository
	remote    client.RemoteStore
	oracle    connectivity.Oracle
	queue     *syncqueue.Queue
	queueOpts []syncqueue.Option
	log       logging.Logger
	policies  map[string]Policy
	pageSize  int
	timeout   time.Duration
	now       func() time.Time
	newID     func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	reauth chan struct{}
}

type Option func(*Reconciler)

func WithPageSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithTimeout bounds remote lookups and the first batch of a subscription.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithPolicies(p map[string]Policy) Option {
	return func(r *Reconciler) { r.policies = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDGenerator replaces the op id source (uuid by default).
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) { r.newID = fn }
}

// WithQueueOptions passes options to the sync queue the reconciler owns.
func WithQueueOptions(opts ...syncqueue.Option) Option {
	return func(r *Reconciler) { r.queueOpts = opts }
}

func New(db dbx.DB, repos repomanager.RepositoryManager, remote client.RemoteStore, oracle connectivity.Oracle, l logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		db:       db,
		repos:    repos,
		cache:    repos.Cache(db),
		meta:     repos.Metadata(db),
		remote:   remote,
		oracle:   oracle,
		log:      l.With("module", "reconciler"),
		policies: DefaultPolicies(),
		pageSize: DefaultPageSize,
		timeout:  DefaultTimeout,
		now:      time.Now,
		newID:    uuid.NewString,
		locks:    make(map[string]*sync.Mutex),
		reauth:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(r)
	}

	qopts := append([]syncqueue.Option{syncqueue.WithOnApplied(r.onApplied)}, r.queueOpts...)
	r.queue = syncqueue.New(repos.Pending(db), remote, l, qopts...)
	return r
}

// Queue exposes the sync queue for status reporting.
func (r *Reconciler) Queue() *syncqueue.Queue { return r.queue }

// Policy returns the policy of collection.
func (r *Reconciler) Policy(collection string) (Policy, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return Policy{}, err
	}
	p, ok := r.policies[collection]
	if !ok {
		return Policy{}, fmt.Errorf("%w: no policy for %q", domain.ErrUnknownCollection, collection)
	}
	return p, nil
}

// Reauth is signalled when the remote store rejects the session.
func (r *Reconciler) Reauth() <-chan struct{} { return r.reauth }

func (r *Reconciler) signalReauth(ctx context.Context, cause error) {
	r.log.Warn(ctx, "session rejected", "error", cause)
	select {
	case r.reauth <- struct{}{}:
	default:
	}
}

func (r *Reconciler) lock(collection string) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	m, ok := r.locks[collection]
	if !ok {
		m = &sync.Mutex{}
		r.locks[collection] = m
	}
	return m
}

// Watermark returns the newest sort timestamp confirmed for collection.
func (r *Reconciler) Watermark(ctx context.Context, collection string) (time.Time, bool, error) {
	return readWatermark(ctx, r.meta, collection)
}

func readWatermark(ctx context.Context, m metadata.Repository, collection string) (time.Time, bool, error) {
	v, ok, err := m.Get(ctx, watermarkPrefix+collection)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("watermark %s: %w", collection, err)
	}
	return t, true, nil
}

func writeWatermark(ctx context.Context, m metadata.Repository, collection string, t time.Time) error {
	return m.Set(ctx, watermarkPrefix+collection, t.UTC().Format(time.RFC3339Nano))
}

// GetEntity returns one record, refreshed from the remote store when online.
// stale is set when the record comes from the local store only.
func (r *Reconciler) GetEntity(ctx context.Context, collection, id string) (rec *models.Record, stale bool, err error) {
	p, err := r.Policy(collection)
	if err != nil {
		return nil, false, err
	}

	if r.oracle.IsConnected(ctx) {
		rctx, cancel := context.WithTimeout(ctx, r.timeout)
		doc, err := r.remote.GetByID(rctx, collection, id)
		cancel()

		switch {
		case err == nil:
			rec, err := r.toRecord(p, doc)
			if err != nil {
				return nil, false, err
			}
			lock := r.lock(collection)
			lock.Lock()
			defer lock.Unlock()
			if err := r.cache.Upsert(ctx, rec); err != nil {
				r.log.Error(ctx, "cache refresh failed", "collection", collection, "id", id, "error", err)
			}
			return rec, false, nil
		case errors.Is(err, client.ErrNotFound):
			lock := r.lock(collection)
			lock.Lock()
			defer lock.Unlock()
			if _, err := r.cache.Evict(ctx, collection, func(rec *models.Record) bool { return rec.ID == id }); err != nil {
				r.log.Error(ctx, "cache evict failed", "collection", collection, "id", id, "error", err)
			}
			return nil, false, nil
		case errors.Is(err, client.ErrUnauthorized):
			r.signalReauth(ctx, err)
		default:
			r.log.Warn(ctx, "remote lookup failed, using cache", "collection", collection, "id", id, "error", err)
		}
	}

	rec, err = r.cache.GetByKey(ctx, collection, id)
	if err != nil {
		return nil, true, err
	}
	return rec, true, nil
}

// toRecord parses doc and turns it into a local record. Documents that do
// not parse are rejected so the cache only ever holds valid payloads.
func (r *Reconciler) toRecord(p Policy, doc *models.Document) (*models.Record, error) {
	if _, err := domain.ParseDocument(p.Collection, doc.Payload); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", p.Collection, doc.ID, err)
	}
	return &models.Record{
		Collection:   p.Collection,
		ID:           doc.ID,
		Payload:      doc.Payload,
		SortAt:       doc.Timestamp(p.SortField),
		LastSyncedAt: r.now(),
	}, nil
}
