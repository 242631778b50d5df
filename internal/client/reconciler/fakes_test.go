package reconciler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/migrations"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/cache"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var base = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func at(minute int) time.Time { return base.Add(time.Duration(minute) * time.Minute) }

func postDoc(id string, minute int) *models.Document {
	ts := at(minute)
	payload := fmt.Sprintf(`{"id":%q,"authorId":"a@b.c","content":"post %s","createdAt":%q}`,
		id, id, ts.Format(time.RFC3339Nano))
	return &models.Document{Collection: "posts", ID: id, Payload: json.RawMessage(payload), CreatedAt: ts, UpdatedAt: ts}
}

func userDoc(email, name string, minute int) *models.Document {
	payload := fmt.Sprintf(`{"email":%q,"displayName":%q}`, email, name)
	return &models.Document{Collection: "users", ID: email, Payload: json.RawMessage(payload), CreatedAt: at(0), UpdatedAt: at(minute)}
}

type fakeSub struct {
	pages chan *models.Page
	// err ends the stream once pages is closed and drained; io.EOF if nil
	err error
	// ignoreCtx delivers pages even after the feed was closed
	ignoreCtx bool

	mu     sync.Mutex
	closed bool
}

func newSub(pages ...*models.Page) *fakeSub {
	s := &fakeSub{pages: make(chan *models.Page, 16)}
	for _, p := range pages {
		s.pages <- p
	}
	return s
}

func (s *fakeSub) end() *fakeSub {
	close(s.pages)
	return s
}

func (s *fakeSub) Next(ctx context.Context) (*models.Page, error) {
	if s.ignoreCtx {
		p, ok := <-s.pages
		if !ok {
			return nil, s.endErr()
		}
		return p, nil
	}
	select {
	case p, ok := <-s.pages:
		if !ok {
			return nil, s.endErr()
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSub) endErr() error {
	if s.err != nil {
		return s.err
	}
	return io.EOF
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type writeCall struct {
	collection string
	id         string
	payload    string
	merge      bool
}

type fakeRemote struct {
	mu       sync.Mutex
	docs     map[string]*models.Document
	subs     []*fakeSub
	writes   []writeCall
	deletes  []string
	gets     int
	queries  []models.Query
	writeErr error
	getErr   error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{docs: make(map[string]*models.Document)}
}

func (f *fakeRemote) put(doc *models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.Collection+"/"+doc.ID] = doc
}

func (f *fakeRemote) GetByID(_ context.Context, collection, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.docs[collection+"/"+id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return d, nil
}

func (f *fakeRemote) QueryOrdered(_ context.Context, q models.Query) (client.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if len(f.subs) == 0 {
		return nil, errors.New("no subscription scripted")
	}
	s := f.subs[0]
	f.subs = f.subs[1:]
	return s, nil
}

func (f *fakeRemote) Write(_ context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{collection, id, string(payload), merge})
	if f.writeErr != nil {
		return nil, f.writeErr
	}

	key := collection + "/" + id
	stored := []byte(payload)
	created := at(100)
	mergeBase := domain.MergeBase(collection, id)
	if prev, ok := f.docs[key]; ok {
		created = prev.CreatedAt
		mergeBase = prev.Payload
	}
	if merge {
		merged, err := domain.MergeObjects(mergeBase, payload)
		if err != nil {
			return nil, err
		}
		stored = merged
	}
	d := &models.Document{Collection: collection, ID: id, Payload: stored, CreatedAt: created, UpdatedAt: at(100 + len(f.writes))}
	f.docs[key] = d
	return d, nil
}

func (f *fakeRemote) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, collection+"/"+id)
	delete(f.docs, collection+"/"+id)
	return nil
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeRemote) calls() (gets, queries, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets, len(f.queries), len(f.writes)
}

// failingCache breaks optimistic upserts.
type failingCache struct {
	cache.Repository
}

func (failingCache) Upsert(context.Context, *models.Record) error {
	return errors.New("disk full")
}

type failingManager struct {
	repomanager.RepositoryManager
}

func (m failingManager) Cache(db dbx.DBTX) cache.Repository {
	return failingCache{m.RepositoryManager.Cache(db)}
}

type env struct {
	r      *Reconciler
	remote *fakeRemote
	oracle *connectivity.Manual
	db     *sql.DB
	repos  repomanager.RepositoryManager
}

func setup(t *testing.T, online bool, opts ...Option) *env {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	e := &env{
		remote: newFakeRemote(),
		oracle: connectivity.NewManual(online),
		db:     db,
		repos:  repomanager.NewSQLiteRepositoryManager(),
	}
	ids := 0
	opts = append([]Option{
		WithTimeout(time.Second),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("op-%02d", ids) }),
		WithQueueOptions(syncqueue.WithRetry(retryx.WithBase(time.Millisecond))),
	}, opts...)
	e.r = New(db, e.repos, e.remote, e.oracle, logging.Nop(), opts...)
	return e
}

func (e *env) seed(t *testing.T, recs ...*models.Record) {
	t.Helper()
	require.NoError(t, e.repos.Cache(e.db).UpsertBatch(context.Background(), recs))
}

func (e *env) local(t *testing.T, collection string) []string {
	t.Helper()
	recs, err := e.repos.Cache(e.db).QueryAll(context.Background(), collection, cache.SortByTimestamp, true)
	require.NoError(t, err)
	return recordIDs(recs)
}

func recordIDs(recs []*models.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func docRecord(d *models.Document, sortAt time.Time) *models.Record {
	return &models.Record{Collection: d.Collection, ID: d.ID, Payload: d.Payload, SortAt: sortAt, LastSyncedAt: base}
}

func recv(t *testing.T, f *Feed) Batch {
	t.Helper()
	select {
	case b, ok := <-f.Batches():
		require.True(t, ok, "feed ended early")
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
	return Batch{}
}

func waitEnd(t *testing.T, f *Feed) {
	t.Helper()
	for {
		select {
		case _, ok := <-f.Batches():
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("feed did not end")
		}
	}
}
