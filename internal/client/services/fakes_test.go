package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/migrations"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// fakeClient is an in-memory client.Client.
type fakeClient struct {
	mu sync.Mutex

	RegisterErr error
	LoginErrs   []error
	LoginCalls  int
	PingErr     error

	UploadURL   string
	DownloadURL string

	docs     map[string]*models.Document
	pages    map[string]*models.Page
	writes   int
	access   string
	refresh  string
	lastUser string
}

func newFakeClient() *fakeClient {
	return &fakeClient{docs: map[string]*models.Document{}, pages: map[string]*models.Page{}}
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Ping(context.Context) error { return f.PingErr }

func (f *fakeClient) Register(_ context.Context, email, _ string) error {
	f.lastUser = email
	return f.RegisterErr
}

func (f *fakeClient) Login(_ context.Context, email, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	if len(f.LoginErrs) > 0 {
		err := f.LoginErrs[0]
		f.LoginErrs = f.LoginErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.access, f.refresh = "access-"+email, "refresh-"+email
	return email, nil
}

func (f *fakeClient) SetTokens(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = access, refresh
}

func (f *fakeClient) Tokens() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeClient) PresignMediaUpload(context.Context, string) (string, string, error) {
	return "media/k1", f.UploadURL, nil
}

func (f *fakeClient) PresignMediaDownload(context.Context, string) (string, error) {
	return f.DownloadURL, nil
}

func (f *fakeClient) put(d *models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[d.Collection+"/"+d.ID] = d
}

// page scripts the answer to a query for collection at cursor.
func (f *fakeClient) page(collection, cursor, next string, docs ...*models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[collection+"|"+cursor] = &models.Page{Documents: docs, NextCursor: next}
	for _, d := range docs {
		f.docs[d.Collection+"/"+d.ID] = d
	}
}

func (f *fakeClient) GetByID(_ context.Context, collection, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[collection+"/"+id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return d, nil
}

func (f *fakeClient) QueryOrdered(_ context.Context, q models.Query) (client.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[q.Collection+"|"+q.Cursor]
	if !ok {
		p = &models.Page{}
	}
	return &onePageSub{page: p}, nil
}

func (f *fakeClient) Write(_ context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	key := collection + "/" + id
	stored := []byte(payload)
	if merge {
		mergeBase := domain.MergeBase(collection, id)
		if prev, ok := f.docs[key]; ok {
			mergeBase = prev.Payload
		}
		m, err := domain.MergeObjects(mergeBase, payload)
		if err != nil {
			return nil, err
		}
		stored = m
	}
	d := &models.Document{Collection: collection, ID: id, Payload: stored, CreatedAt: t0, UpdatedAt: t0.Add(time.Duration(f.writes) * time.Minute)}
	f.docs[key] = d
	return d, nil
}

func (f *fakeClient) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, collection+"/"+id)
	return nil
}

type onePageSub struct {
	mu   sync.Mutex
	page *models.Page
}

func (s *onePageSub) Next(ctx context.Context) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, io.EOF
	}
	p := s.page
	s.page = nil
	return p, nil
}

func (s *onePageSub) Close() error { return nil }

type fixedSession string

func (s fixedSession) CurrentUser() string { return string(s) }

// manualSwitch forces a Manual oracle by hand.
type manualSwitch struct {
	*connectivity.Manual
	forced bool
}

func (m *manualSwitch) ForceOffline(_ context.Context, forced bool) {
	m.forced = forced
	m.Set(!forced)
}

func (m *manualSwitch) Forced() bool { return m.forced }

type env struct {
	client *fakeClient
	oracle *connectivity.Manual
	rec    *reconciler.Reconciler
	meta   metadata.Repository
}

func setup(t *testing.T, online bool) *env {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	repos := repomanager.NewSQLiteRepositoryManager()
	e := &env{client: newFakeClient(), oracle: connectivity.NewManual(online), meta: repos.Metadata(db)}
	e.rec = reconciler.New(db, repos, e.client, e.oracle, logging.Nop(), reconciler.WithTimeout(time.Second))
	return e
}

func postDoc(id, author string, minute int, likedBy ...string) *models.Document {
	if likedBy == nil {
		likedBy = []string{}
	}
	p := domain.Post{ID: id, AuthorID: author, Content: "post " + id, LikedBy: likedBy, CreatedAt: t0.Add(time.Duration(minute) * time.Minute)}
	b, _ := json.Marshal(p)
	return &models.Document{Collection: "posts", ID: id, Payload: b, CreatedAt: p.CreatedAt, UpdatedAt: p.CreatedAt}
}

func userDoc(email, name string) *models.Document {
	b := fmt.Sprintf(`{"email":%q,"displayName":%q}`, email, name)
	return &models.Document{Collection: "users", ID: email, Payload: json.RawMessage(b), CreatedAt: t0, UpdatedAt: t0}
}

func foodDoc(id, name string, minute int) *models.Document {
	b := fmt.Sprintf(`{"id":%q,"name":%q,"calories":100}`, id, name)
	ts := t0.Add(time.Duration(minute) * time.Minute)
	return &models.Document{Collection: "nutrition", ID: id, Payload: json.RawMessage(b), CreatedAt: ts, UpdatedAt: ts}
}
