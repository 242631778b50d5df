package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/fitsync/internal/common"
	"github.com/dmitrijs2005/fitsync/internal/dbx"
	"github.com/dmitrijs2005/fitsync/internal/server/broker"
	"github.com/dmitrijs2005/fitsync/internal/server/models"
	"github.com/dmitrijs2005/fitsync/internal/server/repositories/documents"
	refreshtokensrepo "github.com/dmitrijs2005/fitsync/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/fitsync/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	created   *models.User
	createErr error

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := *u
	out.ID = "u-1"
	f.created = &out
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	deleted []string
	delErr  error

	createdFor []string
	createErr  error

	purgedBefore time.Time
	purgeOut     int64
	purgeErr     error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdFor = append(f.createdFor, userID)
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	f.purgedBefore = t
	return f.purgeOut, f.purgeErr
}

// fakeDocsRepo keeps documents in memory with the same owner and created_at
// retention rules as the Postgres upsert.
type fakeDocsRepo struct {
	docs  map[string]*models.Document
	seq   int64
	clock time.Time

	lastQuery documents.Query
	queryOut  []*models.Document
	err       error
}

func newFakeDocsRepo() *fakeDocsRepo {
	return &fakeDocsRepo{
		docs:  map[string]*models.Document{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDocsRepo) key(c, id string) string { return c + "/" + id }

func (f *fakeDocsRepo) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.docs[f.key(collection, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *d
	return &out, nil
}

func (f *fakeDocsRepo) GetForUpdate(ctx context.Context, collection, id string) (*models.Document, error) {
	return f.Get(ctx, collection, id)
}

func (f *fakeDocsRepo) Upsert(ctx context.Context, d *models.Document) (*models.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	f.clock = f.clock.Add(time.Second)
	out := *d
	out.Seq = f.seq
	out.CreatedAt = f.clock
	out.UpdatedAt = f.clock
	if prev, ok := f.docs[f.key(d.Collection, d.ID)]; ok {
		out.Owner = prev.Owner
		out.CreatedAt = prev.CreatedAt
	}
	stored := out
	f.docs[f.key(d.Collection, d.ID)] = &stored
	return &out, nil
}

func (f *fakeDocsRepo) Delete(ctx context.Context, collection, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	k := f.key(collection, id)
	_, ok := f.docs[k]
	delete(f.docs, k)
	return ok, nil
}

func (f *fakeDocsRepo) QueryOrdered(ctx context.Context, q documents.Query) ([]*models.Document, error) {
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return f.queryOut, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	d *fakeDocsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Documents(db dbx.DBTX) documents.Repository             { return m.d }

type fakePublisher struct {
	mu      sync.Mutex
	changes []broker.Change
}

func (p *fakePublisher) Publish(ctx context.Context, collection string, c broker.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}
