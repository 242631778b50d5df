package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/migrations"
	"github.com/dmitrijs2005/fitsync/internal/client/models"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/pending"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type call struct {
	kind       models.OpKind
	collection string
	id         string
	payload    string
	merge      bool
}

// fakeRemote fails calls for an entity with the queued errors, one per call,
// and records every call it receives.
type fakeRemote struct {
	mu    sync.Mutex
	calls []call
	errs  map[string][]error
}

func (f *fakeRemote) next(id string) error {
	q := f.errs[id]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	if len(q) > 1 {
		f.errs[id] = q[1:]
	}
	return err
}

func (f *fakeRemote) Write(_ context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{models.OpWrite, collection, id, string(payload), merge})
	if err := f.next(id); err != nil {
		return nil, err
	}
	return &models.Document{Collection: collection, ID: id, Payload: payload, UpdatedAt: time.Now()}, nil
}

func (f *fakeRemote) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: models.OpDelete, collection: collection, id: id})
	return f.next(id)
}

func (f *fakeRemote) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.id)
	}
	return out
}

func setup(t *testing.T, remote *fakeRemote, opts ...Option) *Queue {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))

	opts = append([]Option{WithRetry(retryx.WithBase(time.Millisecond))}, opts...)
	return New(pending.NewSQLiteRepository(db), remote, logging.Nop(), opts...)
}

func writeOp(opID, entity, payload string) *models.PendingOperation {
	return &models.PendingOperation{
		OpID:       opID,
		Collection: "users",
		EntityID:   entity,
		Kind:       models.OpWrite,
		Payload:    json.RawMessage(payload),
		Merge:      true,
	}
}

func TestDrain_ReplaysInEnqueueOrder(t *testing.T) {
	remote := &fakeRemote{}
	var applied []string
	q := setup(t, remote, WithOnApplied(func(_ context.Context, op *models.PendingOperation, doc *models.Document) {
		applied = append(applied, op.OpID)
		if op.Kind == models.OpWrite {
			assert.NotNil(t, doc)
		}
	}))
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "c", `{"n":1}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-2", "a", `{"n":2}`)))
	require.NoError(t, q.Enqueue(ctx, &models.PendingOperation{OpID: "op-3", Collection: "posts", EntityID: "b", Kind: models.OpDelete}))

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, remote.ids())
	assert.Equal(t, []string{"op-1", "op-2", "op-3"}, applied)
	assert.Len(t, report.Applied, 3)
	assert.Zero(t, report.Remaining)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, derr := report.Contains("op-2")
	assert.True(t, ok)
	assert.NoError(t, derr)
}

func TestEnqueue_DuplicateOpIDReplaysOnce(t *testing.T) {
	remote := &fakeRemote{}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a@b.c", `{"displayName":"A"}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a@b.c", `{"displayName":"B"}`)))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, remote.calls, 1)
	assert.Equal(t, `{"displayName":"B"}`, remote.calls[0].payload)
	assert.True(t, remote.calls[0].merge)
}

func TestDrain_StopsOnRetryableAndKeepsRemainder(t *testing.T) {
	remote := &fakeRemote{errs: map[string][]error{
		"b": {fmt.Errorf("%w: down", client.ErrUnavailable)},
	}}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a", `{}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-2", "b", `{}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-3", "c", `{}`)))

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, report.Stopped, client.ErrUnavailable)
	assert.Equal(t, 2, report.Remaining)
	// three bounded attempts on b, c never tried
	assert.Equal(t, []string{"a", "b", "b", "b"}, remote.ids())

	ops, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "op-2", ops[0].OpID)
	assert.Equal(t, 1, ops[0].Attempts)
	assert.Contains(t, ops[0].LastError, "down")
	assert.Equal(t, "op-3", ops[1].OpID)
}

func TestDrain_RetryableThenSuccessWithinAttempts(t *testing.T) {
	remote := &fakeRemote{errs: map[string][]error{
		"a": {client.ErrUnavailable, nil},
	}}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a", `{}`)))
	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Applied, 1)
	assert.Equal(t, []string{"a", "a"}, remote.ids())
}

func TestDrain_DiscardsPermanentFailures(t *testing.T) {
	remote := &fakeRemote{errs: map[string][]error{
		"a": {fmt.Errorf("%w: not yours", client.ErrPermissionDenied)},
	}}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a", `{}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-2", "b", `{}`)))

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, report.Discarded, 1)
	assert.Equal(t, "op-1", report.Discarded[0].Op.OpID)
	assert.ErrorIs(t, report.Discarded[0].Err, client.ErrPermissionDenied)
	assert.Len(t, report.Applied, 1)
	// not retried
	assert.Equal(t, []string{"a", "b"}, remote.ids())

	applied, derr := report.Contains("op-1")
	assert.False(t, applied)
	assert.ErrorIs(t, derr, client.ErrPermissionDenied)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrain_AuthFailureRequiresReauth(t *testing.T) {
	remote := &fakeRemote{errs: map[string][]error{
		"a": {client.ErrUnauthorized},
	}}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a", `{}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-2", "b", `{}`)))

	report, err := q.Drain(ctx)
	require.ErrorIs(t, err, ErrReauthRequired)
	assert.Equal(t, 2, report.Remaining)
	assert.Equal(t, []string{"a"}, remote.ids())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDrain_DeleteOfMissingEntityCountsAsDone(t *testing.T) {
	remote := &fakeRemote{errs: map[string][]error{"p1": {client.ErrNotFound}}}
	q := setup(t, remote)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, &models.PendingOperation{OpID: "op-1", Collection: "posts", EntityID: "p1", Kind: models.OpDelete}))
	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Applied, 1)
}

func TestDrain_EmptyQueue(t *testing.T) {
	remote := &fakeRemote{}
	q := setup(t, remote)

	report, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Applied)
	assert.Empty(t, remote.calls)
}

func TestClear(t *testing.T) {
	q := setup(t, &fakeRemote{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, writeOp("op-1", "a", `{}`)))
	require.NoError(t, q.Enqueue(ctx, writeOp("op-2", "a", `{}`)))
	n, err := q.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClassify(t *testing.T) {
	write := &models.PendingOperation{Kind: models.OpWrite}
	del := &models.PendingOperation{Kind: models.OpDelete}

	cases := []struct {
		op   *models.PendingOperation
		err  error
		want Class
	}{
		{write, nil, Done},
		{del, client.ErrNotFound, Done},
		{write, client.ErrNotFound, Permanent},
		{write, client.ErrUnauthorized, Fatal},
		{write, client.ErrInvalidArgument, Permanent},
		{write, client.ErrConflict, Permanent},
		{write, client.ErrUnavailable, Retryable},
		{write, context.DeadlineExceeded, Retryable},
		{write, errors.New("mystery"), Retryable},
		{&models.PendingOperation{Kind: "rename"}, fmt.Errorf("%w %q", errUnknownKind, "rename"), Permanent},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.op, tc.err), "%v", tc.err)
	}
	assert.Equal(t, "retryable", Retryable.String())
}
