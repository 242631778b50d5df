package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_ReconnectFlushesQueueOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := setup(t, false)
	done := e.r.Start(ctx)

	res, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(`{"email":"a@b.c","displayName":"Ann"}`))
	require.NoError(t, err)
	require.True(t, res.Queued)
	assert.Zero(t, e.remote.writeCount())

	queued := func() int {
		n, err := e.r.Queue().Len(ctx)
		if err != nil {
			return -1
		}
		return n
	}

	e.oracle.Set(true)
	assert.Eventually(t, func() bool { return e.remote.writeCount() == 1 && queued() == 0 },
		2*time.Second, 10*time.Millisecond)

	e.oracle.Set(false)
	e.oracle.Set(true)
	_, err = e.r.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.remote.writeCount())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle goroutine did not stop")
	}
}

func TestStart_OfflinePatchSurvivesReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := setup(t, false)
	done := e.r.Start(ctx)

	res, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(`{"displayName":"Alice"}`))
	require.NoError(t, err)
	require.True(t, res.Queued)
	assert.Equal(t, []string{"a@b.c"}, e.local(t, "users"))

	e.oracle.Set(true)
	assert.Eventually(t, func() bool {
		n, err := e.r.Queue().Len(ctx)
		return err == nil && n == 0 && e.remote.writeCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec, err := e.repos.Cache(e.db).GetByKey(ctx, "users", "a@b.c")
	require.NoError(t, err)
	require.NotNil(t, rec)
	u, err := domain.ParseUser(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.DisplayName)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle goroutine did not stop")
	}
}

func TestStart_DrainsImmediatelyWhenOnline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := setup(t, false)

	_, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(`{"email":"a@b.c"}`))
	require.NoError(t, err)

	e.oracle.Set(true)
	e.r.Start(ctx)
	assert.Eventually(t, func() bool { return e.remote.writeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestDrain_ReplaysInWriteOrder(t *testing.T) {
	ctx := context.Background()
	e := setup(t, false)

	for _, patch := range []string{`{"email":"a@b.c"}`, `{"displayName":"Ann"}`, `{"premium":true}`} {
		_, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(patch))
		require.NoError(t, err)
	}

	_, err := e.r.Drain(ctx)
	assert.ErrorIs(t, err, ErrOffline)

	e.oracle.Set(true)
	report, err := e.r.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, report.Applied, 3)

	got := make([]string, 0, 3)
	for _, w := range e.remote.writes {
		got = append(got, w.payload)
	}
	assert.Equal(t, []string{`{"email":"a@b.c"}`, `{"displayName":"Ann"}`, `{"premium":true}`}, got)
	assert.Equal(t, []string{"op-01", "op-02", "op-03"},
		[]string{report.Applied[0].OpID, report.Applied[1].OpID, report.Applied[2].OpID})
}

func TestSignOut_ForgetsEverything(t *testing.T) {
	ctx := context.Background()
	e := setup(t, false)
	e.seed(t, docRecord(postDoc(postID(1), 1), at(1)))
	require.NoError(t, writeWatermark(ctx, e.repos.Metadata(e.db), "posts", at(1)))

	_, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(`{"email":"a@b.c"}`))
	require.NoError(t, err)

	dropped, err := e.r.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	assert.Empty(t, e.local(t, "posts"))
	assert.Empty(t, e.local(t, "users"))
	_, ok, err := e.r.Watermark(ctx, "posts")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, e.remote.writeCount())
}

func TestSignOut_PushesPendingWhenOnline(t *testing.T) {
	ctx := context.Background()
	e := setup(t, false)

	_, err := e.r.WriteEntity(ctx, "users", "a@b.c", raw(`{"email":"a@b.c"}`))
	require.NoError(t, err)

	e.oracle.Set(true)
	dropped, err := e.r.SignOut(ctx)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	assert.Equal(t, 1, e.remote.writeCount())
}
