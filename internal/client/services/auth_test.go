package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocal struct {
	calls   int
	dropped int
}

func (f *fakeLocal) SignOut(context.Context) (int, error) {
	f.calls++
	return f.dropped, nil
}

func newAuth(t *testing.T) (AuthService, *fakeClient, *TokenStore, *fakeLocal) {
	t.Helper()
	e := setup(t, true)
	tokens := NewTokenStore(e.meta, logging.Nop())
	local := &fakeLocal{dropped: 2}
	a := NewAuthService(e.client, tokens, local, logging.Nop(), retryx.WithBase(time.Millisecond))
	return a, e.client, tokens, local
}

func TestAuth_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	a, c, tokens, local := newAuth(t)

	email, err := a.Login(ctx, " ann@x.io ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", email)
	assert.Equal(t, "ann@x.io", a.CurrentUser())
	assert.Zero(t, local.calls)

	got, access, refresh, ok, err := tokens.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ann@x.io", got)
	assert.Equal(t, "access-ann@x.io", access)
	assert.Equal(t, "refresh-ann@x.io", refresh)
	assert.Equal(t, 1, c.LoginCalls)
}

func TestAuth_LoginWaitsForServer(t *testing.T) {
	a, c, _, _ := newAuth(t)
	c.LoginErrs = []error{client.ErrUnavailable, nil}

	_, err := a.Login(context.Background(), "ann@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, 2, c.LoginCalls)
}

func TestAuth_LoginRejectedIsNotRetried(t *testing.T) {
	a, c, _, _ := newAuth(t)
	c.LoginErrs = []error{client.ErrUnauthorized}

	_, err := a.Login(context.Background(), "ann@x.io", "bad")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 1, c.LoginCalls)
	assert.Empty(t, a.CurrentUser())
}

func TestAuth_SwitchingAccountResetsLocalData(t *testing.T) {
	ctx := context.Background()
	a, _, _, local := newAuth(t)

	_, err := a.Login(ctx, "ann@x.io", "pw")
	require.NoError(t, err)
	_, err = a.Login(ctx, "ann@x.io", "pw")
	require.NoError(t, err)
	assert.Zero(t, local.calls)

	_, err = a.Login(ctx, "bob@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, "bob@x.io", a.CurrentUser())
}

func TestAuth_RestoreAndSignOut(t *testing.T) {
	ctx := context.Background()
	a, c, tokens, local := newAuth(t)

	email, err := a.Restore(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, tokens.SetEmail(ctx, "ann@x.io"))
	tokens.Save("a1", "r1")

	email, err = a.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", email)
	access, refresh := c.Tokens()
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)

	dropped, err := a.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1, local.calls)
	assert.Empty(t, a.CurrentUser())

	_, _, _, ok, err := tokens.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	access, _ = c.Tokens()
	assert.Empty(t, access)
}

func TestAuth_RegisterAndPing(t *testing.T) {
	a, c, _, _ := newAuth(t)
	c.RegisterErr = client.ErrConflict

	err := a.Register(context.Background(), "ann@x.io", "pw")
	assert.ErrorIs(t, err, client.ErrConflict)
	assert.Equal(t, "ann@x.io", c.lastUser)

	c.PingErr = client.ErrUnavailable
	assert.ErrorIs(t, a.Ping(context.Background()), client.ErrUnavailable)
}
