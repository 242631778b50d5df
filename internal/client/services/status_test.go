package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_StatusAndManualSync(t *testing.T) {
	ctx := context.Background()
	e := setup(t, true)
	sw := &manualSwitch{Manual: e.oracle}
	svc := NewSyncService(e.rec, sw, fixedSession("ann@x.io"))

	e.client.page("posts", "", "", postDoc("p1", "bob@x.io", 3))
	_, err := NewFeedService(e.rec, fixedSession("ann@x.io"), e.client, e.oracle, logging.Nop()).Load(ctx)
	require.NoError(t, err)

	svc.SetOffline(ctx, true)
	_, err = NewProfileService(e.rec, fixedSession("ann@x.io")).CompleteOnboarding(ctx, "Ann", domain.Goals{Calories: 2000})
	require.NoError(t, err)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", st.User)
	assert.False(t, st.Online)
	assert.True(t, st.Forced)
	assert.Equal(t, 1, st.Pending)
	require.Contains(t, st.Watermarks, "posts")
	assert.True(t, st.Watermarks["posts"].Equal(postDoc("p1", "bob@x.io", 3).CreatedAt))
	assert.NotContains(t, st.Watermarks, "users")

	ops, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "users", ops[0].Collection)

	svc.SetOffline(ctx, false)
	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Applied, 1)

	st, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.Zero(t, st.Pending)
}
