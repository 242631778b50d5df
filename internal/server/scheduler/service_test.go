package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fitsync/internal/logging"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestAddJobWithSpec(t *testing.T) {
	s := NewService(logging.Nop())
	job := &PurgeExpiredTokensJob{Name: "purge", Log: logging.Nop(), Purger: &countingPurger{}}

	id, err := s.AddJobWithSpec(job, "@hourly", "purge")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.AddJobWithSpec(job, "@hourly", "purge")
	assert.Error(t, err)

	_, err = s.AddJobWithSpec(job, "not a spec", "other")
	assert.Error(t, err)

	s.RemoveJobByIdentifier("purge")
	assert.True(t, s.NextRun("purge").IsZero())
	s.RemoveJobByIdentifier("missing")
}

func TestRun_ExecutesJobsUntilCancelled(t *testing.T) {
	s := NewService(logging.Nop())
	p := &countingPurger{}
	_, err := s.AddJobWithSpec(&PurgeExpiredTokensJob{Log: logging.Nop(), Purger: p}, "@every 1s", "purge")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return p.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.False(t, s.NextRun("purge").IsZero())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestPurgeJob_Run(t *testing.T) {
	ok := &countingPurger{}
	(&PurgeExpiredTokensJob{Log: logging.Nop(), Purger: ok, Timeout: time.Second}).Run()
	assert.Equal(t, int32(1), ok.calls.Load())

	failing := &countingPurger{err: errors.New("db down")}
	(&PurgeExpiredTokensJob{Log: logging.Nop(), Purger: failing}).Run()
	assert.Equal(t, int32(1), failing.calls.Load())
}
