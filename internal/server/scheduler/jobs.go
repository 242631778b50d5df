package scheduler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/logging"
)

// TokenPurger removes refresh tokens past their expiry.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

type PurgeExpiredTokensJob struct {
	Name    string
	Log     logging.Logger
	Purger  TokenPurger
	Timeout time.Duration
}

func (j *PurgeExpiredTokensJob) Run() {
	ctx := context.Background()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	n, err := j.Purger.PurgeExpiredTokens(ctx)
	if err != nil {
		j.Log.Error(ctx, "could not purge expired refresh tokens", "error", err)
		return
	}
	j.Log.Info(ctx, "purged expired refresh tokens", "count", n)
}
