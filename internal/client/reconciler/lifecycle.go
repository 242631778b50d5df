package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fitsync/internal/client/syncqueue"
	"github.com/dmitrijs2005/fitsync/internal/domain"
)

// Start drains the sync queue now if online and on every offline-to-online
// transition until ctx is done. The returned channel is closed once the
// reconciler has unsubscribed from the oracle.
func (r *Reconciler) Start(ctx context.Context) <-chan struct{} {
	triggers := make(chan struct{}, 1)
	trigger := func() {
		select {
		case triggers <- struct{}{}:
		default:
		}
	}

	unsubscribe := r.oracle.Subscribe(func(online bool) {
		if online {
			trigger()
		}
	})
	if r.oracle.IsConnected(ctx) {
		trigger()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-triggers:
				r.drainInBackground(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

func (r *Reconciler) drainInBackground(ctx context.Context) {
	report, err := r.queue.Drain(ctx)
	switch {
	case errors.Is(err, syncqueue.ErrReauthRequired):
		r.signalReauth(ctx, err)
	case err != nil:
		if ctx.Err() == nil {
			r.log.Error(ctx, "background drain failed", "error", err)
		}
	case len(report.Applied)+len(report.Discarded) > 0 || report.Stopped != nil:
		r.log.Info(ctx, "background drain", "applied", len(report.Applied),
			"discarded", len(report.Discarded), "remaining", report.Remaining)
	}
}

// Drain replays the sync queue on demand.
func (r *Reconciler) Drain(ctx context.Context) (syncqueue.DrainReport, error) {
	if !r.oracle.IsConnected(ctx) {
		return syncqueue.DrainReport{}, ErrOffline
	}
	report, err := r.queue.Drain(ctx)
	if errors.Is(err, syncqueue.ErrReauthRequired) {
		r.signalReauth(ctx, err)
	}
	return report, err
}

// SignOut pushes what it can, then forgets every cached collection, the
// watermarks and the remaining queued ops. It returns how many ops were
// dropped unsent.
func (r *Reconciler) SignOut(ctx context.Context) (int, error) {
	if r.oracle.IsConnected(ctx) {
		if _, err := r.queue.Drain(ctx); err != nil {
			r.log.Warn(ctx, "drain before sign-out failed", "error", err)
		}
	}

	for _, c := range domain.Collections {
		lock := r.lock(c)
		lock.Lock()
		err := r.cache.Clear(ctx, c)
		if err == nil {
			err = r.meta.Remove(ctx, watermarkPrefix+c)
		}
		lock.Unlock()
		if err != nil {
			return 0, fmt.Errorf("clear %s: %w", c, err)
		}
	}

	dropped, err := r.queue.Clear(ctx)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		r.log.Warn(ctx, "unsent changes dropped at sign-out", "count", dropped)
	}
	return dropped, nil
}

// PendingCount returns how many ops wait in the sync queue.
func (r *Reconciler) PendingCount(ctx context.Context) (int, error) {
	return r.queue.Len(ctx)
}
