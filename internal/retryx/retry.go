// Package retryx is the project's bounded-retry policy: at most three
// attempts inside a ten second ceiling, backing off exponentially between
// attempts. Every bounded wait (connectivity probes, queue replays, login)
// goes through Do so the limits stay uniform.
package retryx

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts = 3
	DefaultCeiling  = 10 * time.Second
	DefaultBase     = 200 * time.Millisecond
)

type policy struct {
	attempts  int
	ceiling   time.Duration
	base      time.Duration
	retryable func(error) bool
}

// Option tweaks a single Do call.
type Option func(*policy)

// WithAttempts overrides the attempt limit (minimum 1).
func WithAttempts(n int) Option {
	return func(p *policy) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithCeiling overrides the overall deadline.
func WithCeiling(d time.Duration) Option {
	return func(p *policy) {
		if d > 0 {
			p.ceiling = d
		}
	}
}

// WithBase overrides the first backoff interval.
func WithBase(d time.Duration) Option {
	return func(p *policy) {
		if d > 0 {
			p.base = d
		}
	}
}

// If restricts retries to errors for which fn returns true. Other errors end
// the loop immediately and are returned as is.
func If(fn func(error) bool) Option {
	return func(p *policy) { p.retryable = fn }
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or the ceiling elapses. The context passed to fn carries the
// ceiling as its deadline. The last error from fn is returned.
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	p := policy{
		attempts:  DefaultAttempts,
		ceiling:   DefaultCeiling,
		base:      DefaultBase,
		retryable: func(error) bool { return true },
	}
	for _, o := range opts {
		o(&p)
	}

	ctx, cancel := context.WithTimeout(ctx, p.ceiling)
	defer cancel()

	b := retry.NewExponential(p.base)
	b = retry.WithMaxRetries(uint64(p.attempts-1), b)
	b = retry.WithMaxDuration(p.ceiling, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && p.retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
