// Package metadata is the client's durable key-value store. It holds the
// per-collection watermarks, the signed-in identity and the refresh token.
package metadata

import (
	"context"
)

type Repository interface {
	// Get reports the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// List returns every pair whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string]string, error)
	Clear(ctx context.Context) error
}
