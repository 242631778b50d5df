package client

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/fitsync/internal/client/models"
)

// RemoteStore is the authoritative document store.
type RemoteStore interface {
	// GetByID returns the document or an error wrapping ErrNotFound.
	GetByID(ctx context.Context, collection, id string) (*models.Document, error)

	// QueryOrdered opens a subscription delivering one ordered page and,
	// for first-page queries, live changes after it. The subscription lives
	// until Close is called or ctx is done.
	QueryOrdered(ctx context.Context, q models.Query) (Subscription, error)

	// Write stores payload under (collection, id). With merge the payload
	// is a patch applied to the existing document. The stored document is
	// returned.
	Write(ctx context.Context, collection, id string, payload json.RawMessage, merge bool) (*models.Document, error)

	Delete(ctx context.Context, collection, id string) error
}

// Subscription delivers batches of an ordered query.
type Subscription interface {
	// Next blocks until the next batch, ctx is done, or the stream ends
	// (io.EOF).
	Next(ctx context.Context) (*models.Page, error)
	Close() error
}

// Client is the full remote API used by the client application.
type Client interface {
	RemoteStore

	Close() error
	Ping(ctx context.Context) error
	Register(ctx context.Context, email, password string) error
	// Login authenticates and keeps the issued tokens for subsequent calls.
	// It returns the canonical (lowercased) email.
	Login(ctx context.Context, email, password string) (string, error)
	// SetTokens restores a previously persisted session.
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
	PresignMediaUpload(ctx context.Context, contentType string) (key, url string, err error)
	PresignMediaDownload(ctx context.Context, key string) (string, error)
}
