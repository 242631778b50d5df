// Package services contains the application services behind the FitSync CLI:
// the account session, the profile, the community feed, the nutrition catalog
// and sync status. They work through the reconciler and never touch the local
// store directly.
package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fitsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fitsync/internal/logging"
)

// ErrNotSignedIn is returned by operations that need a current user.
var ErrNotSignedIn = errors.New("not signed in")

const (
	keySessionEmail   = "session:email"
	keySessionAccess  = "session:access"
	keySessionRefresh = "session:refresh"
)

// Session names the signed-in user.
type Session interface {
	CurrentUser() string
}

// TokenStore keeps the session in the durable KV so it survives restarts and
// lets the app start offline.
type TokenStore struct {
	meta metadata.Repository
	log  logging.Logger
}

func NewTokenStore(meta metadata.Repository, l logging.Logger) *TokenStore {
	return &TokenStore{meta: meta, log: l.With("module", "tokens")}
}

// Save stores rotated tokens. It has the shape of the client's token
// observer, so failures are logged rather than returned.
func (s *TokenStore) Save(access, refresh string) {
	ctx := context.Background()
	if err := s.meta.Set(ctx, keySessionAccess, access); err != nil {
		s.log.Error(ctx, "failed to persist access token", "error", err)
		return
	}
	if err := s.meta.Set(ctx, keySessionRefresh, refresh); err != nil {
		s.log.Error(ctx, "failed to persist refresh token", "error", err)
	}
}

func (s *TokenStore) SetEmail(ctx context.Context, email string) error {
	return s.meta.Set(ctx, keySessionEmail, email)
}

// Load returns the persisted session. ok is false when nobody is signed in.
func (s *TokenStore) Load(ctx context.Context) (email, access, refresh string, ok bool, err error) {
	email, ok, err = s.meta.Get(ctx, keySessionEmail)
	if err != nil || !ok {
		return "", "", "", false, err
	}
	if access, _, err = s.meta.Get(ctx, keySessionAccess); err != nil {
		return "", "", "", false, err
	}
	if refresh, _, err = s.meta.Get(ctx, keySessionRefresh); err != nil {
		return "", "", "", false, err
	}
	return email, access, refresh, true, nil
}

func (s *TokenStore) Clear(ctx context.Context) error {
	for _, k := range []string{keySessionEmail, keySessionAccess, keySessionRefresh} {
		if err := s.meta.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
