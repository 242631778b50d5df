package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/retryx"
)

// AuthService manages the account session of the CLI.
//
// Contract:
//   - Register: create an account on the server.
//   - Login: authenticate, persist the tokens and become the current user.
//     Switching to a different account first drops the previous user's
//     local data.
//   - Restore: resume the persisted session, also while offline.
//   - SignOut: push pending changes if possible, then forget all local data.
type AuthService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	Restore(ctx context.Context) (string, error)
	CurrentUser() string
	SignOut(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// LocalData is the part of the reconciler the session resets.
type LocalData interface {
	SignOut(ctx context.Context) (int, error)
}

type authService struct {
	client client.Client
	tokens *TokenStore
	local  LocalData
	log    logging.Logger
	retry  []retryx.Option

	mu    sync.RWMutex
	email string
}

// NewAuthService builds the session service. retry tunes the login wait.
func NewAuthService(c client.Client, tokens *TokenStore, local LocalData, l logging.Logger, retry ...retryx.Option) AuthService {
	return &authService{client: c, tokens: tokens, local: local, log: l.With("module", "auth"), retry: retry}
}

func (a *authService) Register(ctx context.Context, email, password string) error {
	if err := a.client.Register(ctx, strings.TrimSpace(email), password); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Login waits out a briefly unreachable server within the house retry
// bounds; any other failure is returned at once.
func (a *authService) Login(ctx context.Context, email, password string) (string, error) {
	var canonical string
	opts := append([]retryx.Option{
		retryx.If(func(err error) bool { return errors.Is(err, client.ErrUnavailable) }),
	}, a.retry...)

	err := retryx.Do(ctx, func(ctx context.Context) error {
		var err error
		canonical, err = a.client.Login(ctx, strings.TrimSpace(email), password)
		return err
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	prev, _, _, ok, err := a.tokens.Load(ctx)
	if err != nil {
		a.log.Warn(ctx, "could not read previous session", "error", err)
	}
	if ok && prev != canonical {
		dropped, err := a.local.SignOut(ctx)
		if err != nil {
			return "", fmt.Errorf("reset local data: %w", err)
		}
		a.log.Info(ctx, "switched account", "from", prev, "to", canonical, "dropped_ops", dropped)
	}

	a.tokens.Save(a.client.Tokens())
	if err := a.tokens.SetEmail(ctx, canonical); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	a.mu.Lock()
	a.email = canonical
	a.mu.Unlock()
	a.log.Info(ctx, "signed in", "email", canonical)
	return canonical, nil
}

func (a *authService) Restore(ctx context.Context) (string, error) {
	email, access, refresh, ok, err := a.tokens.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return "", nil
	}
	a.client.SetTokens(access, refresh)

	a.mu.Lock()
	a.email = email
	a.mu.Unlock()
	return email, nil
}

func (a *authService) CurrentUser() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.email
}

// SignOut returns how many unsent changes were dropped.
func (a *authService) SignOut(ctx context.Context) (int, error) {
	dropped, err := a.local.SignOut(ctx)
	if err != nil {
		return 0, err
	}
	if err := a.tokens.Clear(ctx); err != nil {
		return dropped, fmt.Errorf("clear session: %w", err)
	}
	a.client.SetTokens("", "")

	a.mu.Lock()
	a.email = ""
	a.mu.Unlock()
	return dropped, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
