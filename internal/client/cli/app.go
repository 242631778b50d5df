package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dmitrijs2005/fitsync/internal/client/client"
	"github.com/dmitrijs2005/fitsync/internal/client/config"
	"github.com/dmitrijs2005/fitsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
	"github.com/dmitrijs2005/fitsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fitsync/internal/client/services"
	"github.com/dmitrijs2005/fitsync/internal/logging"
)

type App struct {
	config    *config.Config
	auth      services.AuthService
	profile   services.ProfileService
	feed      services.FeedService
	nutrition services.NutritionService
	sync      services.SyncService
	reader    *bufio.Reader
	out       io.Writer
	log       logging.Logger

	// next page of the feed, if any
	cursor string

	// background loops started by Run
	background []func(ctx context.Context)
	closers    []io.Closer
}

// NewApp builds the client from cfg: rotating log file, SQLite store, gRPC
// client, connectivity oracle, reconciler and services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	l, logCloser := logging.NewRotatingFileLogger(logging.RotatingFile{
		Path:       cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}, slog.LevelInfo)

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	repos := repomanager.NewSQLiteRepositoryManager()
	tokens := services.NewTokenStore(repos.Metadata(db), l)

	api, err := client.NewFitSyncClient(cfg.ServerEndpointAddr,
		client.WithRequestTimeout(cfg.RequestTimeout),
		client.WithTokenObserver(tokens.Save),
	)
	if err != nil {
		_ = db.Close()
		_ = logCloser.Close()
		return nil, err
	}

	oracle := connectivity.NewPingOracle(api, cfg.OnlineCheckInterval, l)
	rec := reconciler.New(db, repos, api, oracle, l,
		reconciler.WithPageSize(cfg.PageSize),
		reconciler.WithTimeout(cfg.RequestTimeout),
	)
	auth := services.NewAuthService(api, tokens, rec, l)

	a := &App{
		config:    cfg,
		auth:      auth,
		profile:   services.NewProfileService(rec, auth),
		feed:      services.NewFeedService(rec, auth, api, oracle, l),
		nutrition: services.NewNutritionService(rec, oracle, l),
		sync:      services.NewSyncService(rec, oracle, auth),
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		log:       l.With("module", "cli"),
		closers:   []io.Closer{api, closerFunc(db.Close), logCloser},
	}
	a.background = []func(context.Context){
		oracle.Run,
		func(ctx context.Context) { <-rec.Start(ctx) },
		func(ctx context.Context) { a.watchReauth(ctx, rec.Reauth()) },
	}
	return a, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Run restores the saved session, starts the background loops and blocks in
// the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		for _, c := range a.closers {
			if err := c.Close(); err != nil {
				a.log.Warn(context.Background(), "close failed", "error", err)
			}
		}
	}()

	if email, err := a.auth.Restore(ctx); err != nil {
		a.printf("Could not restore session: %v\n", err)
	} else if email != "" {
		a.printf("Welcome back, %s\n", email)
	}

	for _, fn := range a.background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	a.printf("Welcome to FitSync CLI (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) watchReauth(ctx context.Context, reauth <-chan struct{}) {
	for {
		select {
		case <-reauth:
			a.printf("\nYour session has expired. Type 'login' to sign in again; pending changes are kept.\n")
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.CurrentUser() != ""
}

func (a *App) getStatus() string {
	s := ""
	if u := a.auth.CurrentUser(); u != "" {
		s = u + " "
	}
	st, err := a.sync.Status(context.Background())
	if err != nil {
		return fmt.Sprintf("(%s?)", s)
	}
	mode := "offline"
	if st.Online {
		mode = "online"
	}
	if st.Pending > 0 {
		mode = fmt.Sprintf("%s, %d pending", mode, st.Pending)
	}
	return fmt.Sprintf("(%s%s)", s, mode)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// report prints err in user terms.
func (a *App) report(err error) {
	switch {
	case errors.Is(err, services.ErrNotSignedIn):
		a.printf("Please login first.\n")
	case errors.Is(err, reconciler.ErrPaginationOffline):
		a.printf("Older posts can only be loaded online.\n")
	case errors.Is(err, services.ErrMediaOffline):
		a.printf("Media needs a connection. Try again when online.\n")
	case errors.Is(err, client.ErrUnavailable):
		a.printf("Server unavailable: %v\n", err)
	default:
		a.printf("Error: %v\n", err)
	}
}
