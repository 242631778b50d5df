// Package server wires the FitSync server together: PostgreSQL storage, the
// change broker, the gRPC document service, the ops HTTP listener and the
// maintenance scheduler.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/fitsync/internal/logging"
	"github.com/dmitrijs2005/fitsync/internal/server/broker"
	"github.com/dmitrijs2005/fitsync/internal/server/config"
	gs "github.com/dmitrijs2005/fitsync/internal/server/grpc"
	"github.com/dmitrijs2005/fitsync/internal/server/httpapi"
	"github.com/dmitrijs2005/fitsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fitsync/internal/server/scheduler"
	"github.com/dmitrijs2005/fitsync/internal/server/services"
)

// watchBuffer is how many changes a Watch stream may fall behind before it
// is disconnected.
const watchBuffer = 256

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	broker    *broker.Broker
	grpc      *gs.GRPCServer
	ops       *httpapi.Server
	scheduler *scheduler.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	b := broker.New(watchBuffer, logger)

	us := services.NewUserService(db, rm, c)
	ds := services.NewDocumentService(db, rm, b, c)
	ms := services.NewMediaService(c)

	sched := scheduler.NewService(logger)
	purge := &scheduler.PurgeExpiredTokensJob{
		Name:    "purge-expired-refresh-tokens",
		Log:     logger.With("job", "purge-expired-refresh-tokens"),
		Purger:  us,
		Timeout: time.Minute,
	}
	if _, err := sched.AddJobWithSpec(purge, c.TokenPurgeSchedule, purge.Name); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		broker:    b,
		grpc:      gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, ds, ms, b, c.SecretKey),
		ops:       httpapi.NewServer(c.EndpointAddrOps, logger, db, b),
		scheduler: sched,
	}, nil
}

// Run serves until ctx is done or one of the listeners fails, then shuts
// everything down.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return app.grpc.Run(gctx) })
	g.Go(func() error { return app.ops.Run(gctx) })
	g.Go(func() error { return app.scheduler.Run(gctx) })
	g.Go(func() error {
		// ends live Watch streams so the gRPC server can stop gracefully
		<-gctx.Done()
		app.broker.Close()
		return nil
	})

	err := g.Wait()

	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
