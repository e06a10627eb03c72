// Package server wires the store, the sync service and the gRPC health
// endpoint into a runnable application.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/kosync/internal/dbx"
	"github.com/dmitrijs2005/kosync/internal/logging"
	"github.com/dmitrijs2005/kosync/internal/server/config"
	gs "github.com/dmitrijs2005/kosync/internal/server/grpc"
	"github.com/dmitrijs2005/kosync/internal/server/services"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/errgroup"
)

// probeInterval is how often serve checks that the store still answers.
const probeInterval = 30 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *bolt.DB
	store    *services.BoltSyncService
	accounts *services.AccountService
}

// NewApp opens the store named by c and prepares the services. The caller
// must Close the App.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := dbx.Open(c.DBPath, dbx.Options{Timeout: c.DBOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := services.NewBoltSyncService(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	logger.Debug(ctx, "store opened", "path", db.Path())

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		store:    store,
		accounts: services.NewAccountService(store, logger),
	}, nil
}

func (app *App) Store() *services.BoltSyncService { return app.store }

func (app *App) Accounts() *services.AccountService { return app.accounts }

func (app *App) Close() error {
	return app.db.Close()
}

// ping is the health probe: a read transaction that touches both tables.
func (app *App) ping(ctx context.Context) error {
	_, err := app.store.Stats(ctx)
	return err
}

// Run serves until ctx is canceled or the process receives SIGINT, SIGTERM
// or SIGQUIT.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "db_path", app.config.DBPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger,
			gs.WithProbe(gs.ProbeFunc(app.ping), probeInterval),
			gs.WithStopTimeout(app.config.ShutdownTimeout),
		)
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
