// Package server initializes and runs the application: database and blob
// storage setup, service wiring, the HTTP endpoint and the background
// reconciler, with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cryptshare/internal/logging"
	"github.com/dmitrijs2005/cryptshare/internal/server/admin"
	"github.com/dmitrijs2005/cryptshare/internal/server/blob"
	"github.com/dmitrijs2005/cryptshare/internal/server/config"
	"github.com/dmitrijs2005/cryptshare/internal/server/httpapi"
	"github.com/dmitrijs2005/cryptshare/internal/server/metrics"
	"github.com/dmitrijs2005/cryptshare/internal/server/ratelimit"
	"github.com/dmitrijs2005/cryptshare/internal/server/reconciler"
	"github.com/dmitrijs2005/cryptshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cryptshare/internal/server/resources"
	"github.com/dmitrijs2005/cryptshare/internal/server/uploadguard"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *http.Server
	reconciler *reconciler.Reconciler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := &repomanager.PostgresRepositoryManager{}
	if err := manager.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob storage init error: %w", err)
	}

	mt := metrics.NewProm("cryptshare")

	resourceService := resources.NewService(db, manager, blobs, cfg, logger, mt)
	adminService := admin.NewService(db, manager, cfg, logger)
	limiter := ratelimit.New(cfg.DailyRequestLimit)
	guard := uploadguard.New(logger)

	api := httpapi.New(cfg, resourceService, adminService, limiter, guard, logger, mt)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		httpServer: &http.Server{
			Addr:    cfg.EndpointAddr,
			Handler: api.Handler(),
		},
		reconciler: reconciler.New(resourceService, adminService, limiter,
			cfg.SweepInterval, cfg.DailyRequestLimit, logger, mt),
	}, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "disk":
		return blob.NewDiskStore(cfg.DataDir)
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)

	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "starting app")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reconciler.Run(ctx)
	}()

	<-ctx.Done()

	shutdownCtx, release := context.WithTimeout(context.Background(), 10*time.Second)
	defer release()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http server shutdown error", "error", err)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "app stopped")
}
