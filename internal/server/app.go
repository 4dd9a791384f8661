// Package server initializes and runs the equiptrack application server.
// It wires the database, the object store and the local fallback store
// into the services, handles graceful shutdown, and starts the HTTP
// server.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"equiptrack/internal/blob"
	"equiptrack/internal/logging"
	"equiptrack/internal/server/config"
	"equiptrack/internal/server/httpapi"
	"equiptrack/internal/server/services"
	"equiptrack/internal/server/shared/db"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
	dbm    db.RepositoryManager
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout)

	dbm, err := db.NewPostgresRepositoryManager(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	s3store, err := blob.NewS3Store(ctx, blob.S3Options{
		Endpoint: cfg.S3BaseEndpoint,
		Region:   cfg.S3Region,
		User:     cfg.S3RootUser,
		Password: cfg.S3RootPassword,
		Bucket:   cfg.S3Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	local, err := blob.NewLocalStore(cfg.UploadsDir)
	if err != nil {
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	recordSvc := services.NewRecordService(dbm.Records(), s3store, local, dbm, logger)
	reconcileSvc := services.NewReconcileService(dbm.Records(), s3store, logger)
	statsSvc := services.NewStatsService(dbm.Records())

	handler := httpapi.NewHandler(recordSvc, reconcileSvc, statsSvc, local.Root(), logger)
	server := httpapi.NewServer(cfg.EndpointAddrHTTP, handler, logger)

	return &App{config: cfg, logger: logger, server: server, dbm: dbm}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx, app.config.ShutdownTimeout); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.dbm.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
