// cmd/kvkeeper/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/avivl/kvkeeper/internal/config"
	"github.com/avivl/kvkeeper/internal/kvservice"
	"github.com/avivl/kvkeeper/internal/observability"
	"github.com/avivl/kvkeeper/internal/server"

	_ "github.com/avivl/kvkeeper/internal/store/dynamodb"
	_ "github.com/avivl/kvkeeper/internal/store/redis"
	_ "github.com/avivl/kvkeeper/internal/store/scylladb"
)

const otelShutdownTimeout = 5 * time.Second

// App represents the application state
type App struct {
	logger       *observability.SLogger
	metrics      *observability.OTelMetrics
	configLoader *config.ConfigLoader
	settings     *config.Settings
	otelShutdown func(context.Context) error
	service      *kvservice.Service
}

// NewApp loads configuration and builds the logger, telemetry and store
// service. The store is not connected yet.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	loader, settings, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(settings.Logger.Level.GetZapLevel())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	loader.SetLogger(logger)

	otelShutdown, err := observability.InitProvider(ctx, settings.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := observability.NewMetricsClient(settings.Observability, logger)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return newAppWith(loader, settings, logger, metrics, otelShutdown), nil
}

func newAppWith(
	loader *config.ConfigLoader,
	settings *config.Settings,
	logger *observability.SLogger,
	metrics *observability.OTelMetrics,
	otelShutdown func(context.Context) error,
) *App {
	opts := []kvservice.Option{
		kvservice.WithLabel(settings.BackendLabel()),
		kvservice.WithConnectTimeout(settings.ConnectTimeout),
	}
	if metrics != nil {
		opts = append(opts, kvservice.WithMetrics(metrics))
	}

	return &App{
		logger:       logger,
		metrics:      metrics,
		configLoader: loader,
		settings:     settings,
		otelShutdown: otelShutdown,
		service:      kvservice.New(settings.Backend.Type, settings.StoreConfig(), logger, opts...),
	}
}

// Serve runs the health server until ctx is canceled
func (a *App) Serve(ctx context.Context) error {
	a.logger.Infow("Starting kvkeeper",
		"backend", a.settings.Backend.Type,
		"address", a.settings.ServerAddress,
	)

	srv, err := server.NewServer(a.settings, a.service, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.setupConfigWatcher()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(ctx)
	}()

	select {
	case err := <-serveErr:
		_ = srv.Stop()
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down application")
	if err := srv.Stop(); err != nil {
		a.logger.Errorf("Error stopping server: %v", err)
	}
	return <-serveErr
}

// setupConfigWatcher logs reloads. Connection settings are fixed for the
// life of the process, so a changed backend section needs a restart.
func (a *App) setupConfigWatcher() {
	if a.configLoader == nil {
		return
	}
	a.configLoader.AddWatcher(func(newConfig *config.Settings) {
		if newConfig.Backend.Type != a.settings.Backend.Type {
			a.logger.Warnw("Backend changed in config file; restart to apply",
				"current", a.settings.Backend.Type,
				"configured", newConfig.Backend.Type,
			)
			return
		}
		a.logger.Infow("Configuration updated", "file", a.configLoader.ConfigFile())
	})
}

// Connect connects the store service, bounded by the configured timeout
func (a *App) Connect(ctx context.Context) error {
	return a.service.Connect(ctx)
}

// Shutdown closes the store and flushes telemetry
func (a *App) Shutdown() {
	if err := a.service.Close(); err != nil {
		a.logger.Errorf("Error closing store: %v", err)
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.logger.Errorf("Error shutting down OpenTelemetry: %v", err)
		}
	}

	_ = a.logger.Sync()
}
