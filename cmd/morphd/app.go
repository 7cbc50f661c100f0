package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vyrodovalexey/apimorph/internal/config"
	"github.com/vyrodovalexey/apimorph/internal/events"
	"github.com/vyrodovalexey/apimorph/internal/observability"
	"github.com/vyrodovalexey/apimorph/internal/server"
)

// application holds all application components.
type application struct {
	mu       sync.RWMutex
	config   *config.Config
	server   *server.Server
	tracer   *observability.Tracer
	bus      *events.Bus
	store    *demoStore
	logger   observability.Logger
	override func(*config.Config)
	signals  chan os.Signal
}

// initApplication initializes all application components.
func initApplication(
	ctx context.Context,
	cfg *config.Config,
	demo bool,
	logger observability.Logger,
) (*application, error) {
	tracer, err := observability.NewTracer(ctx, cfg.TracerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	app := &application{
		config:   cfg,
		tracer:   tracer,
		bus:      events.NewBus(events.LoggingObserver(logger.Named("events")), events.MetricsObserver()),
		logger:   logger,
		override: func(*config.Config) {},
		signals:  make(chan os.Signal, 1),
	}
	if demo {
		app.store = newDemoStore()
	}

	rt, err := app.buildRuntime(cfg)
	if err != nil {
		return nil, err
	}

	app.server = server.New(cfg.Server, rt,
		server.WithLogger(logger.Named("server")),
		server.WithTracing(cfg.Tracing.Enabled),
	)
	if app.store != nil {
		registerDemoRoutes(app.server, app.store)
	}

	return app, nil
}

// buildRuntime builds a runtime snapshot for cfg, including the demo
// transformers when the demo is enabled.
func (a *application) buildRuntime(cfg *config.Config) (*server.Runtime, error) {
	opts := []server.RuntimeOption{
		server.WithRuntimeLogger(a.logger),
		server.WithRuntimePublisher(a.bus),
	}
	if a.store != nil {
		opts = append(opts, demoTransformers()...)
	}
	return server.BuildRuntime(cfg, opts...)
}

// reload swaps in a runtime built from cfg. On failure the current runtime
// keeps serving.
func (a *application) reload(cfg *config.Config) {
	a.override(cfg)

	rt, err := a.buildRuntime(cfg)
	if err != nil {
		a.logger.Error("failed to apply configuration, keeping current runtime",
			observability.Error(err))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if cfg.Server.Address != a.config.Server.Address {
		a.logger.Warn("server address changes require a restart",
			observability.String("current", a.config.Server.Address),
			observability.String("configured", cfg.Server.Address))
	}

	a.config = cfg
	a.server.SetRuntime(rt)
}

// currentConfig returns the configuration of the runtime being served.
func (a *application) currentConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// run serves until a shutdown signal arrives or the server fails.
func (a *application) run(configPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := a.startConfigWatcher(ctx, configPath)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start(ctx) }()

	signal.Notify(a.signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(a.signals)

	var runErr error
	select {
	case sig := <-a.signals:
		a.logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-errCh:
		runErr = err
	}

	a.shutdown(watcher)

	if runErr == nil {
		runErr = <-errCh
	}
	return runErr
}

// startConfigWatcher watches configPath for changes. Nothing is watched when
// the service runs on built-in defaults.
func (a *application) startConfigWatcher(ctx context.Context, configPath string) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, a.reload,
		config.WithWatcherLogger(a.logger.Named("config")),
		config.WithErrorCallback(func(err error) {
			a.logger.Warn("configuration reload rejected", observability.Error(err))
		}),
	)
	if err != nil {
		a.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		a.logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

// shutdown stops the watcher before anything else so no reload runs while
// the server drains.
func (a *application) shutdown(watcher *config.Watcher) {
	if watcher != nil {
		_ = watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.currentConfig().Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := a.tracer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	a.logger.Info("morphd stopped")
}
