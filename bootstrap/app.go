// Package bootstrap wires the Sentinel components together and owns the
// process lifecycle: startup order, signal handling and phased shutdown.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel/api"
	"sentinel/config"
	"sentinel/correlate"
	"sentinel/geo"
	"sentinel/ml"
	"sentinel/notify"
	"sentinel/simulate"
	"sentinel/storage"

	"go.uber.org/zap"
)

// App represents the Sentinel application with all its components.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	Store      *storage.MemoryStore
	Correlator *correlate.Correlator
	Publisher  *correlate.StatsPublisher
	Hub        *api.Hub
	APIServer  *api.API
	Simulator  *simulate.Engine

	cancel context.CancelFunc
}

// NewApp creates a new application instance and initializes all components.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}

	logger, sugar, err := InitLogger(os.Getenv("SENTINEL_LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger
	app.Sugar = sugar

	sugar.Info("Sentinel security dashboard starting...")

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Store = storage.NewMemoryStore(sugar)

	resolver, err := geo.NewCachedResolver(geo.NewStaticResolver(sugar), cfg.Geo.CacheSize, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize geo resolver: %w", err)
	}

	classifier := ml.NewHeuristicPhishingClassifier(sugar)
	detector := ml.NewRandomDeepfakeDetector(cfg.Simulation.Seed, sugar)
	notifier := notify.NewNotifier(cfg.Notifications.Channels, sugar)

	app.Correlator, err = correlate.New(correlate.Config{
		Store:      app.Store,
		Classifier: classifier,
		Resolver:   resolver,
		Notifier:   notifier,
		Logger:     sugar,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize correlator: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	app.cancel = cancel

	app.Hub = api.NewHub(appCtx, sugar)
	app.Correlator.AddSink(app.Hub)

	app.Publisher = correlate.NewStatsPublisher(
		app.Store,
		[]correlate.Sink{app.Hub},
		cfg.Stats.PublishInterval,
		sugar)

	app.APIServer = api.NewAPI(app.Store, app.Correlator, detector, app.Hub, cfg, sugar)

	if cfg.Simulation.Enabled {
		app.Simulator = simulate.NewEngine(app.Correlator, simulate.Intervals{
			SSHMin: cfg.Simulation.SSH.MinInterval, SSHMax: cfg.Simulation.SSH.MaxInterval,
			HTTPMin: cfg.Simulation.HTTP.MinInterval, HTTPMax: cfg.Simulation.HTTP.MaxInterval,
			FTPMin: cfg.Simulation.FTP.MinInterval, FTPMax: cfg.Simulation.FTP.MaxInterval,
		}, cfg.Simulation.Seed, sugar)
	}

	return app, nil
}

// Start launches every component and the API server goroutine.
func (a *App) Start(ctx context.Context) error {
	go a.Hub.Start()
	a.Publisher.Start(ctx)

	if a.Simulator != nil {
		a.Simulator.Start(ctx)
	} else {
		a.Sugar.Info("Attack simulation disabled")
	}

	go func() {
		err := a.APIServer.Start()
		if err != nil && err.Error() != "http: Server closed" {
			a.Sugar.Errorf("API server error: %v", err)
		}
	}()

	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// Shutdown gracefully shuts down all components. Producers stop first
// so nothing publishes into a closed hub.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	a.Sugar.Info("Phase 1: Stopping attack simulation...")
	if a.Simulator != nil {
		a.Simulator.Stop()
	}

	a.Sugar.Info("Phase 2: Stopping stats publisher...")
	a.Publisher.Stop()

	a.Sugar.Info("Phase 3: Stopping API server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.APIServer.Stop(ctx); err != nil {
		a.Sugar.Errorw("Failed to stop API server", "error", err)
	}

	a.Sugar.Info("Phase 4: Stopping WebSocket hub...")
	a.Hub.Stop()

	if a.cancel != nil {
		a.cancel()
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}
