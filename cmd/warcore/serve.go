package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/dispatcher"
	"github.com/tinywars/warcore/internal/hub"
	"github.com/tinywars/warcore/internal/influx"
	"github.com/tinywars/warcore/internal/logging"
	"github.com/tinywars/warcore/internal/monitor"
	"github.com/tinywars/warcore/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	addr := fs.String("addr", "", "listen address, overrides hub.address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(*configDir, true)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger
	logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	maps, configs, err := a.providers()
	if err != nil {
		return err
	}

	backend, err := createStorageBackend(a, config.GetStorageConfig())
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	var influxManager *influx.Manager
	if influxCfg := influx.ConfigFromViper(); influxCfg.Enabled {
		influxManager = influx.NewManager(influxCfg, a.zlog,
			filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_%s.influx.gz", appName, a.started.Format("20060102_150405"))))
		if err := influxManager.Connect(ctx); err != nil {
			logger.Error("Failed to connect to InfluxDB", "error", err)
			influxManager = nil
		} else {
			defer func() {
				if err := influxManager.Close(); err != nil {
					logger.Error("Failed to close InfluxDB", "error", err)
				}
			}()
		}
	}

	engine, err := action.NewEngine(action.NopView{}, logger, action.Logged())
	if err != nil {
		return fmt.Errorf("failed to create action engine: %w", err)
	}
	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	hubCfg := config.GetHubConfig()
	h := hub.New(d, hub.Config{Secret: hubCfg.Secret, SendBuffer: hubCfg.SendBuffer}, logger)

	deps := worker.Dependencies{
		Engine:   engine,
		Maps:     maps,
		Configs:  configs,
		Upstream: h,
		Backend:  backend,
		Influx:   influxManager,
		Hub:      h,
		Logger:   logger,
	}
	if client := a.apiClient(); client != nil && viper.GetString("api.apiKey") != "" {
		deps.Uploader = client
	}
	workerManager, err := worker.NewManager(deps)
	if err != nil {
		return err
	}
	a.wars.Store(workerManager)
	workerManager.RegisterHandlers(d)
	logger.Info("Worker handlers registered with dispatcher")

	var monitorService *monitor.Service
	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		monDeps := monitor.Dependencies{
			Logger:    logger,
			Wars:      workerManager,
			Clients:   h,
			Influx:    influxManager,
			StatusDir: a.statusDir(),
			Interval:  monCfg.Interval,
		}
		if q, ok := backend.(monitor.QueueStats); ok {
			monDeps.Queues = q
		}
		monitorService = monitor.NewService(monDeps)
		if err := monitorService.Start(); err != nil {
			logger.Error("Failed to start status monitor", "error", err)
			monitorService = nil
		}
	}

	address := hubCfg.Address
	if *addr != "" {
		address = *addr
	}
	srv := &http.Server{
		Addr:              address,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Hub listening", "address", address)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if monitorService != nil {
		monitorService.Stop()
	}
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Failed to shut down HTTP server", "error", shutdownErr)
	}
	// websocket connections are hijacked, so Shutdown leaves them open
	h.Close()
	d.Close()
	workerManager.Close()
	logger.Info("Stopped", "pendingWrites", workerManager.PendingWrites())

	if err != nil {
		return fmt.Errorf("hub on %s: %w", address, err)
	}
	return nil
}
