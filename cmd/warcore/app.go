package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tinywars/warcore/internal/api"
	"github.com/tinywars/warcore/internal/cache"
	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/logging"
	intOtel "github.com/tinywars/warcore/internal/otel"
	"github.com/tinywars/warcore/internal/worker"
)

// app holds what every command sets up: config, loggers and telemetry.
type app struct {
	started time.Time
	logs    *logging.Manager
	logger  *slog.Logger
	zlog    zerolog.Logger
	logFile *os.File
	otel    *intOtel.Provider
	gelf    *gelf.Writer

	// wars is set by serve once the worker exists.
	wars atomic.Pointer[worker.Manager]
}

// setup loads the config in configDir and builds the loggers. serve logs
// to a file in logsDir, the other commands to stderr so their output
// stays readable.
func setup(configDir string, logToFile bool) (*app, error) {
	a := &app{started: time.Now(), logs: logging.NewManager()}
	a.logs.Setup(logging.Options{File: os.Stderr, Level: "info"})
	a.logger = a.logs.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Debug("Loaded config", "dir", configDir)
	}
	level := viper.GetString("logLevel")

	var out io.Writer = os.Stderr
	if logToFile {
		logsDir := viper.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create logs dir: %w", err)
		}
		path := logging.LogFilePath(logsDir, appName, a.started)
		if _, err := os.Stat(path); err == nil {
			_ = os.Rename(path, path+".old")
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		out = f
		a.logger.Info("Begin logging in logs directory", "path", path)
	}

	opts := logging.Options{File: out, Level: level, Context: a.warAttrs}

	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		var otelOut io.Writer
		if a.logFile != nil {
			otelOut = a.logFile
		}
		p, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: Version,
			InstanceName:   viper.GetString("server.name"),
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      otelOut,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otel = p
			opts.Provider = p.LoggerProvider()
		}
	}

	if viper.GetBool("graylog.enabled") {
		w, err := logging.NewGelfWriter(viper.GetString("graylog.address"))
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			a.gelf = w
			opts.Gelf = w
		}
	}

	a.logs.Setup(opts)
	a.logger = a.logs.Logger()
	a.zlog = logging.NewZerolog(out, level)
	return a, nil
}

// warAttrs tags log records with the war being mirrored.
func (a *app) warAttrs() []slog.Attr {
	m := a.wars.Load()
	if m == nil {
		return nil
	}
	warID, next, ok := m.CurrentWar()
	if !ok {
		return nil
	}
	return []slog.Attr{slog.Int64("warId", warID), slog.Int("nextActionId", next)}
}

// providers builds the map and rule config lookups of the game section.
// The web server is only asked when a map or version is missing locally.
func (a *app) providers() (*cache.MapCache, *cache.ConfigCache, error) {
	gameCfg := config.GetGameConfig()
	registry := definitions.NewRegistry()
	if gameCfg.ConfigDir != "" {
		if err := registry.LoadDir(gameCfg.ConfigDir); err != nil {
			return nil, nil, fmt.Errorf("failed to load rule configs: %w", err)
		}
	}
	a.logger.Info("Rule configs loaded", "versions", registry.Versions())

	client := a.apiClient()
	var maps *cache.MapCache
	var configs *cache.ConfigCache
	if client != nil {
		maps = cache.NewMapCache(gameCfg.MapsDir, client)
		configs = cache.NewConfigCache(registry, client, 0)
	} else {
		maps = cache.NewMapCache(gameCfg.MapsDir, nil)
		configs = cache.NewConfigCache(registry, nil, 0)
	}
	return maps, configs, nil
}

// apiClient is nil when no web server is configured.
func (a *app) apiClient() *api.Client {
	url := viper.GetString("api.serverUrl")
	if url == "" {
		return nil
	}
	return api.New(url, viper.GetString("api.apiKey"))
}

// statusDir is where the monitor writes its status file.
func (a *app) statusDir() string {
	return filepath.Clean(viper.GetString("logsDir"))
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.logs.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown otel: %v\n", err)
		}
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
