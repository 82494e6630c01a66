package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/database"
	"github.com/tinywars/warcore/internal/model"
	"github.com/tinywars/warcore/internal/storage"
	gormstorage "github.com/tinywars/warcore/internal/storage/gorm"
	"github.com/tinywars/warcore/internal/storage/memory"
	pgstorage "github.com/tinywars/warcore/internal/storage/postgres"
	sqlitestorage "github.com/tinywars/warcore/internal/storage/sqlite"
	wsstorage "github.com/tinywars/warcore/internal/storage/websocket"
	"github.com/tinywars/warcore/pkg/core"
)

// streamPath is appended to api.serverUrl when storage.websocket.url is empty.
const streamPath = "/api/v1/wars/stream"

func createStorageBackend(a *app, storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		mgr := database.NewManager(a.zlog)
		if err := mgr.Connect(); err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		if mgr.ShouldSaveLocal {
			a.logger.Warn("Postgres unreachable, recording to SQLite dumps instead")
			return newSqliteBackend(a, storageCfg.SQLite)
		}
		a.logger.Info("Postgres storage backend initialized")
		return pgstorage.New(gormstorage.Dependencies{DB: mgr.DB, Logger: a.zlog}), nil

	case "sqlite":
		return newSqliteBackend(a, storageCfg.SQLite)

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + streamPath
		}
		a.logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: storageCfg.WebSocket.Secret,
		}, a.logger), nil

	case "memory", "":
		a.logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

func newSqliteBackend(a *app, cfg config.SQLiteConfig) (storage.Backend, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create SQLite output dir: %w", err)
	}
	dumpPath := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("%s_%s.db", appName, a.started.Format("20060102_150405")))
	backend, err := sqlitestorage.New(sqlitestorage.Config{
		DumpInterval: cfg.DumpInterval,
		DumpPath:     dumpPath,
	}, a.zlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
	}
	a.logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
	return backend, nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// storedWar is a war read back from a database.
type storedWar struct {
	data        *core.ReplayData
	checkPoints []core.ReplayCheckPoint
	source      string

	startedAt time.Time
	endedAt   time.Time
	outcome   string
}

// loadStoredWar reads warID from the database the storage config points
// at. dbPath names a SQLite file and wins over the config; without it
// the SQLite dumps of storage.sqlite.outputDir are searched, newest first.
func loadStoredWar(ctx context.Context, storageCfg config.StorageConfig, dbPath string, warID int64) (*storedWar, error) {
	if dbPath != "" {
		return loadFromSqlite(ctx, dbPath, warID)
	}

	switch storageCfg.Type {
	case "postgres":
		db, err := database.GetPostgresDB()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer closeDB(db)
		return loadFromDB(ctx, db, warID, "postgres")

	case "sqlite":
		paths, err := database.GetBackupDBPaths(storageCfg.SQLite.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list SQLite dumps: %w", err)
		}
		// dump names carry their start time
		sort.Sort(sort.Reverse(sort.StringSlice(paths)))
		for _, path := range paths {
			w, err := loadFromSqlite(ctx, path, warID)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return w, err
		}
		return nil, fmt.Errorf("war %d in %s: %w", warID, storageCfg.SQLite.OutputDir, storage.ErrNotFound)

	default:
		return nil, fmt.Errorf("storage type %q keeps no database to read from, pass -db", storageCfg.Type)
	}
}

func loadFromSqlite(ctx context.Context, path string, warID int64) (*storedWar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := database.GetSqliteDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer closeDB(db)
	return loadFromDB(ctx, db, warID, path)
}

func loadFromDB(ctx context.Context, db *gorm.DB, warID int64, source string) (*storedWar, error) {
	b := gormstorage.New(gormstorage.Dependencies{DB: db})
	data, err := b.LoadReplay(ctx, warID)
	if err != nil {
		return nil, err
	}
	points, err := b.LoadCheckPoints(ctx, warID)
	if err != nil {
		return nil, err
	}
	var row model.War
	if err := db.WithContext(ctx).Select("created_at", "outcome", "ended_at").First(&row, warID).Error; err != nil {
		return nil, fmt.Errorf("load war %d: %w", warID, err)
	}
	w := &storedWar{data: data, checkPoints: points, source: source, startedAt: row.CreatedAt, outcome: row.Outcome}
	if row.EndedAt.Valid {
		w.endedAt = row.EndedAt.Time
	}
	return w, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
