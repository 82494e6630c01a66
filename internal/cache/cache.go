// Package cache keeps map templates and rule configs in memory once they
// have been loaded from disk or downloaded, so entering a war does not
// touch the network twice for the same map.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// MapFetcher downloads map templates. api.Client implements it.
type MapFetcher interface {
	MapTemplate(ctx context.Context, fileName string) (*core.MapTemplate, error)
}

// ConfigFetcher downloads rule configs. api.Client implements it.
type ConfigFetcher interface {
	Config(ctx context.Context, version string) (*definitions.Config, error)
}

// MapCache resolves map templates from a directory, then from a remote
// fetcher. Failed loads are not cached.
type MapCache struct {
	mu        sync.RWMutex
	templates map[string]*core.MapTemplate
	dir       string
	remote    MapFetcher
}

// NewMapCache creates a cache reading dir. dir and remote may both be
// empty; then only Add fills the cache.
func NewMapCache(dir string, remote MapFetcher) *MapCache {
	return &MapCache{
		templates: make(map[string]*core.MapTemplate),
		dir:       dir,
		remote:    remote,
	}
}

// MapTemplate implements war.MapProvider.
func (c *MapCache) MapTemplate(ctx context.Context, fileName string) (*core.MapTemplate, error) {
	c.mu.RLock()
	t, ok := c.templates[fileName]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := c.load(ctx, fileName)
	if err != nil {
		return nil, err
	}
	c.Add(t)
	return t, nil
}

func (c *MapCache) load(ctx context.Context, fileName string) (*core.MapTemplate, error) {
	if c.dir != "" {
		// names come from snapshots, so only the base name is trusted
		data, err := os.ReadFile(filepath.Join(c.dir, filepath.Base(fileName)))
		switch {
		case err == nil:
			var t core.MapTemplate
			if err := json.Unmarshal(data, &t); err != nil {
				return nil, fmt.Errorf("decoding map %q: %w", fileName, err)
			}
			t.FileName = fileName
			return &t, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("reading map %q: %w", fileName, err)
		}
	}
	if c.remote == nil {
		return nil, fmt.Errorf("map %q not found", fileName)
	}
	return c.remote.MapTemplate(ctx, fileName)
}

// Add stores t under its file name.
func (c *MapCache) Add(t *core.MapTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.FileName] = t
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

func (c *MapCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = make(map[string]*core.MapTemplate)
}

// ConfigCache resolves rule configs from a registry and registers the
// versions it has to download.
type ConfigCache struct {
	mu       sync.Mutex
	registry *definitions.Registry
	remote   ConfigFetcher
	timeout  time.Duration
}

// NewConfigCache wraps registry. A nil remote makes unknown versions fail.
func NewConfigCache(registry *definitions.Registry, remote ConfigFetcher, timeout time.Duration) *ConfigCache {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConfigCache{registry: registry, remote: remote, timeout: timeout}
}

// Get implements war.ConfigProvider.
func (c *ConfigCache) Get(version string) (*definitions.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.registry.Get(version)
	if err == nil || c.remote == nil || !errors.Is(err, definitions.ErrUnknownVersion) {
		return cfg, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	cfg, err = c.remote.Config(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("fetch config %q: %w", version, err)
	}
	if cfg.Version != version {
		return nil, fmt.Errorf("fetched config %q reports version %q", version, cfg.Version)
	}
	if err := c.registry.Register(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
