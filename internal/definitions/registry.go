package definitions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry keeps every loaded config version so that wars created under an
// older version keep their balance data.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Config
	newest  string
}

// NewRegistry returns a registry holding the built-in catalog.
func NewRegistry() *Registry {
	r := &Registry{configs: make(map[string]*Config)}
	if err := r.Register(Default()); err != nil {
		panic(fmt.Sprintf("built-in config is invalid: %v", err))
	}
	return r
}

// Register validates cfg and makes it the newest version.
func (r *Registry) Register(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Version] = cfg
	r.newest = cfg.Version
	return nil
}

func (r *Registry) Get(version string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.configs[version]; ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
}

func (r *Registry) NewestVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newest
}

func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := make([]string, 0, len(r.configs))
	for v := range r.configs {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// Parse decodes and validates one config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDir registers every *.json file of dir in file name order, so the last
// file becomes the newest version.
func (r *Registry) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(f), err)
		}
		if err := r.Register(cfg); err != nil {
			return err
		}
	}
	return nil
}
