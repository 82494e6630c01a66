package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

type fakeMaps struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeMaps) MapTemplate(_ context.Context, fileName string) (*core.MapTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.MapTemplate{FileName: fileName, Width: 2, Height: 2}, nil
}

type fakeConfigs struct {
	calls   int
	version string
}

func (f *fakeConfigs) Config(_ context.Context, version string) (*definitions.Config, error) {
	f.calls++
	cfg := definitions.Default()
	cfg.Version = f.version
	if cfg.Version == "" {
		cfg.Version = version
	}
	return cfg, nil
}

func writeMap(t *testing.T, dir, name string, m core.MapTemplate) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestMapCache_LoadsFromDir(t *testing.T) {
	dir := t.TempDir()
	writeMap(t, dir, "duel.json", core.MapTemplate{FileName: "other.json", Width: 5, Height: 4})
	remote := &fakeMaps{}
	c := NewMapCache(dir, remote)

	m, err := c.MapTemplate(t.Context(), "duel.json")
	require.NoError(t, err)
	assert.Equal(t, "duel.json", m.FileName, "the requested name wins")
	assert.Equal(t, 5, m.Width)
	assert.Zero(t, remote.calls)

	again, err := c.MapTemplate(t.Context(), "duel.json")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, 1, c.Len())
}

func TestMapCache_FallsBackToRemote(t *testing.T) {
	remote := &fakeMaps{}
	c := NewMapCache(t.TempDir(), remote)

	_, err := c.MapTemplate(t.Context(), "island.json")
	require.NoError(t, err)
	_, err = c.MapTemplate(t.Context(), "island.json")
	require.NoError(t, err)
	assert.Equal(t, 1, remote.calls)
}

func TestMapCache_ErrorsAreNotCached(t *testing.T) {
	remote := &fakeMaps{err: errors.New("offline")}
	c := NewMapCache("", remote)

	_, err := c.MapTemplate(t.Context(), "island.json")
	require.Error(t, err)
	remote.err = nil
	_, err = c.MapTemplate(t.Context(), "island.json")
	require.NoError(t, err)
	assert.Equal(t, 2, remote.calls)
}

func TestMapCache_NoSource(t *testing.T) {
	c := NewMapCache("", nil)
	_, err := c.MapTemplate(t.Context(), "x.json")
	assert.Error(t, err)

	c.Add(&core.MapTemplate{FileName: "x.json"})
	m, err := c.MapTemplate(t.Context(), "x.json")
	require.NoError(t, err)
	assert.Equal(t, "x.json", m.FileName)

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestMapCache_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))
	c := NewMapCache(dir, &fakeMaps{})
	_, err := c.MapTemplate(t.Context(), "bad.json")
	assert.Error(t, err)
}

func TestMapCache_ConcurrentAccess(t *testing.T) {
	c := NewMapCache("", &fakeMaps{})
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.MapTemplate(context.Background(), "shared.json")
			if err != nil {
				t.Errorf("MapTemplate: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}

func TestConfigCache_KnownVersion(t *testing.T) {
	remote := &fakeConfigs{}
	c := NewConfigCache(definitions.NewRegistry(), remote, 0)

	cfg, err := c.Get(definitions.DefaultVersion)
	require.NoError(t, err)
	assert.Equal(t, definitions.DefaultVersion, cfg.Version)
	assert.Zero(t, remote.calls)
}

func TestConfigCache_FetchesAndRegisters(t *testing.T) {
	registry := definitions.NewRegistry()
	remote := &fakeConfigs{}
	c := NewConfigCache(registry, remote, 0)

	cfg, err := c.Get("2024.1")
	require.NoError(t, err)
	assert.Equal(t, "2024.1", cfg.Version)

	_, err = c.Get("2024.1")
	require.NoError(t, err)
	assert.Equal(t, 1, remote.calls)
	assert.Contains(t, registry.Versions(), "2024.1")
}

func TestConfigCache_VersionMismatch(t *testing.T) {
	c := NewConfigCache(definitions.NewRegistry(), &fakeConfigs{version: "other"}, 0)
	_, err := c.Get("2024.1")
	assert.Error(t, err)
}

func TestConfigCache_NoRemote(t *testing.T) {
	c := NewConfigCache(definitions.NewRegistry(), nil, 0)
	_, err := c.Get("missing")
	assert.ErrorIs(t, err, definitions.ErrUnknownVersion)
}
