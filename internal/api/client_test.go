package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
)

func TestNew(t *testing.T) {
	c := New("http://localhost:5000", "secret123")

	if c == nil {
		t.Fatal("New returned nil")
	}
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected baseURL=http://localhost:5000, got %s", c.baseURL)
	}
	if c.apiKey != "secret123" {
		t.Errorf("expected apiKey=secret123, got %s", c.apiKey)
	}
	if c.httpClient == nil {
		t.Error("httpClient is nil")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	if c.baseURL != "http://localhost:5000" {
		t.Errorf("expected trailing slash trimmed, got %s", c.baseURL)
	}
}

func TestHealthcheck_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthcheck" {
			t.Errorf("expected path /healthcheck, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err != nil {
		t.Errorf("Healthcheck failed: %v", err)
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestHealthcheck_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := New(server.URL, "")
	if err := c.Healthcheck(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestMapTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/maps/duel map.json", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		_ = json.NewEncoder(w).Encode(core.MapTemplate{Width: 3, Height: 2, PlayersCount: 2,
			TileBases: make([]int, 6), TileObjects: make([]int, 6)})
	}))
	defer server.Close()

	c := New(server.URL, "key")
	template, err := c.MapTemplate(t.Context(), "duel map.json")
	require.NoError(t, err)
	assert.Equal(t, "duel map.json", template.FileName, "the requested name fills a missing one")
	assert.Equal(t, 3, template.Width)
}

func TestMapTemplate_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := New(server.URL, "").MapTemplate(t.Context(), "missing.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMapTemplate_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer server.Close()

	_, err := New(server.URL, "").MapTemplate(t.Context(), "x.json")
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	body, err := json.Marshal(definitions.Default())
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/configs/"+definitions.DefaultVersion, r.URL.Path)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	cfg, err := New(server.URL, "").Config(t.Context(), definitions.DefaultVersion)
	require.NoError(t, err)
	assert.Equal(t, definitions.Default().Version, cfg.Version)
}

func TestConfig_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, "").Config(t.Context(), "v1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestUpload_Success(t *testing.T) {
	fields := map[string]string{}
	var receivedFileContent []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/wars/replays" {
			t.Errorf("expected path /api/v1/wars/replays, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			return
		}
		for _, k := range []string{"secret", "filename", "warId", "warName", "mapFileName", "outcome", "actionsCount", "duration"} {
			fields[k] = r.FormValue(k)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("failed to get file: %v", err)
			return
		}
		defer file.Close()
		receivedFileContent, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "war_3.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0o644))

	c := New(server.URL, "mysecret")
	err := c.Upload(testFile, storage.UploadMetadata{
		WarID:        3,
		WarName:      "Duel",
		MapFileName:  "duel.json",
		Outcome:      "victory",
		ActionsCount: 42,
		Duration:     90 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":       "mysecret",
		"filename":     "war_3.json.gz",
		"warId":        "3",
		"warName":      "Duel",
		"mapFileName":  "duel.json",
		"outcome":      "victory",
		"actionsCount": "42",
		"duration":     "5400.000000",
	}, fields)
	assert.Equal(t, "test content", string(receivedFileContent))
}

func TestUpload_FileNotFound(t *testing.T) {
	c := New("http://localhost:5000", "secret")
	if err := c.Upload("/nonexistent/file.json.gz", storage.UploadMetadata{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	testFile := filepath.Join(t.TempDir(), "test.json.gz")
	require.NoError(t, os.WriteFile(testFile, []byte("content"), 0o644))

	c := New(server.URL, "wrong-secret")
	if err := c.Upload(testFile, storage.UploadMetadata{}); err == nil {
		t.Error("expected error for 403 response")
	}
}
