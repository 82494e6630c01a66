// Package api talks to the warcore web server: health checks, map and
// config downloads, and replay uploads.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
)

// maxDocumentSize bounds downloaded maps and configs.
const maxDocumentSize = 16 << 20

// Client handles communication with the web server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the web server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

// MapTemplate downloads a map template. It implements war.MapProvider.
func (c *Client) MapTemplate(ctx context.Context, fileName string) (*core.MapTemplate, error) {
	body, err := c.get(ctx, "/api/v1/maps/"+url.PathEscape(fileName))
	if err != nil {
		return nil, err
	}
	var template core.MapTemplate
	if err := json.Unmarshal(body, &template); err != nil {
		return nil, fmt.Errorf("decoding map %q: %w", fileName, err)
	}
	if template.FileName == "" {
		template.FileName = fileName
	}
	return &template, nil
}

// Config downloads and validates one rule config version.
func (c *Client) Config(ctx context.Context, version string) (*definitions.Config, error) {
	body, err := c.get(ctx, "/api/v1/configs/"+url.PathEscape(version))
	if err != nil {
		return nil, err
	}
	cfg, err := definitions.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", version, err)
	}
	return cfg, nil
}

// Upload sends an exported replay file to the web server.
func (c *Client) Upload(filePath string, meta storage.UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer writer.Close()

		_ = writer.WriteField("secret", c.apiKey)
		_ = writer.WriteField("filename", filepath.Base(filePath))
		_ = writer.WriteField("warId", strconv.FormatInt(meta.WarID, 10))
		_ = writer.WriteField("warName", meta.WarName)
		_ = writer.WriteField("mapFileName", meta.MapFileName)
		_ = writer.WriteField("outcome", meta.Outcome)
		_ = writer.WriteField("actionsCount", strconv.Itoa(meta.ActionsCount))
		_ = writer.WriteField("duration", fmt.Sprintf("%f", meta.Duration.Seconds()))

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			errCh <- fmt.Errorf("failed to create form file: %w", err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			errCh <- fmt.Errorf("failed to copy file: %w", err)
			return
		}
		errCh <- nil
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/wars/replays", pr)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
