// Package workspace reads customer pages from, and writes discussion
// summaries back to, a Notion database.
package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/worldsun-app/coopeartion-project/internal/config"
	appErr "github.com/worldsun-app/coopeartion-project/internal/pkg/errors"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	defaultVersion = "2025-09-03"
	pageSize       = 100
)

type Client struct {
	apiKey     string
	databaseID string
	version    string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(cfg config.WorkspaceConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		databaseID: cfg.DatabaseID,
		version:    cfg.Version,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if c.version == "" {
		c.version = defaultVersion
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion %s %s: %w: %v", method, path, appErr.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion %s %s failed: %s: %w: %s", method, path, resp.Status, statusError(resp.StatusCode), strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return appErr.ErrNotFound
	case code == http.StatusConflict:
		return appErr.ErrConflict
	case code == http.StatusTooManyRequests:
		return appErr.ErrTooMany
	case code >= http.StatusInternalServerError:
		return appErr.ErrUnavailable
	default:
		return appErr.ErrInvalid
	}
}
