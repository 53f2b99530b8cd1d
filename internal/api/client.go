package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPDoer describes the HTTP client used to reach syncthing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the REST surface the supervisor and watchers depend on.
type Client interface {
	FetchConfig(ctx context.Context) (*Config, error)
	FetchSystemStatus(ctx context.Context) (*SystemStatus, error)
	FetchVersion(ctx context.Context) (*Version, error)
	FetchConnections(ctx context.Context) (*Connections, error)
	FetchIgnores(ctx context.Context, folderID string) (*Ignores, error)
	FetchEvents(ctx context.Context, since int64, timeout time.Duration) ([]Event, error)
	Scan(ctx context.Context, folderID, subPath string) error
	Restart(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Ping(ctx context.Context) error
}

type restClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewClient constructs a REST client for the instance at address
// (host:port). A nil doer falls back to http.DefaultClient.
func NewClient(address, apiKey string, client HTTPDoer) Client {
	if client == nil {
		client = http.DefaultClient
	}
	base := strings.TrimSpace(address)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &restClient{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  client,
	}
}

func (c *restClient) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, out)
}

func (c *restClient) post(ctx context.Context, path string, query url.Values) error {
	return c.do(ctx, http.MethodPost, path, query, nil)
}

func (c *restClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build syncthing request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *restClient) FetchConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.get(ctx, "/rest/system/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *restClient) FetchSystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, "/rest/system/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *restClient) FetchVersion(ctx context.Context) (*Version, error) {
	var version Version
	if err := c.get(ctx, "/rest/system/version", nil, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

func (c *restClient) FetchConnections(ctx context.Context) (*Connections, error) {
	var conns Connections
	if err := c.get(ctx, "/rest/system/connections", nil, &conns); err != nil {
		return nil, err
	}
	return &conns, nil
}

func (c *restClient) FetchIgnores(ctx context.Context, folderID string) (*Ignores, error) {
	query := url.Values{"folder": {folderID}}
	var ignores Ignores
	if err := c.get(ctx, "/rest/db/ignores", query, &ignores); err != nil {
		return nil, err
	}
	return &ignores, nil
}

func (c *restClient) FetchEvents(ctx context.Context, since int64, timeout time.Duration) ([]Event, error) {
	query := url.Values{
		"since":   {strconv.FormatInt(since, 10)},
		"timeout": {strconv.Itoa(int(timeout / time.Second))},
	}
	var events []Event
	if err := c.get(ctx, "/rest/events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *restClient) Scan(ctx context.Context, folderID, subPath string) error {
	query := url.Values{"folder": {folderID}}
	if subPath != "" {
		query.Set("sub", subPath)
	}
	return c.post(ctx, "/rest/db/scan", query)
}

func (c *restClient) Restart(ctx context.Context) error {
	return c.post(ctx, "/rest/system/restart", nil)
}

func (c *restClient) Shutdown(ctx context.Context) error {
	return c.post(ctx, "/rest/system/shutdown", nil)
}

func (c *restClient) Ping(ctx context.Context) error {
	return c.get(ctx, "/rest/system/ping", nil, nil)
}
