package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// apiPrefix is the path TestRail routes API v2 calls through.
const apiPrefix = "/index.php?/api/v2/"

// Client is a client for the TestRail API v2 authenticated with HTTP basic auth.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

// New creates a new Client for the given TestRail instance, e.g.
// "https://example.testrail.io". password may be an API key.
func New(baseURL, user, password string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("testrail: baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	cfg := &clientConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		user:       user,
		password:   password,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets a timeout on the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("testrail: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

func (c *Client) get(ctx context.Context, uri, operation string, dst any) error {
	return c.doJSON(ctx, http.MethodGet, uri, operation, nil, dst)
}

func (c *Client) post(ctx context.Context, uri, operation string, payload, dst any) error {
	if payload == nil {
		payload = struct{}{}
	}
	return c.doJSON(ctx, http.MethodPost, uri, operation, payload, dst)
}

// doJSON executes an API call for uri (e.g. "get_plan/12") and decodes the
// JSON response into dst. If the response has an error status, it returns an
// *APIError.
func (c *Client) doJSON(ctx context.Context, method, uri, operation string, payload, dst any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: marshal: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	url := c.baseURL + apiPrefix + uri
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.SetBasicAuth(c.user, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.InfoContext(ctx, "API request", "operation", operation, "method", method, "uri", uri)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API response", "operation", operation, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		var errRS ErrorResponse
		if json.Unmarshal(respBody, &errRS) == nil && errRS.Error != "" {
			return newAPIError(operation, resp.StatusCode, errRS.Error)
		}
		msg := string(respBody)
		if msg == "" {
			msg = resp.Status
		}
		return newAPIError(operation, resp.StatusCode, msg)
	}

	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}

// listAll fetches every page of a list endpoint. key names the array field
// inside a paginated envelope (e.g. "cases").
func listAll[T any](ctx context.Context, c *Client, uri, operation, key string) ([]T, error) {
	var all []T
	seen := make(map[string]bool)
	for uri != "" && !seen[uri] {
		seen[uri] = true

		var raw json.RawMessage
		if err := c.get(ctx, uri, operation, &raw); err != nil {
			return nil, err
		}
		items, next, err := decodePage[T](raw, key)
		if err != nil {
			return nil, fmt.Errorf("%s: decode page: %w", operation, err)
		}
		all = append(all, items...)
		uri = next
	}
	return all, nil
}

func decodePage[T any](raw json.RawMessage, key string) ([]T, string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", err
		}
		return items, "", nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", err
	}
	var items []T
	if field, ok := envelope[key]; ok {
		if err := json.Unmarshal(field, &items); err != nil {
			return nil, "", err
		}
	}
	var links pageLinks
	if field, ok := envelope["_links"]; ok {
		if err := json.Unmarshal(field, &links); err != nil {
			return nil, "", err
		}
	}
	next := ""
	if links.Next != nil {
		next = strings.TrimPrefix(*links.Next, "/api/v2/")
	}
	return items, next, nil
}
