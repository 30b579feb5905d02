// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fabric

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/fritzduchardt/fabric-ui/internal/metrics"
	"github.com/fritzduchardt/fabric-ui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the public fabric deployment.
	DefaultBaseURL = "https://fabric-friclu.duckdns.org/api"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps list responses.
	MaxResponseSize = 10 * 1024 * 1024

	// MaxErrorBodySize caps the body kept in an HTTPStatusError.
	MaxErrorBodySize = 4 * 1024
)

// Endpoint paths relative to the base URL.
const (
	PathChat          = "/chat"
	PathPatternNames  = "/patterns/names"
	PathModelNames    = "/models/names"
	PathObsidianFiles = "/obsidian/files"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// sharedHTTPClient is used for list requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streams are bounded by their
	// context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one fabric backend. It is safe for concurrent use once
// configured.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient creates a client for baseURL. A trailing slash is dropped.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		logger:       zap.NewNop(),
	}
}

// WithBaseURL sets the backend base URL.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimRight(url, "/")
	return c
}

// WithTimeout sets the timeout of list requests. Streams are not affected.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithHTTPClient replaces both underlying HTTP clients.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CHAT
// =============================================================================

// ChatStream posts req and returns the event-stream body. The caller must
// close it. Reading the body is bounded by ctx.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if c.baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	body, err := json.Marshal(req.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathChat, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug("posting chat request",
		zap.String("url", httpReq.URL.String()),
		zap.String("model", req.Model),
		zap.String("pattern", req.PatternName),
		zap.String("session_id", req.SessionID),
		zap.String("input", util.TruncateRunes(req.UserInput, 80)),
	)

	start := time.Now()
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(PathChat, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Op: "POST " + PathChat, Err: err}
	}
	metrics.BackendRequests.WithLabelValues(PathChat, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	c.logger.Debug("chat stream opened",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.Body, nil
}

// statusError converts a non-2xx response.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	text := resp.Status
	// resp.Status is "404 Not Found"; keep the reason phrase only.
	if i := strings.IndexByte(text, ' '); i >= 0 {
		text = text[i+1:]
	}
	return &HTTPStatusError{
		Status:     resp.StatusCode,
		StatusText: text,
		Body:       string(data),
	}
}

// =============================================================================
// LISTS
// =============================================================================

// PatternNames returns the patterns known to the backend.
func (c *Client) PatternNames(ctx context.Context) ([]string, error) {
	return c.getNames(ctx, PathPatternNames)
}

// ModelNames returns the models known to the backend.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	return c.getNames(ctx, PathModelNames)
}

// ObsidianFiles returns the notes that can be attached as context.
func (c *Client) ObsidianFiles(ctx context.Context) ([]string, error) {
	return c.getNames(ctx, PathObsidianFiles)
}

func (c *Client) getNames(ctx context.Context, path string) ([]string, error) {
	if c.baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(path, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()
	metrics.BackendRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	c.logger.Debug("loaded names", zap.String("path", path), zap.Int("count", len(names)))
	return names, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, &NetworkError{Op: "read response", Err: err}
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
