package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides HTTP client functionality to communicate with a minesim daemon
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8080/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new minesim API client
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080/api"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// IsReachable checks if the daemon is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Daemon unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	isReachable := resp.StatusCode == http.StatusOK
	c.logger.Debug("Daemon reachability check", "reachable", isReachable, "status", resp.StatusCode)
	return isReachable
}

// Start begins mining; a running miner is left as is
func (c *Client) Start(ctx context.Context) error {
	c.logger.Debug("Starting miner")
	return c.doRequest(ctx, http.MethodPost, c.baseURL+"/start", nil, nil)
}

// Stop stops mining and waits up to wait for the loop to exit (server default when zero)
func (c *Client) Stop(ctx context.Context, wait time.Duration) error {
	u := c.baseURL + "/stop"
	if wait > 0 {
		u += "?wait=" + url.QueryEscape(wait.String())
	}
	c.logger.Debug("Stopping miner", "wait", wait)
	return c.doRequest(ctx, http.MethodPost, u, nil, nil)
}

// Status returns the miner status
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/status", nil, &st)
	return st, err
}

// Logs returns the most recent log lines
func (c *Client) Logs(ctx context.Context) ([]string, error) {
	var resp LogsResponse
	if err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/logs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lines, nil
}

// Difficulty returns the current difficulty setting
func (c *Client) Difficulty(ctx context.Context) (DifficultyResponse, error) {
	var resp DifficultyResponse
	err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/difficulty", nil, &resp)
	return resp, err
}

// SetDifficulty updates the difficulty setting
func (c *Client) SetDifficulty(ctx context.Context, n int) (DifficultyResponse, error) {
	data, err := json.Marshal(DifficultyRequest{Difficulty: n})
	if err != nil {
		return DifficultyResponse{}, fmt.Errorf("marshal request: %w", err)
	}
	var resp DifficultyResponse
	err = c.doRequest(ctx, http.MethodPost, c.baseURL+"/difficulty", data, &resp)
	return resp, err
}

// doRequest performs HTTP request with common error handling and decodes
// a successful body into out when out is non-nil.
func (c *Client) doRequest(ctx context.Context, method, target string, body []byte, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", target)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var errorResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResp); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	c.logger.Error("API request failed", "error", errorResp.Error, "status", resp.StatusCode)
	return fmt.Errorf("API error: %s", errorResp.Error)
}
