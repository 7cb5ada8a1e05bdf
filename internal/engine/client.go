// Package engine is the client of the external simulation engine.
package engine

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

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/models"
)

const (
	simulatePath   = "/v1/simulate"
	defaultTimeout = 30 * time.Second
	maxBodySize    = 16 << 20 // 16 MB
	maxErrorBody   = 4 << 10
)

// Request is the body of a simulation call.
type Request struct {
	Accounts  []models.Account `json:"accounts"`
	Portfolio *string          `json:"portfolio"`
}

type response struct {
	Results *models.ScenarioResult `json:"results"`
}

// Client calls the simulation engine over HTTP. Calls are never retried.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds each call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the engine at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Simulate runs the engine on accounts. An empty portfolio is sent as null.
// Results are keyed by account name in the order the engine returned them.
func (c *Client) Simulate(ctx context.Context, accounts []models.Account, portfolio string) (*models.ScenarioResult, error) {
	req := Request{Accounts: accounts}
	if accounts == nil {
		req.Accounts = []models.Account{}
	}
	if portfolio != "" {
		req.Portfolio = &portfolio
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperr.Remote("engine: simulate", fmt.Errorf("encoding request: %w", err))
	}

	start := time.Now()
	data, err := c.post(ctx, simulatePath, body)
	if err != nil {
		c.logger.Error("engine: simulate failed",
			slog.Int("accounts", len(accounts)),
			slog.String("error", err.Error()))
		return nil, apperr.Remote("engine: simulate", err)
	}

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, apperr.Remote("engine: simulate", fmt.Errorf("parsing response: %w", err))
	}
	if resp.Results == nil {
		resp.Results = models.NewScenarioResult()
	}
	c.logger.Debug("engine: simulated",
		slog.Int("accounts", len(accounts)),
		slog.Int("results", resp.Results.Len()),
		slog.Duration("took", time.Since(start)))
	return resp.Results, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if m := strings.TrimSpace(string(msg)); m != "" {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, m)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return data, nil
}
