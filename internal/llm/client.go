package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const chatCompletionsPath = "/v1/chat/completions"

// maxErrorBody bounds how much of a failed upstream body is read.
const maxErrorBody = 64 << 10

var (
	// ErrMissingAPIKey is returned when the client has no bearer credential.
	ErrMissingAPIKey  = errors.New("missing API key")
	errUpstreamStatus = errors.New("completion request failed")
)

// Completer issues a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Ensure Client implements Completer.
var _ Completer = (*Client)(nil)

// ClientConfig holds configuration for the completion client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout of zero leaves the upstream call unbounded apart from the request context.
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	http    *http.Client
	chatURL string
	apiKey  string
	model   string
	logger  *slog.Logger
}

// NewClient creates a completion client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		chatURL: base + chatCompletionsPath,
		apiKey:  cfg.APIKey,
		model:   model,
		logger:  logger,
	}
}

// Model returns the model identifier sent with requests that do not set one.
func (c *Client) Model() string {
	return c.model
}

// Complete posts req and decodes the completion.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close completion response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}

	c.logger.Info("Completion received",
		"model", out.Model,
		"choices", len(out.Choices),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

// statusError builds an error from a non-2xx response, preferring the
// upstream error.message when the body carries one.
func statusError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w with status %d and unreadable body: %v", errUpstreamStatus, resp.StatusCode, err)
	}
	if msg := gjson.GetBytes(data, "error.message"); msg.Exists() && msg.String() != "" {
		return fmt.Errorf("%w with status %d: %s", errUpstreamStatus, resp.StatusCode, msg.String())
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("%w with status %d: %s", errUpstreamStatus, resp.StatusCode, text)
}
