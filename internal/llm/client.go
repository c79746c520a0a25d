// Package llm is a small multi-vendor chat completion client.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"

	"datahunt/internal/config"
)

// maxResponseSize caps completion bodies at 10MB.
const maxResponseSize = 10 * 1024 * 1024

// Request is a single completion call.
type Request struct {
	System   string
	Messages []Message
}

// Client sends completion requests to the configured provider, retrying
// transient failures.
type Client struct {
	provider    Provider
	model       string
	apiURL      string
	apiKey      string
	maxTokens   int
	temperature float64

	httpClient *http.Client
	executor   failsafe.Executor[string]
	logger     *slog.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig, opts ...ClientOption) (*Client, error) {
	provider, err := ProviderFor(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		provider:    provider,
		model:       cfg.Model,
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    newRetryExecutor(cfg.Retry),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newRetryExecutor(cfg config.RetryConfig) failsafe.Executor[string] {
	base := cfg.BaseDelay.Duration
	if base <= 0 {
		base = time.Second
	}
	maxDelay := cfg.MaxDelay.Duration
	if maxDelay < base {
		maxDelay = base
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := retrypolicy.NewBuilder[string]().
		HandleIf(func(_ string, err error) bool {
			return IsTransient(err)
		}).
		WithBackoff(base, maxDelay).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()
	return failsafe.With(policy)
}

// Provider reports the vendor name.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Complete returns the model's answer to req.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", NewFatalError(errors.New("completion request has no messages"))
	}
	body, err := c.provider.BuildRequestBody(c.model, req.System, req.Messages, c.temperature, c.maxTokens)
	if err != nil {
		return "", NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	requestID := uuid.NewString()
	start := time.Now()
	attempts := 0
	text, err := c.executor.WithContext(ctx).Get(func() (string, error) {
		attempts++
		return c.do(ctx, requestID, body)
	})

	logger := c.logger.With(
		"provider", c.provider.Name(),
		"model", c.model,
		"request_id", requestID,
		"attempts", attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		logger.Warn("llm completion failed", "error", err)
		return "", err
	}
	logger.Debug("llm completion", "response_chars", len(text))
	return text, nil
}

// Ask is a convenience for a single user prompt.
func (c *Client) Ask(ctx context.Context, system, prompt string) (string, error) {
	return c.Complete(ctx, Request{
		System:   system,
		Messages: []Message{{Role: "user", Content: prompt}},
	})
}

func (c *Client) do(ctx context.Context, requestID string, body []byte) (string, error) {
	endpoint := c.provider.BuildURL(c.apiURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	c.provider.SetHeaders(httpReq, c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", NewFatalError(fmt.Errorf("HTTP request failed: %w", err))
		}
		return "", NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(c.provider.Name(), resp.StatusCode, respBody)
	}

	text, err := c.provider.ParseResponse(respBody)
	if err != nil {
		return "", NewFatalError(err)
	}
	return text, nil
}
