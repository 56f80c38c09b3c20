// Package api implements an OpenAI-compatible chat, embeddings and
// verification client used against OpenRouter, LiteLLM gateways and Ollama's
// /v1 surface, plus a keyed registry of clients per API key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsonsift/jsonsift/internal/config"
	"github.com/jsonsift/jsonsift/internal/extract"
	"github.com/jsonsift/jsonsift/internal/metrics"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests
	DefaultHTTPTimeout = 120 * time.Second
	// DefaultBaseRetryDelay is the base delay for exponential backoff
	DefaultBaseRetryDelay = 2 * time.Second
	// RateLimitBackoffMultiplier is the multiplier for rate limit backoff (3^n)
	RateLimitBackoffMultiplier = 3
)

// Client talks to one OpenAI-compatible endpoint with one credential
type Client struct {
	baseURL         string
	apiKey          string
	model           config.ModelConfig
	httpClient      *http.Client
	rateLimiterPool *RateLimiterPool
	collector       *metrics.Collector
	logger          *slog.Logger
	baseRetryDelay  time.Duration
}

// NewClient creates a new API client for baseURL authenticated with apiKey.
// An empty apiKey is allowed for local endpoints such as Ollama.
func NewClient(baseURL, apiKey string, model config.ModelConfig, logger *slog.Logger) *Client {
	timeout := time.Duration(model.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = DefaultHTTPTimeout
	}

	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		model:           model,
		httpClient:      &http.Client{Timeout: timeout},
		rateLimiterPool: NewRateLimiterPool(),
		collector:       metrics.NewCollector(),
		logger:          logger,
		baseRetryDelay:  DefaultBaseRetryDelay,
	}
}

// Close releases pooled connections. The client must not be used afterwards.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// endpointID identifies this endpoint+model pair for rate limiting
func (c *Client) endpointID() string {
	return fmt.Sprintf("%s:%s", c.baseURL, c.model.Name)
}

// ChatCompletion sends a chat completion request and retries retryable
// failures with exponential backoff. Rate limit responses back off harder.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (*ChatCompletionResponse, error) {
	rateLimitStart := time.Now()
	if err := c.rateLimiterPool.Wait(ctx, c.endpointID(), c.model.RateLimitPerMinute); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.collector.RecordRateLimiterWait(c.model.Name, time.Since(rateLimitStart))

	req := ChatCompletionRequest{
		Model:       c.model.Name,
		Messages:    messages,
		Temperature: c.model.Temperature,
		MaxTokens:   c.model.MaxOutputTokens,
	}
	if c.model.UseJSONMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	var lastErr error
	for attempt := 0; attempt <= c.model.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseRetryDelay
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.StatusCode == http.StatusTooManyRequests {
				backoff = time.Duration(math.Pow(RateLimitBackoffMultiplier, float64(attempt))) * c.baseRetryDelay
			}
			jitter := time.Duration(float64(backoff) * 0.1 * (2*float64(time.Now().UnixNano()%100)/100 - 1))

			c.logger.Warn("Retrying API request",
				"attempt", attempt,
				"max_retries", c.model.MaxRetries,
				"backoff", backoff+jitter,
				"model", c.model.Name)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		requestStart := time.Now()
		resp, err := c.doRequest(ctx, req)
		c.collector.RecordAPIRequest(c.model.Name, time.Since(requestStart), err == nil)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !c.isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// CompletionText returns just the assistant message content of a completion.
// Streaming mode is used when configured, since some gateways time out long
// non-streaming requests.
func (c *Client) CompletionText(ctx context.Context, messages []Message) (string, error) {
	if c.model.UseStreaming {
		return c.ChatCompletionStreaming(ctx, messages)
	}

	resp, err := c.ChatCompletion(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractCompletion runs a chat completion and recovers a structured value
// from the response text. The bool result mirrors extract.Extract: false
// means the model replied but no JSON value could be recovered, which is an
// expected outcome and not an error.
func (c *Client) ExtractCompletion(ctx context.Context, messages []Message) (extract.Result, string, bool, error) {
	text, err := c.CompletionText(ctx, messages)
	if err != nil {
		return extract.Result{}, "", false, err
	}

	start := time.Now()
	res, found := extract.Extract(text)
	c.collector.RecordExtraction(string(res.Strategy), found, time.Since(start))

	return res, text, found, nil
}

// VerifyKey checks that the credential and endpoint work by requesting a
// one-token completion. The error message distinguishes bad credentials,
// unknown models and connectivity problems.
func (c *Client) VerifyKey(ctx context.Context) error {
	req := ChatCompletionRequest{
		Model:     c.model.Name,
		Messages:  []Message{{Role: "user", Content: "test"}},
		MaxTokens: 1,
	}

	_, err := c.doRequest(ctx, req)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return fmt.Errorf("invalid API key: %w", err)
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("model not found: %s: %w", c.model.Name, err)
		}
	}
	return fmt.Errorf("connection error: %w", err)
}

func (c *Client) doRequest(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	respBody, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned in response")
	}

	return &resp, nil
}

// post sends a JSON body to path and returns the raw response body, mapping
// failures to APIError with retryability classified by status code.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	} else {
		c.logger.Debug("API request without key", "endpoint", c.baseURL+path)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &APIError{
			Message:    fmt.Sprintf("request failed: %v", err),
			StatusCode: 0,
			Retryable:  true,
		}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		isRetryable := isStatusCodeRetryable(httpResp.StatusCode)

		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, &APIError{
				Message:    errResp.Error.Message,
				StatusCode: httpResp.StatusCode,
				Type:       errResp.Error.Type,
				Code:       errResp.Error.Code,
				Retryable:  isRetryable,
			}
		}

		return nil, &APIError{
			Message:    fmt.Sprintf("API request failed with status %d: %s", httpResp.StatusCode, string(respBody)),
			StatusCode: httpResp.StatusCode,
			Retryable:  isRetryable,
		}
	}

	return respBody, nil
}

func (c *Client) isRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

func isStatusCodeRetryable(statusCode int) bool {
	// Retry on rate limits and server errors
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusInternalServerError ||
		statusCode == http.StatusBadGateway ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout
}

// APIError represents an error returned by the API
type APIError struct {
	Message    string
	StatusCode int
	Type       string
	Code       string
	Retryable  bool
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}
