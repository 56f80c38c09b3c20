package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StreamDelta represents the delta content in a streaming response chunk
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamChoice represents a choice in a streaming response chunk
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason,omitempty"`
}

// StreamResponse represents a single chunk in the streaming response
type StreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// ChatCompletionStreaming sends a streaming chat completion request and
// concatenates all content deltas into one string. Callers hand the result
// to extraction the same way as a non-streaming response.
func (c *Client) ChatCompletionStreaming(ctx context.Context, messages []Message) (string, error) {
	rateLimitStart := time.Now()
	if err := c.rateLimiterPool.Wait(ctx, c.endpointID(), c.model.RateLimitPerMinute); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	c.collector.RecordRateLimiterWait(c.model.Name, time.Since(rateLimitStart))

	req := ChatCompletionRequest{
		Model:       c.model.Name,
		Messages:    messages,
		Temperature: c.model.Temperature,
		MaxTokens:   c.model.MaxOutputTokens,
		Stream:      true,
	}
	if c.model.UseJSONMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	requestStart := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.collector.RecordAPIRequest(c.model.Name, time.Since(requestStart), false)
		return "", &APIError{Message: fmt.Sprintf("request failed: %v", err), Retryable: true}
	}
	defer func() {
		if err := httpResp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	if httpResp.StatusCode != http.StatusOK {
		c.collector.RecordAPIRequest(c.model.Name, time.Since(requestStart), false)
		return "", &APIError{
			Message:    fmt.Sprintf("streaming request failed with status %d", httpResp.StatusCode),
			StatusCode: httpResp.StatusCode,
			Retryable:  isStatusCodeRetryable(httpResp.StatusCode),
		}
	}

	var content strings.Builder
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			break
		}

		var chunk StreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Malformed keep-alive or vendor extension chunks are skipped
			continue
		}
		if len(chunk.Choices) > 0 {
			content.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		c.collector.RecordAPIRequest(c.model.Name, time.Since(requestStart), false)
		return "", fmt.Errorf("failed to read stream: %w", err)
	}

	c.collector.RecordAPIRequest(c.model.Name, time.Since(requestStart), true)
	return content.String(), nil
}
