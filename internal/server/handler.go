package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsonsift/jsonsift/internal/api"
	"github.com/jsonsift/jsonsift/internal/extract"
	"github.com/jsonsift/jsonsift/internal/metrics"
)

type handler struct {
	completer Completer
	collector *metrics.Collector
	logger    *slog.Logger
}

func newHandler(completer Completer, logger *slog.Logger) *handler {
	return &handler{
		completer: completer,
		collector: metrics.NewCollector(),
		logger:    logger,
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

// Value carries no omitempty: a recovered JSON null is a real value and
// Found already signals presence.
type extractResponse struct {
	Found    bool   `json:"found"`
	Strategy string `json:"strategy,omitempty"`
	Value    any    `json:"value"`
}

// Extract recovers a structured value from posted text. Unparseable text is
// a normal outcome (found=false), never a server error.
func (h *handler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a text field"})
		return
	}

	start := time.Now()
	res, found := extract.Extract(req.Text)
	h.collector.RecordExtraction(string(res.Strategy), found, time.Since(start))

	if !found {
		c.JSON(http.StatusOK, extractResponse{Found: false})
		return
	}
	c.JSON(http.StatusOK, extractResponse{
		Found:    true,
		Strategy: string(res.Strategy),
		Value:    res.Value,
	})
}

type completeRequest struct {
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
}

type completeResponse struct {
	Raw      string `json:"raw"`
	Found    bool   `json:"found"`
	Strategy string `json:"strategy,omitempty"`
	Value    any    `json:"value"`
}

// Complete proxies a chat completion through the configured provider and
// returns the raw text together with the extraction outcome.
func (h *handler) Complete(c *gin.Context) {
	if h.completer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no model provider configured"})
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a prompt field"})
		return
	}

	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	res, raw, found, err := h.completer.ExtractCompletion(c.Request.Context(), messages)
	if err != nil {
		h.logger.Error("Completion failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp := completeResponse{Raw: raw, Found: found}
	if found {
		resp.Strategy = string(res.Strategy)
		resp.Value = res.Value
	}
	c.JSON(http.StatusOK, resp)
}
