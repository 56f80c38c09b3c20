// Package server exposes the extraction pipeline and the configured model
// provider over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsonsift/jsonsift/internal/api"
	"github.com/jsonsift/jsonsift/internal/config"
	"github.com/jsonsift/jsonsift/internal/extract"
)

// Completer is the provider-facing surface the /api/complete handler needs.
// *api.Client satisfies it.
type Completer interface {
	ExtractCompletion(ctx context.Context, messages []api.Message) (extract.Result, string, bool, error)
}

// Server is the HTTP front end
type Server struct {
	engine    *gin.Engine
	server    *http.Server
	completer Completer
	logger    *slog.Logger
}

// New creates the HTTP server. completer may be nil, in which case
// /api/complete reports the provider as unavailable.
func New(cfg config.ServerConfig, completer Completer, logger *slog.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{
		engine:    engine,
		completer: completer,
		logger:    logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	h := newHandler(s.completer, s.logger)

	apiGroup := s.engine.Group("/api")
	{
		apiGroup.POST("/extract", h.Extract)
		apiGroup.POST("/complete", h.Complete)
	}

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Start begins serving and blocks until the listener fails or Shutdown runs
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
