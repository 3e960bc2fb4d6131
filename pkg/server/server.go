package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/keel/pkg/config"
	"mercator-hq/keel/pkg/gate"
	"mercator-hq/keel/pkg/telemetry/metrics"
	"mercator-hq/keel/pkg/trace/replay"

	anchorstorage "mercator-hq/keel/pkg/anchor/storage"
	tracestorage "mercator-hq/keel/pkg/trace/storage"
)

// Server is the Keel HTTP server.
type Server struct {
	config   *config.ServerConfig
	engine   *gate.Engine
	anchors  anchorstorage.Storage
	traces   tracestorage.Storage
	replayer *replay.Replayer

	metricsPath    string
	metricsHandler http.Handler
	replayMetrics  *metrics.ReplayMetrics

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new server over the assembled components.
func NewServer(cfg *config.ServerConfig, engine *gate.Engine, anchors anchorstorage.Storage, traces tracestorage.Storage, replayer *replay.Replayer) *Server {
	return &Server{
		config:       cfg,
		engine:       engine,
		anchors:      anchors,
		traces:       traces,
		replayer:     replayer,
		shutdownChan: make(chan struct{}),
	}
}

// SetMetrics mounts the Prometheus scrape endpoint at the given path and
// wires replay observations. Safe to leave unset.
func (s *Server) SetMetrics(path string, collector *metrics.Collector) {
	s.metricsPath = path
	s.metricsHandler = collector.Handler()
	s.replayMetrics = collector.Replay()
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/gate/evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /v1/gate/reframe", s.handleReframe)
	mux.HandleFunc("POST /v1/gate/acknowledge", s.handleAcknowledge)
	mux.HandleFunc("GET /v1/gate/logs", s.handleListLogs)
	mux.HandleFunc("GET /v1/gate/logs/{id}", s.handleGetLog)
	mux.HandleFunc("GET /v1/gate/replay/{id}", s.handleReplay)

	mux.HandleFunc("POST /v1/anchors", s.handleCreateAnchor)
	mux.HandleFunc("GET /v1/anchors", s.handleListAnchors)
	mux.HandleFunc("GET /v1/anchors/{id}", s.handleGetAnchor)
	mux.HandleFunc("PUT /v1/anchors/{id}", s.handleUpdateAnchor)
	mux.HandleFunc("DELETE /v1/anchors/{id}", s.handleArchiveAnchor)

	mux.HandleFunc("POST /v1/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /v1/profiles", s.handleListProfiles)
	mux.HandleFunc("GET /v1/profiles/{id}", s.handleGetProfile)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.metricsHandler != nil {
		mux.Handle("GET "+s.metricsPath, s.metricsHandler)
	}

	// Request IDs are assigned before logging so access log lines carry
	// them; recovery wraps everything.
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(handler)

	return handler
}
