package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raaihank/jsonnymous/internal/config"
	"github.com/raaihank/jsonnymous/internal/engine"
	"github.com/raaihank/jsonnymous/internal/logger"
	"github.com/raaihank/jsonnymous/internal/security"
	"github.com/raaihank/jsonnymous/internal/websocket"
	"go.uber.org/zap"
)

// Version is stamped at build time
var Version = "0.1.0"

// Server exposes the engine operations over HTTP
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	engine  *engine.Engine
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *security.RateLimiter
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance around an engine
func New(cfg *config.Config, eng *engine.Engine, log *logger.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		engine:  eng,
		router:  mux.NewRouter(),
		wsHub:   websocket.NewHub(cfg.WebSocket, log.WithComponent("websocket").Logger),
		limiter: security.NewRateLimiter(cfg.RateLimit),
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.requestIDMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.wsHub.HandleWebSocket).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.corsMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.Use(s.bodyLimitMiddleware)

	routes := map[string]http.HandlerFunc{
		"/generate":     s.handleGenerate,
		"/generate-xml": s.handleGenerateXML,
		"/anonymize":    s.handleAnonymize,
		"/analyze":      s.handleAnalyze,
		"/random-json":  s.handleRandomJSON,
		"/random-xml":   s.handleRandomXML,
		"/xml-validate": s.handleXMLValidate,
		"/xml-path":     s.handleXMLPath,
	}
	for path, handler := range routes {
		api.HandleFunc(path, handler).Methods(http.MethodPost, http.MethodOptions)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the background workers and the HTTP listener
func (s *Server) Start() error {
	s.logger.Info("Starting jsonnymous server",
		zap.String("addr", s.server.Addr),
		zap.Bool("websocket", s.config.WebSocket.Enabled),
		zap.Bool("metrics", s.config.Metrics.Enabled),
		zap.Bool("rate_limit", s.config.RateLimit.Enabled),
	)

	go s.wsHub.Run(s.ctx)
	if s.config.RateLimit.Enabled {
		s.limiter.StartCleanupRoutine(s.ctx)
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server and background workers
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping jsonnymous server")
	defer s.cancel()
	return s.server.Shutdown(ctx)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "jsonnymous",
		"version":           Version,
		"detectors":         s.config.Privacy.Detectors,
		"consistent":        s.config.Privacy.Consistent,
		"max_count":         s.config.Generation.MaxCount,
		"rate_limit":        s.config.RateLimit.Enabled,
		"websocket_clients": s.wsHub.GetStats().ActiveConnections,
	})
}
