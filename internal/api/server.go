// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/portfolio-reconciler/internal/circuitbreaker"
	"github.com/portfolio-reconciler/internal/logging"
	"github.com/portfolio-reconciler/internal/service"
	"github.com/portfolio-reconciler/internal/types"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the interface for portfolio service operations
type PortfolioServiceInterface interface {
	GetPortfolio(ctx context.Context, input *service.GetPortfolioInput) (*types.PortfolioResult, error)
	ComputeFromSnapshot(ctx context.Context, input *service.ComputeInput) (*types.PortfolioResult, error)
	InvalidatePortfolio(ctx context.Context, investor string) error
}

// sourceStatsProvider is implemented by services that guard a record source
type sourceStatsProvider interface {
	SourceStats() *circuitbreaker.Stats
}

type metricsProvider interface {
	Metrics() *service.MetricsSnapshot
}

// HealthCheck probes one dependency for the health endpoint
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	portfolioService PortfolioServiceInterface
	healthChecks     []HealthCheck
	logger           *logging.Logger
	config           *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxBodyBytes      int64
	RequestsPerSecond int
	Burst             int
}

const defaultMaxBodyBytes = 8 << 20

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, portfolioService PortfolioServiceInterface, logger *logging.Logger, checks ...HealthCheck) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	s := &Server{
		router:           mux.NewRouter(),
		portfolioService: portfolioService,
		healthChecks:     checks,
		logger:           logger,
		config:           config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// order matters: the request id must exist before anything logs
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	// mux skips middleware for unmatched routes
	s.router.MethodNotAllowedHandler = RequestIDMiddleware(s.logger)(CORSMiddleware(http.HandlerFunc(handleMethodNotAllowed)))
	s.router.NotFoundHandler = RequestIDMiddleware(s.logger)(CORSMiddleware(http.HandlerFunc(handleNotFound)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/investors/{identity}/portfolio", s.handleGetPortfolio).Methods(http.MethodGet)
	s.router.HandleFunc("/api/investors/{identity}/portfolio/cache", s.handleInvalidatePortfolio).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/portfolio/compute", s.handleComputePortfolio).Methods(http.MethodPost)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", map[string]interface{}{
		"method": r.Method,
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth reports the state of every registered dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(s.healthChecks))
	for _, hc := range s.healthChecks {
		if err := hc.Check(ctx); err != nil {
			components[hc.Name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[hc.Name] = "healthy"
	}

	body := map[string]interface{}{
		"status":     "healthy",
		"service":    "portfolio-reconciler",
		"components": components,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if provider, ok := s.portfolioService.(sourceStatsProvider); ok {
		body["recordSource"] = provider.SourceStats()
	}
	if provider, ok := s.portfolioService.(metricsProvider); ok {
		body["metrics"] = provider.Metrics()
	}

	respondJSON(w, status, body)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
