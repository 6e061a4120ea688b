// Package rpc exposes the route engine over a JSON HTTP API.
package rpc

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var Logger zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	Logger = l
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Address               string
	AllowedOrigins        []string
	EnableMetrics         bool
	RatePerMinute         *int
	MaxConcurrentRequests *int
}

// DefaultServerConfig returns a default server configuration
func DefaultServerConfig() *ServerConfig {
	rateLimit := 0
	maxConcurrentRequests := 200
	return &ServerConfig{
		Address:               "localhost:8080",
		AllowedOrigins:        []string{"http://localhost:3000", "http://localhost:8080"},
		EnableMetrics:         true,
		RatePerMinute:         &rateLimit,
		MaxConcurrentRequests: &maxConcurrentRequests,
	}
}

// Server wraps the HTTP server and provides lifecycle management
type Server struct {
	config     *ServerConfig
	httpServer *http.Server
	mux        *chi.Mux
}

// NewServer creates the API server. The httprate limit here is a blunt
// per-IP guard for the whole surface; the per-route quota limiter inside the
// handlers is the one carrying the business limits.
func NewServer(config *ServerConfig, handlers *Handlers) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	mux := chi.NewMux()

	// Add zerolog middleware (replaces chi's default logger)
	mux.Use(zerologMiddleware)

	// Add recovery middleware with zerolog
	mux.Use(zerologRecoverer)

	// Standard middleware
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Compress(5))
	mux.Use(middleware.Timeout(60 * time.Second))
	mux.Use(realIPMiddleware)

	// Rate limiting
	if config.RatePerMinute != nil && *config.RatePerMinute > 0 {
		mux.Use(httprate.LimitByIP(*config.RatePerMinute, 1*time.Minute))
	}
	if config.MaxConcurrentRequests != nil && *config.MaxConcurrentRequests > 0 {
		mux.Use(middleware.Throttle(*config.MaxConcurrentRequests))
	}

	if config.EnableMetrics {
		mux.Handle("/server/metrics", promhttp.Handler())
		Logger.Info().Msg("Metrics endpoint enabled: /server/metrics")
	}

	// Health check endpoint
	mux.HandleFunc("/server/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"route-engine"}`))
	})

	// Readiness probe
	mux.HandleFunc("/server/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	// Route and quote responses are time-sensitive and must never be cached
	// by browsers or CDNs.
	mux.Group(func(r chi.Router) {
		r.Use(noCacheMiddleware)
		r.Post("/v1/route/plan", handlers.handlePlan)
		r.Post("/v1/route/execute", handlers.handleExecute)
		r.Post("/v1/route/status", handlers.handleStatus)
		r.Get("/v1/route/status", handlers.handleStatus)
	})

	mux.Get("/v1/networks", handlers.handleNetworks)
	mux.Get("/v1/assets", handlers.handleAssets)

	corsHandler := newCORSHandler(config.AllowedOrigins, mux)

	// HTTP server with h2c support (HTTP/2 without TLS)
	httpServer := &http.Server{
		Addr:              config.Address,
		Handler:           h2c.NewHandler(corsHandler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		config:     config,
		httpServer: httpServer,
		mux:        mux,
	}
}

// Start begins serving requests without TLS
func (s *Server) Start() error {
	s.logServerInfo("http")
	return s.httpServer.ListenAndServe()
}

// StartTLS begins serving requests with TLS
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logServerInfo("https")
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// logServerInfo logs server startup information
func (s *Server) logServerInfo(protocol string) {
	Logger.Info().
		Str("address", s.config.Address).
		Str("protocol", protocol).
		Msg("Route Engine API starting")

	Logger.Info().Msg("Available endpoints:")
	Logger.Info().Msg("\tPlan: POST /v1/route/plan")
	Logger.Info().Msg("\tExecute: POST /v1/route/execute")
	Logger.Info().Msg("\tStatus: POST|GET /v1/route/status")
	Logger.Info().Msg("\tDiscovery: GET /v1/networks, GET /v1/assets")
	Logger.Info().Msg("\tHealth: /server/health")
	Logger.Info().Msg("\tReady: /server/ready")

	if s.config.EnableMetrics {
		Logger.Info().Msg("\tMetrics: /server/metrics")
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down API server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	Logger.Info().Msg("Server shutdown complete")
	return nil
}
