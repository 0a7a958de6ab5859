// Package server provides the HTTP server shared by every platoon process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/health"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/metrics"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Routes is implemented by each role's handler set.
type Routes interface {
	Register(r *mux.Router)
}

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	listener     net.Listener
	healthCheck  *health.HealthCheck
	errorHandler *apierrors.Handler
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, healthCheck *health.HealthCheck, m *metrics.Metrics, logger *zap.Logger) *Server {
	router := mux.NewRouter()

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		router:       router,
		httpServer:   httpServer,
		healthCheck:  healthCheck,
		errorHandler: apierrors.NewHandler(logger),
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
	}
}

// SetupRoutes configures the middleware chain, the health and metrics endpoints and the role routes.
func (s *Server) SetupRoutes(routes ...Routes) {
	middlewareChain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger, api.PathHealthCheck, api.PathTruckSpeed, "/health", "/ready", s.cfg.Metrics.Path),
		middleware.CORS([]string{"*"}),
	}
	if s.metrics != nil {
		middlewareChain = append(middlewareChain, metrics.MetricsMiddleware(s.metrics))
	}

	if s.cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(
			s.cfg.RateLimit.RequestsPerSecond,
			s.cfg.RateLimit.BurstSize,
			s.logger,
			api.PathHealthCheck, "/health", "/ready",
		)
		middlewareChain = append(middlewareChain, rateLimiter.Limit)
	}

	chain := middleware.Chain(middlewareChain...)
	s.router.Use(func(next http.Handler) http.Handler {
		return chain(next)
	})

	if s.healthCheck != nil {
		s.router.HandleFunc("/health", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
		s.router.HandleFunc("/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)
	}

	// Metrics share the main listener unless a dedicated port is configured
	if s.metrics != nil && s.cfg.Metrics.Enabled && s.cfg.Metrics.Port == 0 {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler()).Methods(http.MethodGet)
	}

	for _, r := range routes {
		r.Register(s.router)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "endpoint not found", r.Header.Get(middleware.HeaderRequestID))
	})

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrCodeInvalidRequest, "method not allowed", r.Header.Get(middleware.HeaderRequestID))
	})
}

// Listen binds the configured host and port and returns the address peers must use.
// With port 0 the kernel picks a free port.
func (s *Server) Listen() (string, error) {
	bind := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", bind, err)
	}
	s.listener = ln
	return s.Address(), nil
}

// Address returns the advertised host:port, or an empty string before Listen.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	port := s.listener.Addr().(*net.TCPAddr).Port
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(port))
}

// Start serves HTTP on the bound listener. It blocks until the server stops.
func (s *Server) Start() error {
	if s.listener == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
	}

	s.logger.Info("starting HTTP server", zap.String("address", s.Address()))

	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
