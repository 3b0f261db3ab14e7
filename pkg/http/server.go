package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"chatlytics-server/pkg/analytics"
	"chatlytics-server/pkg/conversation"
	"chatlytics-server/pkg/errors"
	"chatlytics-server/pkg/metrics"
	"chatlytics-server/pkg/version"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// AnalysisEngine is the interface the HTTP layer needs from the orchestrator.
type AnalysisEngine interface {
	Analyze(ctx context.Context, conversationID string) (*analytics.Document, error)
	AnalyzeSnapshot(ctx context.Context, snap *conversation.Snapshot) *analytics.Document
}

// ConnectionChecker reports whether a messaging client currently holds a live
// connection.
type ConnectionChecker interface {
	IsConnected() bool
}

// HealthChecker reports whether a backing service can be reached.
type HealthChecker interface {
	Health() error
}

// Server represents the HTTP server for the analysis API, health checks and
// metrics
type Server struct {
	config     *Config
	logger     *logrus.Logger
	httpServer *http.Server
	mux        *http.ServeMux
	engine     AnalysisEngine
	store      analytics.ResultStore
	amqpClient ConnectionChecker
	database   HealthChecker
	startTime  time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, config *Config, engine AnalysisEngine, store analytics.ResultStore) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:    config,
		logger:    logger,
		engine:    engine,
		store:     store,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux

	// Wrap handlers with middleware that adds Server header
	addServerHeader := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", version.ServerHeader())
			next(w, r)
		}
	}

	// Register standard endpoints
	mux.HandleFunc("/health", addServerHeader(server.HealthHandler))
	mux.HandleFunc("/health/live", addServerHeader(server.LivenessHandler))
	mux.HandleFunc("/health/ready", addServerHeader(server.ReadinessHandler))

	// Add the metrics endpoint based on configuration
	if config.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			promHandler := promhttp.HandlerFor(
				registry,
				promhttp.HandlerOpts{
					EnableOpenMetrics: true,
					Registry:          registry,
				},
			)
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", version.ServerHeader())
				promHandler.ServeHTTP(w, r)
			})
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		} else {
			logger.Warn("Metrics registry not initialized, /metrics endpoint disabled")
		}
	} else {
		logger.Info("Metrics endpoint disabled")
	}

	mux.HandleFunc("/status", addServerHeader(server.statusHandler))

	// Register the analysis API
	if config.EnableAPI {
		mux.HandleFunc("/api/analyze", addServerHeader(server.AnalyzeHandler))
		mux.HandleFunc("/api/results/", addServerHeader(server.ResultHandler))
		mux.HandleFunc("/api/runs/", addServerHeader(server.RunsHandler))
		logger.Info("Analysis API endpoints enabled at /api")
	} else {
		logger.Info("Analysis API endpoints disabled")
	}

	// Create the HTTP server
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

// SetAMQPClient sets the AMQP client reference for health checks
func (s *Server) SetAMQPClient(client ConnectionChecker) {
	s.amqpClient = client
}

// SetDatabase sets the database reference for health checks
func (s *Server) SetDatabase(db HealthChecker) {
	s.database = db
}

// Handler returns the server's root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.Port).Info("Starting HTTP server")

	// Start serving in a goroutine
	go func() {
		s.logger.Infof("HTTP server listening on port %d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	// Verify that we can actually bind to the port
	go func() {
		time.Sleep(500 * time.Millisecond)

		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", s.config.Port), 2*time.Second)
		if err != nil {
			s.logger.WithError(err).Error("Could not connect to HTTP server")
		} else {
			s.logger.Info("HTTP server is running correctly")
			conn.Close()
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// statusHandler handles the /status endpoint
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.WithField("endpoint", "/status").Debug("Status endpoint accessed")

	status := map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"version":    version.Version,
		"started_at": s.startTime.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// ErrorResponse sends a standardized error response
func (s *Server) ErrorResponse(w http.ResponseWriter, err error) {
	errors.WriteError(w, err)
	s.logger.WithError(err).Warn("HTTP error response sent")
}
