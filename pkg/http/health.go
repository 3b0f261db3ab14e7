package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"chatlytics-server/pkg/version"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system resource information
type SystemInfo struct {
	GoRoutines int    `json:"goroutines"`
	MemoryMB   uint64 `json:"memory_mb"`
	CPUCount   int    `json:"cpu_count"`
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   version.Version,
		Checks:    make(map[string]CheckResult),
	}

	// Check the analysis engine
	if s.engine != nil {
		health.Checks["engine"] = CheckResult{
			Status:  "healthy",
			Message: "Analysis engine is running",
		}
	} else {
		health.Checks["engine"] = CheckResult{
			Status:  "unhealthy",
			Message: "Analysis engine not initialized",
		}
		health.Status = "unhealthy"
	}

	// Check the result store
	if s.store != nil {
		health.Checks["store"] = CheckResult{
			Status:  "healthy",
			Message: "Result store operational",
		}
	} else {
		health.Checks["store"] = CheckResult{
			Status:  "degraded",
			Message: "No result store configured, results are not cached",
		}
	}

	// Check AMQP if configured
	if s.amqpClient != nil {
		// Safely call IsConnected with panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					health.Checks["amqp"] = CheckResult{
						Status:  "degraded",
						Message: "AMQP client error",
					}
				}
			}()

			if s.amqpClient.IsConnected() {
				health.Checks["amqp"] = CheckResult{
					Status:  "healthy",
					Message: "AMQP connected",
				}
			} else {
				health.Checks["amqp"] = CheckResult{
					Status:  "degraded",
					Message: "AMQP disconnected",
				}
			}
		}()
	}

	// Check database connectivity if available
	if s.database != nil {
		if err := s.database.Health(); err != nil {
			health.Checks["database"] = CheckResult{
				Status:  "degraded",
				Message: fmt.Sprintf("Database unhealthy: %v", err),
			}
		} else {
			health.Checks["database"] = CheckResult{
				Status:  "healthy",
				Message: "Database operational",
			}
		}
	}

	// System information
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	health.System.GoRoutines = runtime.NumGoroutine()
	health.System.MemoryMB = m.Alloc / 1024 / 1024
	health.System.CPUCount = runtime.NumCPU()

	// Log detailed health checks if requested
	if r.URL.Query().Get("detailed") == "true" {
		s.logger.WithFields(map[string]interface{}{
			"health_status": health.Status,
			"checks":        health.Checks,
			"duration":      time.Since(startTime).String(),
		}).Debug("Detailed health check performed")
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(health)
}

// LivenessHandler is a simple liveness check for orchestration systems.
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadinessHandler checks that the essential services are ready to serve.
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
