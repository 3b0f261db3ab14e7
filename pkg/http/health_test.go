package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatlytics-server/pkg/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConnectionChecker struct{ connected bool }

func (c stubConnectionChecker) IsConnected() bool { return c.connected }

type stubHealthChecker struct{ err error }

func (c stubHealthChecker) Health() error { return c.err }

func doHealthCheck(t *testing.T, server *Server) (int, HealthStatus) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	return rec.Code, health
}

func TestHealthAllGood(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, analytics.NewInMemoryResultStore())
	server.SetAMQPClient(stubConnectionChecker{connected: true})
	server.SetDatabase(stubHealthChecker{})

	code, health := doHealthCheck(t, server)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Checks["engine"].Status)
	assert.Equal(t, "healthy", health.Checks["store"].Status)
	assert.Equal(t, "healthy", health.Checks["amqp"].Status)
	assert.Equal(t, "healthy", health.Checks["database"].Status)
	assert.Greater(t, health.System.GoRoutines, 0)
	assert.Greater(t, health.System.CPUCount, 0)
}

func TestHealthWithoutEngine(t *testing.T) {
	server := newTestServer(t, nil, nil)

	code, health := doHealthCheck(t, server)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy", health.Checks["engine"].Status)
	assert.Equal(t, "degraded", health.Checks["store"].Status)
}

func TestHealthDegradedDependencies(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, analytics.NewInMemoryResultStore())
	server.SetAMQPClient(stubConnectionChecker{connected: false})
	server.SetDatabase(stubHealthChecker{err: errors.New("connection refused")})

	code, health := doHealthCheck(t, server)

	// Degraded dependencies do not take the service down.
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "degraded", health.Checks["amqp"].Status)
	assert.Equal(t, "degraded", health.Checks["database"].Status)
	assert.Contains(t, health.Checks["database"].Message, "connection refused")
}

func TestLivenessHandler(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	ready := newTestServer(t, &stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	ready.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	notReady := newTestServer(t, nil, nil)
	rec = httptest.NewRecorder()
	notReady.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())
}
