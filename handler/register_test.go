package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/handler/middleware"
	"nfcunha/hermes-router/utils/config"
)

func setupEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := prometheus.NewRegistry()
	metrics := core.NewMetrics(registry)

	table, err := config.DefaultRouteTable()
	require.NoError(t, err)
	rtr, err := table.Build(metrics, zerolog.Nop())
	require.NoError(t, err)

	engine := gin.New()
	RegisterRoutes(engine, Dependencies{
		Router:   rtr,
		Gatherer: registry,
		Logger:   zerolog.Nop(),
	})
	return engine
}

func TestHealth(t *testing.T) {
	engine := setupEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hermes/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	engine := setupEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/hermes/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	engine := setupEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hermes/routes/resolve?path=/api/student/upload/answer-image", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body,
		`hermes_route_resolutions_total{method="inferred",service="upload-service"} 1`), body)
}
