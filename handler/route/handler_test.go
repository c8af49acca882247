package route

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/core/domain/resolutionlog"
	"nfcunha/hermes-router/database"
	"nfcunha/hermes-router/utils/config"
)

// setupRouter builds the engine over the built-in route table and a temp database.
func setupRouter(t *testing.T) (*gin.Engine, *resolutionlog.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	table, err := config.DefaultRouteTable()
	require.NoError(t, err)
	rtr, err := table.Build(nil, zerolog.Nop())
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logs := resolutionlog.NewRepository(db)

	fwd := core.NewForwardService(rtr, core.NewProxyService(time.Second, zerolog.Nop()), zerolog.Nop())

	engine := gin.New()
	NewHandler(rtr, fwd, logs, zerolog.Nop()).RegisterRoutes(engine.Group("/hermes"))
	return engine, logs
}

func doGet(engine *gin.Engine, target string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestResolve_AnswerImageUpload(t *testing.T) {
	engine, logs := setupRouter(t)

	w, body := doGet(engine, "/hermes/routes/resolve?path="+url.QueryEscape("/api/student/upload/answer-image"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "upload-service", body["service"])
	assert.EqualValues(t, 3004, body["port"])
	assert.Equal(t, "http://localhost:3004/api/student/upload/answer-image", body["url"])
	assert.Equal(t, "inferred", body["method"])

	entries, err := logs.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "upload-service", entries[0].ServiceName)
	assert.Equal(t, "inferred", entries[0].Method)
}

func TestResolve_NoRoute(t *testing.T) {
	engine, logs := setupRouter(t)

	w, body := doGet(engine, "/hermes/routes/resolve?path=/")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no route found", body["error"])

	entries, err := logs.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resolutionlog.MethodNone, entries[0].Method)
}

func TestResolve_MissingPath(t *testing.T) {
	engine, _ := setupRouter(t)

	w, _ := doGet(engine, "/hermes/routes/resolve")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doGet(engine, "/hermes/routes/match")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatch(t *testing.T) {
	engine, _ := setupRouter(t)

	w, body := doGet(engine, "/hermes/routes/match?path=/api/upload/avatar")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "upload-service", body["service_name"])

	svcConfig, ok := body["config"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3004, svcConfig["port"])

	w, body = doGet(engine, "/hermes/routes/match?path=/api/student/upload/answer-image")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["matched"])
}

func TestListRoutes(t *testing.T) {
	engine, _ := setupRouter(t)

	w, body := doGet(engine, "/hermes/routes")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "longest_prefix", body["match_strategy"])
	assert.Len(t, body["services"], 6)
	assert.NotEmpty(t, body["routes"])

	inference, ok := body["inference"].([]any)
	require.True(t, ok)
	first := inference[0].(map[string]any)
	assert.Equal(t, "upload-service", first["service"])
}

func TestLogs(t *testing.T) {
	engine, _ := setupRouter(t)

	for i := 0; i < 3; i++ {
		doGet(engine, "/hermes/routes/resolve?path=/api/exams/"+strconv.Itoa(i))
	}
	doGet(engine, "/hermes/routes/resolve?path=/api/upload/x")

	w, body := doGet(engine, "/hermes/routes/logs?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])

	w, body = doGet(engine, "/hermes/routes/logs?service=exam-service")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["count"])

	w, body = doGet(engine, "/hermes/routes/logs?service=auth-service")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []any{}, body["logs"])
}

func TestForward_NoRouteIs404(t *testing.T) {
	engine, _ := setupRouter(t)

	w, body := doGet(engine, "/hermes/forward/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no route found", body["error"])
}

func TestForward_BackendDownIs502(t *testing.T) {
	// Built-in table points at localhost:3001-3006; nothing listens there in tests.
	engine, _ := setupRouter(t)

	w, body := doGet(engine, "/hermes/forward/api/auth/login")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "auth-service", body["service"])

	w, body = doGet(engine, "/hermes/routes/logs?service=auth-service")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, body["count"])
	entry := body["logs"].([]any)[0].(map[string]any)
	assert.Contains(t, entry["error_message"], "backend unavailable")
}

// setupBackendRouter routes /api/upload to backend and returns the engine and log.
func setupBackendRouter(t *testing.T, backend *httptest.Server) (*gin.Engine, *resolutionlog.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	u, err := url.Parse(backend.URL)
	require.NoError(t, err)
	table, err := config.ParseRouteTable(strings.NewReader(`
base_host: ` + u.Hostname() + `
services:
  - {name: upload-service, port: ` + u.Port() + `}
routes:
  - {pattern: /api/upload, service: upload-service}
`))
	require.NoError(t, err)
	rtr, err := table.Build(nil, zerolog.Nop())
	require.NoError(t, err)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logs := resolutionlog.NewRepository(db)

	fwd := core.NewForwardService(rtr, core.NewProxyService(5*time.Second, zerolog.Nop()), zerolog.Nop())

	engine := gin.New()
	NewHandler(rtr, fwd, logs, zerolog.Nop()).RegisterRoutes(engine.Group("/hermes"))
	return engine, logs
}

func TestForward_EncodedPathReachesBackendUnchanged(t *testing.T) {
	var gotPath, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	engine, _ := setupBackendRouter(t, backend)

	w, _ := doGet(engine, "/hermes/forward/api/upload/a%3Fb%2Fc?x=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "/api/upload/a%3Fb%2Fc", gotPath)
	assert.Equal(t, "x=1", gotQuery)
}

func TestForward_TruncatedBackendIs502WithJSON(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: image/png\r\nContent-Length: 100\r\n\r\n")
		_ = buf.Flush()
	}))
	defer backend.Close()

	engine, logs := setupBackendRouter(t, backend)

	w, body := doGet(engine, "/hermes/forward/api/upload/image.png")
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.NotEqual(t, "100", w.Header().Get("Content-Length"))
	assert.Equal(t, "upload-service", body["service"])

	entries, err := logs.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "upload-service", entries[0].ServiceName)
	assert.Equal(t, "explicit", entries[0].Method)
	assert.NotEmpty(t, entries[0].ErrorMessage)
}

func TestNewHandler_WithoutForward(t *testing.T) {
	gin.SetMode(gin.TestMode)
	table, err := config.DefaultRouteTable()
	require.NoError(t, err)
	rtr, err := table.Build(nil, zerolog.Nop())
	require.NoError(t, err)

	engine := gin.New()
	NewHandler(rtr, nil, nil, zerolog.Nop()).RegisterRoutes(engine.Group("/hermes"))

	w, _ := doGet(engine, "/hermes/forward/api/auth/login")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := doGet(engine, "/hermes/routes/logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["count"])
}
