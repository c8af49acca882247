// Package route provides HTTP handlers for inspecting routes and forwarding requests.
package route

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/core/domain/resolutionlog"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// Handler exposes the path router over HTTP.
type Handler struct {
	router  *core.PathRouter
	forward *core.ForwardService
	logs    *resolutionlog.Repository
	logger  zerolog.Logger
}

// NewHandler creates a new route handler. logs may be nil.
func NewHandler(rtr *core.PathRouter, fwd *core.ForwardService, logs *resolutionlog.Repository, logger zerolog.Logger) *Handler {
	return &Handler{
		router:  rtr,
		forward: fwd,
		logs:    logs,
		logger:  logger.With().Str("component", "route-handler").Logger(),
	}
}

// RegisterRoutes registers the routing endpoints.
// Routes:
//   - GET /routes          - Route table: services, rules, inference rules
//   - GET /routes/resolve  - Resolve ?path= to a service and URL
//   - GET /routes/match    - Explicit-rule lookup only for ?path=
//   - GET /routes/logs     - Recent resolutions, optional ?service= and ?limit=
//   - ANY /forward/*path   - Resolve path and forward the request to it
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	routes := router.Group("/routes")
	{
		routes.GET("", h.handleListRoutes)
		routes.GET("/resolve", h.handleResolve)
		routes.GET("/match", h.handleMatch)
		routes.GET("/logs", h.handleLogs)
	}

	if h.forward != nil {
		router.Any("/forward/*path", h.handleForward)
	}
}

type inferenceView struct {
	Service string `json:"service"`
	Rule    string `json:"rule"`
}

// handleListRoutes returns the static route table.
func (h *Handler) handleListRoutes(c *gin.Context) {
	reg := h.router.Registry()

	inference := make([]inferenceView, 0)
	for _, rule := range h.router.InferenceRules() {
		inference = append(inference, inferenceView{Service: rule.Service(), Rule: rule.Describe()})
	}

	c.JSON(http.StatusOK, gin.H{
		"match_strategy": reg.Strategy(),
		"services":       reg.Services(),
		"routes":         reg.Rules(),
		"inference":      inference,
	})
}

// handleResolve resolves ?path= and reports the service, port, URL and method.
// Responds 404 when no route is found.
func (h *Handler) handleResolve(c *gin.Context) {
	path, ok := requirePath(c)
	if !ok {
		return
	}

	res, err := h.router.Resolve(path)
	h.record(path, res, err)
	if err != nil {
		writeRouteError(c, path, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":    res.Path,
		"service": res.Service.Name,
		"port":    res.Service.Port,
		"url":     res.URL,
		"method":  res.Method,
		"rule":    res.Rule,
	})
}

// handleMatch reports whether an explicit rule matches ?path=.
// An absent match is not an error: it means inference would be used.
func (h *Handler) handleMatch(c *gin.Context) {
	path, ok := requirePath(c)
	if !ok {
		return
	}

	match := h.router.GetMatchingServiceInfo(path)
	if match == nil {
		c.JSON(http.StatusOK, gin.H{
			"path":    path,
			"matched": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":         path,
		"matched":      true,
		"service_name": match.ServiceName,
		"config":       match.Config,
		"rule":         match.Rule,
	})
}

// handleLogs returns recent resolutions.
func (h *Handler) handleLogs(c *gin.Context) {
	limit := defaultLogLimit
	if limitParam := c.Query("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = min(parsed, maxLogLimit)
		}
	}

	var (
		entries []resolutionlog.Entry
		err     error
	)
	if svc := c.Query("service"); svc != "" {
		entries, err = h.logs.ByService(svc, limit)
	} else {
		entries, err = h.logs.Recent(limit)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read resolution logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve resolution logs"})
		return
	}
	if entries == nil {
		entries = []resolutionlog.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  entries,
		"count": len(entries),
	})
}

// handleForward resolves the wildcard path and proxies the request.
// Pattern: /forward/{path}
// Example: /hermes/forward/api/student/upload/answer-image -> http://localhost:3004/api/student/upload/answer-image
func (h *Handler) handleForward(c *gin.Context) {
	path := c.Param("path") // decoded, includes the leading slash
	rawPath := forwardRawPath(c)

	res, err := h.forward.Forward(c, path, rawPath)
	h.record(path, res, err)
	if err == nil {
		return
	}
	if errors.Is(err, core.ErrNoRouteFound) {
		writeRouteError(c, path, err)
		return
	}

	if c.Writer.Written() {
		// Response already streaming; nothing sensible left to send.
		h.logger.Warn().Err(err).Str("path", path).Msg("Forward failed after response started")
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{
		"error":   "bad gateway",
		"service": res.Service.Name,
		"message": err.Error(),
	})
}

// forwardRawPath returns the escaped request path with the route prefix
// removed, e.g. /api/upload/a%3Fb for /hermes/forward/api/upload/a%3Fb.
func forwardRawPath(c *gin.Context) string {
	prefix := strings.TrimSuffix(c.FullPath(), "/*path")
	return strings.TrimPrefix(c.Request.URL.EscapedPath(), prefix)
}

// record stores the outcome of a resolve or forward call. Unroutable paths
// are stored without a service; other errors keep the resolution.
func (h *Handler) record(path string, res core.Resolution, err error) {
	var entry resolutionlog.Entry
	switch {
	case err == nil:
		entry = resolutionlog.NewEntry(path, res.Service.Name, string(res.Method), res.URL, "")
	case errors.Is(err, core.ErrNoRouteFound):
		entry = resolutionlog.NewEntry(path, "", resolutionlog.MethodNone, "", err.Error())
	default:
		entry = resolutionlog.NewEntry(path, res.Service.Name, string(res.Method), res.URL, err.Error())
	}
	if logErr := h.logs.Create(entry); logErr != nil {
		h.logger.Warn().Err(logErr).Str("path", path).Msg("Failed to record resolution")
	}
}

func requirePath(c *gin.Context) (string, bool) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'path' is required"})
		return "", false
	}
	return path, true
}

// writeRouteError maps NoRouteFound to 404 and anything else to 500.
func writeRouteError(c *gin.Context, path string, err error) {
	if errors.Is(err, core.ErrNoRouteFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "no route found",
			"path":    path,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
