package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/core/domain/resolutionlog"
	"nfcunha/hermes-router/handler/middleware"
	"nfcunha/hermes-router/handler/route"
)

// Dependencies groups what RegisterRoutes wires into the handlers.
// Forward, Logs and Gatherer may be nil.
type Dependencies struct {
	Router   *core.PathRouter
	Forward  *core.ForwardService
	Logs     *resolutionlog.Repository
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// RegisterRoutes sets up all API routes under the /hermes context path,
// plus /metrics when a gatherer is provided.
func RegisterRoutes(engine *gin.Engine, deps Dependencies) {
	engine.Use(middleware.RequestID())

	if deps.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	hermes := engine.Group("/hermes")
	{
		hermes.GET("/health", handleHealth)

		routeHandler := route.NewHandler(deps.Router, deps.Forward, deps.Logs, deps.Logger)
		routeHandler.RegisterRoutes(hermes)
	}
}

// handleHealth handles health check requests.
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "hermes-router",
		"timestamp": time.Now().UTC(),
	})
}
