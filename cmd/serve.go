package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/core/domain/resolutionlog"
	"nfcunha/hermes-router/database"
	"nfcunha/hermes-router/handler"
	"nfcunha/hermes-router/utils/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the routing API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Configure(cfg.Log)
	log.Info().
		Str("server", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Str("routes_file", cfg.Routes.File).
		Str("db_path", cfg.Database.Path).
		Msg("Starting Hermes Router")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := core.NewMetrics(registry)

	rtr, err := buildRouter(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	log.Info().
		Int("services", len(rtr.Registry().Services())).
		Int("routes", len(rtr.Registry().Rules())).
		Int("inference_rules", len(rtr.InferenceRules())).
		Str("match_strategy", string(rtr.Registry().Strategy())).
		Msg("Route table loaded")

	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.IsDebugMode() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.IsDebugMode() {
		engine.Use(logger.GinLogger(log))
	}

	prx := core.NewProxyService(cfg.Forward.Timeout, log)
	handler.RegisterRoutes(engine, handler.Dependencies{
		Router:   rtr,
		Forward:  core.NewForwardService(rtr, prx, log),
		Logs:     resolutionlog.NewRepository(db),
		Gatherer: registry,
		Logger:   log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Hermes Router listening, API available at /hermes")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	log.Info().Msg("Shutting down router")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("Router stopped gracefully")
	return nil
}
