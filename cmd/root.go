// Package cmd implements the hermes-router command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfcunha/hermes-router/core"
	"nfcunha/hermes-router/utils/config"
)

var routesFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:           "hermes-router [command] [flags]",
	Short:         "Hermes Router: resolve request paths to backend services",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&routesFile, "routes", "", "route table YAML file (overrides HERMES_ROUTES_FILE)")
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment configuration and applies the --routes flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if routesFile != "" {
		cfg.Routes.File = routesFile
	}
	return cfg, nil
}

// buildRouter loads the configured route table and builds the router from it.
func buildRouter(cfg *config.Config, metrics *core.Metrics, logger zerolog.Logger) (*core.PathRouter, error) {
	table, err := config.LoadRouteTable(cfg.Routes.File)
	if err != nil {
		return nil, err
	}
	return table.Build(metrics, logger)
}
