package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfcunha/hermes-router/core"
)

var routesCmd = &cobra.Command{
	Use:     "routes",
	Aliases: []string{"table"},
	Short:   "Print the route table",
	Args:    cobra.NoArgs,
	RunE:    runRoutes,
}

func init() {
	RootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rtr, err := buildRouter(cfg, nil, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	printRouteTable(cmd.OutOrStdout(), rtr)
	return nil
}

func printRouteTable(w io.Writer, rtr *core.PathRouter) {
	reg := rtr.Registry()

	fmt.Fprintln(w, "Services")
	services := tablewriter.NewWriter(w)
	services.SetHeader([]string{"Name", "Port", "Base URL"})
	services.SetAutoWrapText(false)
	for _, svc := range reg.Services() {
		services.Append([]string{svc.Name, strconv.Itoa(svc.Port), svc.BaseURL()})
	}
	services.Render()

	fmt.Fprintf(w, "\nRoutes (%s)\n", reg.Strategy())
	routes := tablewriter.NewWriter(w)
	routes.SetHeader([]string{"Pattern", "Match", "Service"})
	routes.SetAutoWrapText(false)
	for _, rule := range reg.Rules() {
		routes.Append([]string{rule.Pattern, string(rule.Match), rule.Service})
	}
	routes.Render()

	fmt.Fprintln(w, "\nInference (in order)")
	inference := tablewriter.NewWriter(w)
	inference.SetHeader([]string{"#", "Rule", "Service"})
	inference.SetAutoWrapText(false)
	for i, rule := range rtr.InferenceRules() {
		inference.Append([]string{strconv.Itoa(i + 1), rule.Describe(), rule.Service()})
	}
	inference.Render()
}
