package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfcunha/hermes-router/core"
)

// ErrUnexpectedURL is returned by resolve when --expect does not match the generated URL.
var ErrUnexpectedURL = errors.New("generated URL does not match expected URL")

var expectURL string

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Show which service a path routes to and the URL built for it",
	Long: `Resolve a request path against the route table and print the selected
service, its port and base URL, the generated URL, and whether the path
matched an explicit route or was routed by inference.

With --expect, the command fails unless the generated URL equals the given URL.`,
	Example: "  hermes-router resolve /api/student/upload/answer-image --expect http://localhost:3004/api/student/upload/answer-image",
	Args:    cobra.ExactArgs(1),
	RunE:    runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&expectURL, "expect", "", "fail unless the generated URL equals this value")
	RootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rtr, err := buildRouter(cfg, nil, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	return printResolution(cmd.OutOrStdout(), rtr, args[0], expectURL)
}

// printResolution writes the diagnostic report for path. It returns the
// routing error, or ErrUnexpectedURL when expected is set and differs.
func printResolution(w io.Writer, rtr *core.PathRouter, path, expected string) error {
	fmt.Fprintf(w, "Path:            %s\n", path)

	res, err := rtr.Resolve(path)
	if err != nil {
		fmt.Fprintf(w, "Result:          %v\n", err)
		return err
	}

	fmt.Fprintf(w, "Service:         %s\n", res.Service.Name)
	fmt.Fprintf(w, "Port:            %d\n", res.Service.Port)
	fmt.Fprintf(w, "Base URL:        %s\n", res.Service.BaseURL())
	fmt.Fprintf(w, "Generated URL:   %s\n", res.URL)

	if match := rtr.GetMatchingServiceInfo(path); match != nil {
		fmt.Fprintf(w, "Explicit match:  %s (%s %s)\n", match.ServiceName, match.Rule.Match, match.Rule.Pattern)
	} else {
		fmt.Fprintf(w, "Explicit match:  none, used inference (%s)\n", res.Rule)
	}

	if expected == "" {
		return nil
	}

	fmt.Fprintf(w, "Expected URL:    %s\n", expected)
	if res.URL != expected {
		fmt.Fprintln(w, "FAILURE: generated URL does not match")
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedURL, res.URL, expected)
	}
	fmt.Fprintf(w, "SUCCESS: routed to port %d\n", res.Service.Port)
	return nil
}
