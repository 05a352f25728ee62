// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio-based MCP server over the configured backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant
integration. The server communicates via stdin/stdout and exposes the
configured storage backend read-only plus value validation.

CONFIGURATION:

  {
    "mcpServers": {
      "labtrack": {
        "command": "labtrack",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_profiles      List all profiles
  list_reports       List a profile's reports
  metric_series      One metric's values across all reports
  list_definitions   Metric catalog for a profile
  validate_value     Check a candidate value against history

AVAILABLE RESOURCES:

  labtrack://reports/recent    Last 10 reports across profiles
  labtrack://metrics/catalog   All definitions per profile with aliases`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(repo)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			cancel()
		}()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
