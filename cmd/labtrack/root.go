// ABOUTME: Root Cobra command for labtrack CLI.
// ABOUTME: Handles config loading and storage lifecycle via PersistentPre/PostRunE.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/config"
	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
)

var (
	cfg         *config.Config
	repo        storage.Repository
	flagProfile string
)

var rootCmd = &cobra.Command{
	Use:   "labtrack",
	Short: "Lab report tracker with data-quality gates",
	Long: `Labtrack ingests AI-extracted lab report data, validates it against
each metric's history, and keeps one clean canonical series per metric.

WHAT IT DOES:

  Validation     New values deviating wildly from the historical median are
                 rejected (catches decimal-point and unit extraction errors).
  Reconciliation Reference ranges are compared across labs: small drift is
                 absorbed silently, suspicious jumps are rejected with a warning.
  Normalization  Name variants from different labs (HGB / Hemoglobin /
                 HEMOGLOBIN) are consolidated into one canonical series.

QUICK START:

  $ labtrack profile add alice              # Create a profile
  $ labtrack ingest report.json             # Ingest an extraction result
  $ labtrack ingest results/ --dry-run      # Preview a whole directory
  $ labtrack normalize                      # Preview name consolidation
  $ labtrack normalize --apply              # Apply it
  $ labtrack list                           # Metric catalog
  $ labtrack list --series                  # Values across all reports

BACKENDS:

  Data lives in SQLite at ~/.local/share/labtrack/labtrack.db by default.
  Set "backend": "charm" in the config to store in Charm KV instead
  (E2E encrypted, synced across devices). Move data between backends
  with 'labtrack migrate'.

MCP INTEGRATION:

  Run 'labtrack mcp' to start the Model Context Protocol server for use
  with MCP-compatible AI assistants:

  {
    "mcpServers": {
      "labtrack": { "command": "labtrack", "args": ["mcp"] }
    }
  }`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip storage init for commands that don't need it
		switch cmd.Name() {
		case "version", "help", "completion", "migrate":
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		repo, err = cfg.OpenStorage()
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			return repo.Close()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// currentProfile resolves the active profile from --profile, the config
// default, or "default", creating it on first use.
func currentProfile() (*models.Profile, error) {
	name := flagProfile
	if name == "" {
		name = cfg.GetDefaultProfile()
	}
	p, err := repo.GetOrCreateProfile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile %q: %w", name, err)
	}
	return p, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProfile, "profile", "p", "", "profile to operate on (default from config)")
}
