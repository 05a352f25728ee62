// ABOUTME: CLI command for moving data between storage backends.
// ABOUTME: Copies everything from one backend to the other, IDs preserved.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/config"
	"github.com/viziai/labtrack/internal/storage"
)

var (
	migrateFrom string
	migrateTo   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move data between storage backends",
	Long: `Copy all lab data from one storage backend to the other.

BACKENDS:

  sqlite   Local SQLite database (~/.local/share/labtrack/labtrack.db)
  charm    Charm KV, E2E encrypted and synced via Charm Cloud

Records are copied with their original IDs; records that already exist
in the destination are left untouched, so re-running a migration is
safe. The source is never modified.

EXAMPLES:

  labtrack migrate --from sqlite --to charm   # Move local data to Charm
  labtrack migrate --from charm --to sqlite   # And back`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrateFrom == migrateTo {
			return fmt.Errorf("source and destination backends are both %q", migrateFrom)
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		src, err := c.OpenBackend(migrateFrom)
		if err != nil {
			return fmt.Errorf("failed to open source backend: %w", err)
		}
		defer src.Close()

		dst, err := c.OpenBackend(migrateTo)
		if err != nil {
			return fmt.Errorf("failed to open destination backend: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateData(src, dst)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Migrated %s -> %s", migrateFrom, migrateTo)
		fmt.Printf("  %d profiles, %d reports, %d observations, %d definitions, %d aliases\n",
			summary.Profiles, summary.Reports, summary.Observations,
			summary.Definitions, summary.Aliases)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "sqlite", "source backend (sqlite or charm)")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "charm", "destination backend (sqlite or charm)")
	rootCmd.AddCommand(migrateCmd)
}
