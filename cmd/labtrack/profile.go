// ABOUTME: CLI commands for managing profiles.
// ABOUTME: Supports creating and listing profiles.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
	Long: `Manage profiles. Each profile keeps its own reports, observations,
and metric definitions; aliases are shared.

EXAMPLES:

  labtrack profile add alice    # Create a profile
  labtrack profile list         # List profiles`,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := repo.GetOrCreateProfile(args[0])
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		color.Green("✓ Profile %s", p.DisplayName)
		fmt.Printf("  %s\n", color.New(color.Faint).Sprint(p.ID.String()[:8]))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := repo.ListProfiles()
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, p := range profiles {
			reports, err := repo.ListReports(p.ID)
			if err != nil {
				return fmt.Errorf("failed to list reports: %w", err)
			}
			fmt.Printf("%s %s (%d reports)\n",
				faint.Sprint(p.ID.String()[:8]), p.DisplayName, len(reports))
		}
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileListCmd)
	rootCmd.AddCommand(profileCmd)
}
