// ABOUTME: CLI commands for inspecting lab reports.
// ABOUTME: Supports listing reports and showing one report's observations.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect lab reports",
	Long: `Inspect a profile's lab reports.

EXAMPLES:

  labtrack report list               # All reports for the profile
  labtrack report show 2025-03-20    # One report's observations`,
}

var reportListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := currentProfile()
		if err != nil {
			return err
		}

		reports, err := repo.ListReports(profile.ID)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		if len(reports) == 0 {
			fmt.Println("No reports found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range reports {
			obs, err := repo.ListObservations(r.ID)
			if err != nil {
				return fmt.Errorf("failed to list observations: %w", err)
			}
			file := ""
			if r.FileName != nil {
				file = faint.Sprintf(" (%s)", *r.FileName)
			}
			fmt.Printf("%s %s  %d metrics%s\n",
				faint.Sprint(r.ID.String()[:8]), r.SampleDate, len(obs), file)
		}
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <date>",
	Short: "Show one report's observations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := currentProfile()
		if err != nil {
			return err
		}

		reports, err := repo.ListReports(profile.ID)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		for _, r := range reports {
			if r.SampleDate != args[0] {
				continue
			}
			obs, err := repo.ListObservations(r.ID)
			if err != nil {
				return fmt.Errorf("failed to list observations: %w", err)
			}

			fmt.Printf("%s (%d metrics)\n", r.SampleDate, len(obs))
			for _, o := range obs {
				unit := ""
				if o.Unit != nil {
					unit = " " + *o.Unit
				}
				flag := ""
				if o.Flag != nil {
					flag = color.YellowString(" [%s]", string(*o.Flag))
				}
				refs := ""
				if o.RefLow != nil && o.RefHigh != nil {
					refs = color.New(color.Faint).Sprintf("  (%g-%g)", *o.RefLow, *o.RefHigh)
				}
				fmt.Printf("  %s  %g%s%s%s\n", padRight(o.Name, 28), o.Value, unit, flag, refs)
			}
			return nil
		}
		return fmt.Errorf("no report dated %s for %s", args[0], profile.DisplayName)
	},
}

func init() {
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportCmd)
}
