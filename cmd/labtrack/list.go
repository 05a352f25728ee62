// ABOUTME: CLI command for listing the metric catalog and value series.
// ABOUTME: Shows definitions by default, aligned per-report values with --series.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/storage"
)

var listSeries bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List metrics",
	Long: `List a profile's metrics.

By default shows the metric catalog: canonical name, unit, and reference
range, in display order. With --series, shows every metric's values
across all reports on a shared date axis, the same shape the charts use.

EXAMPLES:

  labtrack list               # Metric catalog
  labtrack list --series      # Values across all reports
  labtrack list -p alice      # Another profile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := currentProfile()
		if err != nil {
			return err
		}

		if listSeries {
			return printSeries(profile.ID)
		}

		defs, err := repo.ListDefinitions(profile.ID)
		if err != nil {
			return fmt.Errorf("failed to list definitions: %w", err)
		}
		if len(defs) == 0 {
			fmt.Println("No metrics found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, d := range defs {
			unit := ""
			if d.Unit != nil {
				unit = *d.Unit
			}
			refs := ""
			if d.RefLow != nil && d.RefHigh != nil {
				refs = faint.Sprintf("  (%g-%g)", *d.RefLow, *d.RefHigh)
			}
			star := ""
			if d.Favorite {
				star = color.YellowString(" *")
			}
			fmt.Printf("%s %s%s%s\n", padRight(d.Name, 28), unit, refs, star)
		}
		return nil
	},
}

func printSeries(profileID uuid.UUID) error {
	set, err := storage.BuildSeries(repo, profileID)
	if err != nil {
		return fmt.Errorf("failed to build series: %w", err)
	}
	if len(set.Series) == 0 {
		fmt.Println("No metrics found.")
		return nil
	}

	faint := color.New(color.Faint)
	header := padRight("", 28)
	for _, d := range set.Dates {
		header += padRight(d, 12)
	}
	fmt.Println(faint.Sprint(header))

	for _, s := range set.Series {
		line := padRight(s.Name, 28)
		for _, v := range s.Values {
			if v == nil {
				line += padRight("-", 12)
			} else {
				line += padRight(fmt.Sprintf("%g", *v), 12)
			}
		}
		fmt.Println(line)
	}
	return nil
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	listCmd.Flags().BoolVar(&listSeries, "series", false, "show values across all reports")
	rootCmd.AddCommand(listCmd)
}
