// ABOUTME: CLI command for consolidating metric name variants.
// ABOUTME: Previews the rename plan by default, applies it with --apply.
package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/normalize"
)

var (
	normalizeApply  bool
	normalizeGroups string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Consolidate metric name variants",
	Long: `Consolidate metric name variants into canonical series.

Different labs report the same metric under different names (HGB,
Hemoglobin, HEMOGLOBIN). This command computes a raw -> canonical
mapping from a curated correction table plus structural rules
(abbreviation expansion, suffix promotion, case folding), then renames
observations, merges definitions, and records aliases.

By default only the plan is printed. Pass --apply to execute it.
Consolidation is idempotent: re-running after an apply changes nothing.

EXAMPLES:

  labtrack normalize                    # Preview the rename plan
  labtrack normalize --apply            # Apply it
  labtrack normalize --groups my.json   # Use a custom correction table`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := currentProfile()
		if err != nil {
			return err
		}

		n := normalize.New()
		groupsFile := normalizeGroups
		if groupsFile == "" {
			groupsFile = cfg.GroupsFile
		}
		if groupsFile != "" {
			groups, err := normalize.LoadGroups(groupsFile)
			if err != nil {
				return fmt.Errorf("failed to load groups file: %w", err)
			}
			n = normalize.NewWithGroups(groups)
		}

		if normalizeApply {
			result, err := n.Consolidate(repo, profile.ID)
			if err != nil {
				return fmt.Errorf("consolidation failed: %w", err)
			}

			color.Green("✓ Consolidated %s", profile.DisplayName)
			fmt.Printf("  %d series renamed, %d definitions merged, %d aliases recorded\n",
				result.Renamed, result.DefinitionsMerged, result.AliasesInserted)
			for _, w := range result.Warnings {
				color.Yellow("  ! %s", w)
			}
			return nil
		}

		// Preview: plan against the union of observed and defined names.
		names, err := repo.DistinctMetricNames(profile.ID)
		if err != nil {
			return fmt.Errorf("failed to list metric names: %w", err)
		}
		defs, err := repo.ListDefinitions(profile.ID)
		if err != nil {
			return fmt.Errorf("failed to list definitions: %w", err)
		}
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			seen[name] = true
		}
		refHigh := make(map[string]float64)
		for _, d := range defs {
			if !seen[d.Name] {
				names = append(names, d.Name)
				seen[d.Name] = true
			}
			if d.RefHigh != nil {
				refHigh[d.Name] = *d.RefHigh
			}
		}

		plan := n.Plan(names, refHigh)
		if len(plan.Mapping) == 0 && len(plan.Warnings) == 0 {
			fmt.Println("Nothing to consolidate.")
			return nil
		}

		if len(plan.Mapping) > 0 {
			fmt.Printf("Plan for %s (run with --apply to execute):\n", profile.DisplayName)
			raws := make([]string, 0, len(plan.Mapping))
			for raw := range plan.Mapping {
				raws = append(raws, raw)
			}
			sort.Strings(raws)
			for _, raw := range raws {
				fmt.Printf("  %s -> %s\n", raw, plan.Mapping[raw])
			}
		}
		for _, w := range plan.Warnings {
			color.Yellow("! %s", w)
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeApply, "apply", false, "apply the plan instead of previewing it")
	normalizeCmd.Flags().StringVar(&normalizeGroups, "groups", "", "custom metric correction table (JSON)")
	rootCmd.AddCommand(normalizeCmd)
}
