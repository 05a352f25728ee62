// ABOUTME: CLI command for ingesting extraction-result JSON files.
// ABOUTME: Handles file and directory arguments, dedup cache, and dry-run preview.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/viziai/labtrack/internal/cache"
	"github.com/viziai/labtrack/internal/extract"
	"github.com/viziai/labtrack/internal/ingest"
)

var (
	ingestDryRun       bool
	ingestForce        bool
	ingestMaxDeviation float64
)

var ingestCmd = &cobra.Command{
	Use:     "ingest <file|dir> [file|dir...]",
	Aliases: []string{"i"},
	Short:   "Ingest extraction results",
	Long: `Ingest one or more extraction-result JSON files into a profile.

Each file is the JSON output of the PDF extraction pipeline: a sample
date plus a map of test name to value, unit, flag, and reference range.
Directories are scanned for *.json files.

Already-ingested files are skipped via a content-hash cache; use --force
to re-ingest (the report is found by sample date, so values are updated
in place).

Every metric is validated against the profile's history before it is
stored. Rejections and reference-range warnings are printed per file and
never abort the run.

EXAMPLES:

  labtrack ingest report.json               # Ingest one file
  labtrack ingest results/                  # Ingest a directory
  labtrack ingest results/ --dry-run        # Preview without writing
  labtrack ingest report.json --force       # Re-ingest a cached file
  labtrack ingest report.json -p alice      # Ingest into a profile`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectJSONFiles(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .json files found in arguments")
		}

		profile, err := currentProfile()
		if err != nil {
			return err
		}

		seen, err := cache.Open(cfg.CacheDir())
		if err != nil {
			return fmt.Errorf("failed to open ingest cache: %w", err)
		}
		defer seen.Close()

		orch := ingest.New(repo)
		maxDev := ingestMaxDeviation
		if maxDev == 0 {
			maxDev = cfg.MaxDeviationPct
		}
		if maxDev > 0 {
			orch = orch.WithMaxDeviation(maxDev)
		}

		faint := color.New(color.Faint)
		ingested, skipped := 0, 0

		for _, path := range files {
			hash, err := cache.HashFile(path)
			if err != nil {
				color.Red("✗ %s: %v", path, err)
				continue
			}

			if !ingestForce {
				if _, ok, err := seen.Seen(hash); err == nil && ok {
					faint.Printf("- %s (already ingested)\n", path)
					skipped++
					continue
				}
			}

			result, err := extract.Load(path)
			if err != nil {
				color.Red("✗ %s: %v", path, err)
				continue
			}

			if ingestDryRun {
				date := "(no sample date)"
				if result.SampleDate != nil {
					date = *result.SampleDate
				}
				fmt.Printf("would ingest %s: %s, %d tests\n", path, date, result.Tests.Len())
				continue
			}

			summary, err := orch.Ingest(context.Background(), profile.ID, result, filepath.Base(path))
			if err != nil {
				color.Red("✗ %s: %v", path, err)
				continue
			}

			if err := seen.Put(hash, summary.ReportID); err != nil {
				color.Yellow("! %s: failed to record in cache: %v", path, err)
			}

			color.Green("✓ %s", path)
			fmt.Printf("  %s %s: %d stored, %d skipped\n",
				faint.Sprint(summary.ReportID.String()[:8]),
				summary.SampleDate, summary.Inserted, summary.Skipped)
			for _, w := range summary.Warnings {
				color.Yellow("  ! %s", w)
			}
			ingested++
		}

		if !ingestDryRun {
			fmt.Printf("\n%d file(s) ingested into %s, %d skipped\n", ingested, profile.DisplayName, skipped)
		}
		return nil
	},
}

// collectJSONFiles expands file and directory arguments into a sorted
// list of .json files.
func collectJSONFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(arg, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "preview without writing anything")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest files already in the cache")
	ingestCmd.Flags().Float64Var(&ingestMaxDeviation, "max-deviation", 0, "allowed deviation from historical median in percent (default 500)")
	rootCmd.AddCommand(ingestCmd)
}
