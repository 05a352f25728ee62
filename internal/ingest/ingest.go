// ABOUTME: Ingestion orchestrator: runs extracted reports through the data-quality gate.
// ABOUTME: Validates values against history, reconciles reference ranges, batches writes.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/extract"
	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
	"github.com/viziai/labtrack/internal/validate"
)

// Orchestrator ingests extraction results for a profile. The storage
// handle is injected so tests can run against a throwaway backend.
type Orchestrator struct {
	repo            storage.Repository
	maxDeviationPct float64
}

// New creates an Orchestrator with the default deviation threshold.
func New(repo storage.Repository) *Orchestrator {
	return &Orchestrator{repo: repo, maxDeviationPct: validate.DefaultMaxDeviationPct}
}

// WithMaxDeviation overrides the validator's deviation threshold.
func (o *Orchestrator) WithMaxDeviation(pct float64) *Orchestrator {
	o.maxDeviationPct = pct
	return o
}

// Summary reports what one ingestion run did. Warnings is the only
// place rejections surface; a bad metric never fails the run.
type Summary struct {
	ReportID   uuid.UUID
	SampleDate string
	Inserted   int
	Skipped    int
	Warnings   []string
}

// Ingest stores one extraction result for a profile. The report row is
// found or created by (profile, sample date); each metric is validated
// against the profile's history and reconciled against the canonical
// definitions, in the order the extraction lists them. Accepted
// observations and definition updates are written in batches at the
// end, so cancelling between metrics just yields a smaller batch.
func (o *Orchestrator) Ingest(ctx context.Context, profileID uuid.UUID, result *extract.Result, fileName string) (*Summary, error) {
	if result.SampleDate == nil {
		return nil, fmt.Errorf("extraction has no sample date")
	}

	var fn *string
	if fileName != "" {
		fn = &fileName
	}
	report, err := o.repo.GetOrCreateReport(profileID, *result.SampleDate, fn)
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}

	summary := &Summary{ReportID: report.ID, SampleDate: report.SampleDate}

	// One definitions read up front; reconciliation works against this
	// snapshot and the dirty entries are written back in one batch.
	defs, err := o.repo.ListDefinitions(profileID)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defByName := make(map[string]*models.MetricDefinition, len(defs))
	nextOrder := 0
	for _, def := range defs {
		defByName[def.Name] = def
		if def.DisplayOrder >= nextOrder {
			nextOrder = def.DisplayOrder + 1
		}
	}

	var queued []*models.Observation
	dirty := make(map[string]*models.MetricDefinition)

	for _, name := range result.Tests.Names() {
		if ctx.Err() != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("ingestion aborted: %v", ctx.Err()))
			break
		}
		test, _ := result.Tests.Get(name)

		var history []float64
		if test.Value.Valid {
			history, err = o.repo.MetricHistory(profileID, name)
			if err != nil {
				summary.Skipped++
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: history lookup failed: %v", name, err))
				continue
			}
		}

		res := validate.MetricValue(name, test.Value, history, o.maxDeviationPct)
		if !res.Valid {
			summary.Skipped++
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", name, res.Reason))
			continue
		}

		obs := models.NewObservation(report.ID, name, test.Value.Float64)
		if test.Unit != nil {
			obs.WithUnit(*test.Unit)
		}
		if test.Flag != nil && models.IsValidFlag(*test.Flag) {
			obs.WithFlag(models.Flag(*test.Flag))
		}
		obs.WithRefRange(test.RefLow.Ptr(), test.RefHigh.Ptr())
		queued = append(queued, obs)
		summary.Inserted++

		def := defByName[name]
		changed := false
		if def == nil {
			def = models.NewMetricDefinition(profileID, name)
			def.DisplayOrder = nextOrder
			nextOrder++
			defByName[name] = def
			changed = true
		}
		if def.Unit == nil && test.Unit != nil {
			def.Unit = test.Unit
			changed = true
		}

		lowRes := validate.ReferenceChange(def.RefLow, test.RefLow, "ref_low")
		if lowRes.Warning != "" {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", name, lowRes.Warning))
		}
		if lowRes.ShouldUpdate && test.RefLow.Valid {
			def.RefLow = test.RefLow.Ptr()
			changed = true
		}

		highRes := validate.ReferenceChange(def.RefHigh, test.RefHigh, "ref_high")
		if highRes.Warning != "" {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %s", name, highRes.Warning))
		}
		if highRes.ShouldUpdate && test.RefHigh.Valid {
			def.RefHigh = test.RefHigh.Ptr()
			changed = true
		}

		if changed {
			dirty[name] = def
		}
	}

	if len(queued) > 0 {
		if err := o.repo.UpsertObservations(queued); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("observation write: %v", err))
		}
	}
	if len(dirty) > 0 {
		updates := make([]*models.MetricDefinition, 0, len(dirty))
		for _, name := range result.Tests.Names() {
			if def, ok := dirty[name]; ok {
				updates = append(updates, def)
			}
		}
		if err := o.repo.UpsertDefinitions(updates); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("definition write: %v", err))
		}
	}

	return summary, nil
}
