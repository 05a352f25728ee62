// ABOUTME: Data migration between lab storage backends.
// ABOUTME: Copies profiles, reports, observations, definitions, and aliases.

package storage

import (
	"fmt"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Profiles     int
	Reports      int
	Observations int
	Definitions  int
	Aliases      int
}

// MigrateData copies all data from src to dst storage. IDs are
// preserved so observations stay linked to their reports. The
// destination should be empty before calling this function; rows whose
// natural key already exists in dst are left untouched.
func MigrateData(src, dst Repository) (*MigrateSummary, error) {
	data, err := src.GetAllData()
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	if err := dst.ImportData(data); err != nil {
		return nil, fmt.Errorf("write destination: %w", err)
	}

	summary := &MigrateSummary{Aliases: len(data.Aliases)}
	for _, pd := range data.Profiles {
		summary.Profiles++
		summary.Definitions += len(pd.Definitions)
		for _, rd := range pd.Reports {
			summary.Reports++
			summary.Observations += len(rd.Observations)
		}
	}
	return summary, nil
}
