// ABOUTME: Export and import functionality for lab data.
// ABOUTME: Supports JSON and YAML export plus dashboard-style series assembly.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for lab data. IDs are
// preserved so that a round trip through export/import (or a backend
// migration) keeps reports and observations linked.
type ExportData struct {
	Version    string          `json:"version" yaml:"version"`
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Tool       string          `json:"tool" yaml:"tool"`
	Profiles   []*ProfileData  `json:"profiles" yaml:"profiles"`
	Aliases    []*models.Alias `json:"aliases" yaml:"aliases"`
}

// ProfileData nests a profile's reports and definitions for export.
type ProfileData struct {
	Profile     *models.Profile            `json:"profile" yaml:"profile"`
	Reports     []*ReportData              `json:"reports" yaml:"reports"`
	Definitions []*models.MetricDefinition `json:"definitions" yaml:"definitions"`
}

// ReportData nests a report with its observations for export.
type ReportData struct {
	Report       *models.Report        `json:"report" yaml:"report"`
	Observations []*models.Observation `json:"observations" yaml:"observations"`
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData() (*ExportData, error) {
	return CollectData(d)
}

// CollectData assembles the export structure from any Repository.
func CollectData(repo Repository) (*ExportData, error) {
	profiles, err := repo.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "labtrack",
	}

	for _, p := range profiles {
		pd := &ProfileData{Profile: p}

		reports, err := repo.ListReports(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list reports: %w", err)
		}
		for _, r := range reports {
			obs, err := repo.ListObservations(r.ID)
			if err != nil {
				return nil, fmt.Errorf("list observations: %w", err)
			}
			pd.Reports = append(pd.Reports, &ReportData{Report: r, Observations: obs})
		}

		defs, err := repo.ListDefinitions(p.ID)
		if err != nil {
			return nil, fmt.Errorf("list definitions: %w", err)
		}
		pd.Definitions = defs

		data.Profiles = append(data.Profiles, pd)
	}

	aliases, err := repo.ListAliases()
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	data.Aliases = aliases

	return data, nil
}

// ImportData imports data from an export file, preserving IDs. Existing
// rows with the same natural key are left untouched.
func (d *DB) ImportData(data *ExportData) error {
	for _, pd := range data.Profiles {
		p := pd.Profile
		_, err := d.db.Exec(
			`INSERT INTO profiles (id, display_name, created_at) VALUES (?, ?, ?)
			 ON CONFLICT (display_name) DO NOTHING`,
			p.ID.String(), p.DisplayName, p.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("import profile %s: %w", p.DisplayName, err)
		}

		for _, rd := range pd.Reports {
			r := rd.Report
			_, err := d.db.Exec(
				`INSERT INTO reports (id, profile_id, sample_date, file_name, source, created_at)
				 VALUES (?, ?, ?, ?, ?, ?)
				 ON CONFLICT (profile_id, sample_date) DO NOTHING`,
				r.ID.String(), r.ProfileID.String(), r.SampleDate, r.FileName,
				r.Source, r.CreatedAt.Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("import report %s: %w", r.SampleDate, err)
			}
			if err := d.UpsertObservations(rd.Observations); err != nil {
				return fmt.Errorf("import observations: %w", err)
			}
		}

		if err := d.UpsertDefinitions(pd.Definitions); err != nil {
			return fmt.Errorf("import definitions: %w", err)
		}
	}

	for _, a := range data.Aliases {
		if _, err := d.InsertAlias(a.Alias, a.CanonicalName); err != nil {
			return fmt.Errorf("import alias %s: %w", a.Alias, err)
		}
	}

	return nil
}

// ExportJSON exports all data as JSON.
func (d *DB) ExportJSON() ([]byte, error) {
	data, err := d.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML.
func (d *DB) ExportYAML() ([]byte, error) {
	data, err := d.GetAllData()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}

// Series is one metric's values aligned against a shared date axis.
// A nil entry means the metric was absent from that report.
type Series struct {
	Name    string
	Unit    *string
	RefLow  *float64
	RefHigh *float64
	Values  []*float64
}

// SeriesSet is the chart-ready view of one profile's history: a shared
// sample-date axis plus one aligned series per metric.
type SeriesSet struct {
	Dates  []string
	Series []*Series
}

// BuildSeries assembles a profile's observations into aligned series.
// Metrics appear in definition display order; observed names without a
// definition follow alphabetically. Works against any Repository.
func BuildSeries(repo Repository, profileID uuid.UUID) (*SeriesSet, error) {
	reports, err := repo.ListReports(profileID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	set := &SeriesSet{}
	byName := make(map[string]*Series)
	valueAt := make(map[string]map[int]float64)

	for i, r := range reports {
		set.Dates = append(set.Dates, r.SampleDate)
		obs, err := repo.ListObservations(r.ID)
		if err != nil {
			return nil, fmt.Errorf("list observations: %w", err)
		}
		for _, o := range obs {
			if valueAt[o.Name] == nil {
				valueAt[o.Name] = make(map[int]float64)
			}
			valueAt[o.Name][i] = o.Value
		}
	}

	defs, err := repo.ListDefinitions(profileID)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	for _, def := range defs {
		if valueAt[def.Name] == nil {
			continue
		}
		s := &Series{Name: def.Name, Unit: def.Unit, RefLow: def.RefLow, RefHigh: def.RefHigh}
		byName[def.Name] = s
		set.Series = append(set.Series, s)
	}

	// Observed names with no definition yet, alphabetically
	var extras []string
	for name := range valueAt {
		if byName[name] == nil {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		s := &Series{Name: name}
		byName[name] = s
		set.Series = append(set.Series, s)
	}

	for name, s := range byName {
		s.Values = make([]*float64, len(set.Dates))
		for i, v := range valueAt[name] {
			v := v
			s.Values[i] = &v
		}
	}

	return set, nil
}
