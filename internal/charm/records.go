// ABOUTME: Repository implementation over Charm KV using natural-key records.
// ABOUTME: Reports are keyed (profile, sample date); observations (report, name).
package charm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
	"github.com/viziai/labtrack/internal/storage"
)

var _ storage.Repository = (*Client)(nil)

func reportKey(profileID uuid.UUID, sampleDate string) string {
	return ReportPrefix + profileID.String() + ":" + sampleDate
}

func observationKey(reportID uuid.UUID, name string) string {
	return ObservationPrefix + reportID.String() + ":" + name
}

func definitionKey(profileID uuid.UUID, name string) string {
	return DefinitionPrefix + profileID.String() + ":" + name
}

// GetOrCreateProfile returns the profile with the given display name,
// creating it if it does not exist yet.
func (c *Client) GetOrCreateProfile(displayName string) (*models.Profile, error) {
	profiles, err := c.ListProfiles()
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.DisplayName == displayName {
			return p, nil
		}
	}

	p := models.NewProfile(displayName)
	data, err := marshalJSON(p)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	if err := c.set(ProfilePrefix+p.ID.String(), data); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by display name.
func (c *Client) ListProfiles() ([]*models.Profile, error) {
	allData, err := c.listByPrefix(ProfilePrefix)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var profiles []*models.Profile
	for _, data := range allData {
		p, err := unmarshalJSON[models.Profile](data)
		if err != nil {
			continue // Skip invalid entries
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].DisplayName < profiles[j].DisplayName
	})
	return profiles, nil
}

// GetOrCreateReport returns the report for (profile, sample date),
// creating it if none exists.
func (c *Client) GetOrCreateReport(profileID uuid.UUID, sampleDate string, fileName *string) (*models.Report, error) {
	data, found, err := c.get(reportKey(profileID, sampleDate))
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if found {
		return unmarshalJSON[models.Report](data)
	}

	r := models.NewReport(profileID, sampleDate)
	r.FileName = fileName
	payload, err := marshalJSON(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if err := c.set(reportKey(profileID, sampleDate), payload); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return r, nil
}

// ListReports returns all reports for a profile ordered by sample date.
func (c *Client) ListReports(profileID uuid.UUID) ([]*models.Report, error) {
	allData, err := c.listByPrefix(ReportPrefix + profileID.String() + ":")
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var reports []*models.Report
	for _, data := range allData {
		r, err := unmarshalJSON[models.Report](data)
		if err != nil {
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].SampleDate < reports[j].SampleDate
	})
	return reports, nil
}

// UpsertObservations writes a batch of observations keyed by
// (report, name). A failing row does not abort the rest of the batch.
func (c *Client) UpsertObservations(obs []*models.Observation) error {
	var errs []error
	for _, o := range obs {
		data, err := marshalJSON(o)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal observation %s: %w", o.Name, err))
			continue
		}
		if err := c.set(observationKey(o.ReportID, o.Name), data); err != nil {
			errs = append(errs, fmt.Errorf("upsert observation %s: %w", o.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ListObservations returns the observations of a report ordered by name.
func (c *Client) ListObservations(reportID uuid.UUID) ([]*models.Observation, error) {
	allData, err := c.listByPrefix(ObservationPrefix + reportID.String() + ":")
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}

	var obs []*models.Observation
	for _, data := range allData {
		o, err := unmarshalJSON[models.Observation](data)
		if err != nil {
			continue
		}
		obs = append(obs, o)
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].Name < obs[j].Name })
	return obs, nil
}

// MetricHistory returns all accepted values for a metric across a
// profile's reports, ordered by sample date.
func (c *Client) MetricHistory(profileID uuid.UUID, name string) ([]float64, error) {
	reports, err := c.ListReports(profileID)
	if err != nil {
		return nil, err
	}

	var values []float64
	for _, r := range reports {
		data, found, err := c.get(observationKey(r.ID, name))
		if err != nil {
			return nil, fmt.Errorf("metric history: %w", err)
		}
		if !found {
			continue
		}
		o, err := unmarshalJSON[models.Observation](data)
		if err != nil {
			continue
		}
		values = append(values, o.Value)
	}
	return values, nil
}

// DistinctMetricNames returns every metric name observed for a profile.
func (c *Client) DistinctMetricNames(profileID uuid.UUID) ([]string, error) {
	reports, err := c.ListReports(profileID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, r := range reports {
		obs, err := c.ListObservations(r.ID)
		if err != nil {
			return nil, err
		}
		for _, o := range obs {
			seen[o.Name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RenameMetric renames a profile's observations from one metric name to
// another. When a report already holds the target name, the source row
// is dropped and the canonical value wins.
func (c *Client) RenameMetric(profileID uuid.UUID, from, to string) (int, error) {
	reports, err := c.ListReports(profileID)
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, r := range reports {
		data, found, err := c.get(observationKey(r.ID, from))
		if err != nil {
			return renamed, fmt.Errorf("rename metric: %w", err)
		}
		if !found {
			continue
		}

		_, exists, err := c.get(observationKey(r.ID, to))
		if err != nil {
			return renamed, fmt.Errorf("rename metric: %w", err)
		}
		if !exists {
			o, err := unmarshalJSON[models.Observation](data)
			if err == nil {
				o.Name = to
				payload, merr := marshalJSON(o)
				if merr != nil {
					return renamed, fmt.Errorf("rename metric: %w", merr)
				}
				if err := c.set(observationKey(r.ID, to), payload); err != nil {
					return renamed, fmt.Errorf("rename metric: %w", err)
				}
				renamed++
			}
		}
		if err := c.delete(observationKey(r.ID, from)); err != nil {
			return renamed, fmt.Errorf("rename metric: %w", err)
		}
	}
	return renamed, nil
}

// GetDefinition returns the definition for (profile, name), or nil when
// none exists.
func (c *Client) GetDefinition(profileID uuid.UUID, name string) (*models.MetricDefinition, error) {
	data, found, err := c.get(definitionKey(profileID, name))
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	if !found {
		return nil, nil
	}
	return unmarshalJSON[models.MetricDefinition](data)
}

// ListDefinitions returns a profile's definitions in display order.
func (c *Client) ListDefinitions(profileID uuid.UUID) ([]*models.MetricDefinition, error) {
	allData, err := c.listByPrefix(DefinitionPrefix + profileID.String() + ":")
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}

	var defs []*models.MetricDefinition
	for _, data := range allData {
		def, err := unmarshalJSON[models.MetricDefinition](data)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].DisplayOrder != defs[j].DisplayOrder {
			return defs[i].DisplayOrder < defs[j].DisplayOrder
		}
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

// UpsertDefinitions writes a batch of definitions keyed by
// (profile, name). A failing row does not abort the rest of the batch.
func (c *Client) UpsertDefinitions(defs []*models.MetricDefinition) error {
	var errs []error
	for _, def := range defs {
		data, err := marshalJSON(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal definition %s: %w", def.Name, err))
			continue
		}
		if err := c.set(definitionKey(def.ProfileID, def.Name), data); err != nil {
			errs = append(errs, fmt.Errorf("upsert definition %s: %w", def.Name, err))
		}
	}
	return errors.Join(errs...)
}

// DeleteDefinition removes the definition for (profile, name).
func (c *Client) DeleteDefinition(profileID uuid.UUID, name string) error {
	return c.delete(definitionKey(profileID, name))
}

// InsertAlias records alias -> canonical unless the alias string is
// already claimed. Returns true when a new mapping was stored.
func (c *Client) InsertAlias(alias, canonicalName string) (bool, error) {
	_, found, err := c.get(AliasPrefix + alias)
	if err != nil {
		return false, fmt.Errorf("insert alias: %w", err)
	}
	if found {
		return false, nil
	}

	a := &models.Alias{Alias: alias, CanonicalName: canonicalName}
	data, err := marshalJSON(a)
	if err != nil {
		return false, fmt.Errorf("marshal alias: %w", err)
	}
	if err := c.set(AliasPrefix+alias, data); err != nil {
		return false, fmt.Errorf("insert alias: %w", err)
	}
	return true, nil
}

// ListAliases returns all alias mappings ordered by alias.
func (c *Client) ListAliases() ([]*models.Alias, error) {
	allData, err := c.listByPrefix(AliasPrefix)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}

	var aliases []*models.Alias
	for _, data := range allData {
		a, err := unmarshalJSON[models.Alias](data)
		if err != nil {
			continue
		}
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Alias < aliases[j].Alias })
	return aliases, nil
}

// GetAllData retrieves all data for export.
func (c *Client) GetAllData() (*storage.ExportData, error) {
	return storage.CollectData(c)
}

// ImportData imports exported data, preserving IDs. Rows whose natural
// key already exists are left untouched.
func (c *Client) ImportData(data *storage.ExportData) error {
	for _, pd := range data.Profiles {
		p := pd.Profile
		existing, err := c.ListProfiles()
		if err != nil {
			return err
		}
		skip := false
		for _, e := range existing {
			if e.DisplayName == p.DisplayName {
				skip = true
				break
			}
		}
		if !skip {
			payload, err := marshalJSON(p)
			if err != nil {
				return fmt.Errorf("import profile %s: %w", p.DisplayName, err)
			}
			if err := c.set(ProfilePrefix+p.ID.String(), payload); err != nil {
				return fmt.Errorf("import profile %s: %w", p.DisplayName, err)
			}
		}

		for _, rd := range pd.Reports {
			r := rd.Report
			key := reportKey(r.ProfileID, r.SampleDate)
			if _, found, err := c.get(key); err != nil {
				return fmt.Errorf("import report %s: %w", r.SampleDate, err)
			} else if !found {
				payload, err := marshalJSON(r)
				if err != nil {
					return fmt.Errorf("import report %s: %w", r.SampleDate, err)
				}
				if err := c.set(key, payload); err != nil {
					return fmt.Errorf("import report %s: %w", r.SampleDate, err)
				}
			}
			if err := c.UpsertObservations(rd.Observations); err != nil {
				return fmt.Errorf("import observations: %w", err)
			}
		}

		if err := c.UpsertDefinitions(pd.Definitions); err != nil {
			return fmt.Errorf("import definitions: %w", err)
		}
	}

	for _, a := range data.Aliases {
		if _, err := c.InsertAlias(a.Alias, a.CanonicalName); err != nil {
			return fmt.Errorf("import alias %s: %w", a.Alias, err)
		}
	}
	return nil
}
