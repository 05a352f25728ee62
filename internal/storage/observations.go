// ABOUTME: Observation operations for SQLite storage.
// ABOUTME: Batched upserts keyed by (report_id, name), history and rename helpers.
package storage

import (
	"errors"
	"fmt"
	"time"

	"database/sql"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
)

// UpsertObservations writes a batch of observations. Each row is keyed
// by (report_id, name); ingesting the same report twice overwrites
// values in place instead of duplicating them. A failing row does not
// abort the rest of the batch; the errors are joined and returned after
// all rows were attempted.
func (d *DB) UpsertObservations(obs []*models.Observation) error {
	query := `
		INSERT INTO metrics (id, report_id, name, value, unit, flag, ref_low, ref_high, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_id, name) DO UPDATE SET
			value = excluded.value,
			unit = excluded.unit,
			flag = excluded.flag,
			ref_low = excluded.ref_low,
			ref_high = excluded.ref_high
	`
	var errs []error
	for _, o := range obs {
		var flag *string
		if o.Flag != nil {
			s := string(*o.Flag)
			flag = &s
		}
		_, err := d.db.Exec(query,
			o.ID.String(), o.ReportID.String(), o.Name, o.Value,
			o.Unit, flag, o.RefLow, o.RefHigh,
			o.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert observation %s: %w", o.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ListObservations returns the observations of a report ordered by name.
func (d *DB) ListObservations(reportID uuid.UUID) ([]*models.Observation, error) {
	rows, err := d.db.Query(`
		SELECT id, report_id, name, value, unit, flag, ref_low, ref_high, created_at
		FROM metrics
		WHERE report_id = ?
		ORDER BY name
	`, reportID.String())
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()
	return d.scanObservations(rows)
}

// MetricHistory returns all accepted values for a metric name across a
// profile's reports, ordered by sample date ascending.
func (d *DB) MetricHistory(profileID uuid.UUID, name string) ([]float64, error) {
	rows, err := d.db.Query(`
		SELECT m.value
		FROM metrics m
		JOIN reports r ON m.report_id = r.id
		WHERE r.profile_id = ? AND m.name = ?
		ORDER BY r.sample_date
	`, profileID.String(), name)
	if err != nil {
		return nil, fmt.Errorf("metric history: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// DistinctMetricNames returns every metric name observed for a profile.
func (d *DB) DistinctMetricNames(profileID uuid.UUID) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT m.name
		FROM metrics m
		JOIN reports r ON m.report_id = r.id
		WHERE r.profile_id = ?
		ORDER BY m.name
	`, profileID.String())
	if err != nil {
		return nil, fmt.Errorf("distinct metric names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// RenameMetric renames all observations of a profile from one metric
// name to another and returns the number of rows renamed. When a report
// already holds an observation under the target name, the source row is
// dropped so the rename cannot collide; the value already stored under
// the canonical name wins.
func (d *DB) RenameMetric(profileID uuid.UUID, from, to string) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("rename metric: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		DELETE FROM metrics
		WHERE name = ?
		  AND report_id IN (SELECT id FROM reports WHERE profile_id = ?)
		  AND report_id IN (SELECT report_id FROM metrics WHERE name = ?)
	`, from, profileID.String(), to)
	if err != nil {
		return 0, fmt.Errorf("rename metric: drop duplicates: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE metrics SET name = ?
		WHERE name = ?
		  AND report_id IN (SELECT id FROM reports WHERE profile_id = ?)
	`, to, from, profileID.String())
	if err != nil {
		return 0, fmt.Errorf("rename metric: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rename metric: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("rename metric: %w", err)
	}
	return int(affected), nil
}

func (d *DB) scanObservations(rows *sql.Rows) ([]*models.Observation, error) {
	var obs []*models.Observation
	for rows.Next() {
		var o models.Observation
		var idStr, reportID, createdAt string
		var unit, flag sql.NullString
		var refLow, refHigh sql.NullFloat64

		err := rows.Scan(&idStr, &reportID, &o.Name, &o.Value, &unit, &flag, &refLow, &refHigh, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}

		o.ID, _ = uuid.Parse(idStr)
		o.ReportID, _ = uuid.Parse(reportID)
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if unit.Valid {
			o.Unit = &unit.String
		}
		if flag.Valid {
			f := models.Flag(flag.String)
			o.Flag = &f
		}
		if refLow.Valid {
			o.RefLow = &refLow.Float64
		}
		if refHigh.Valid {
			o.RefHigh = &refHigh.Float64
		}
		obs = append(obs, &o)
	}
	return obs, rows.Err()
}
