// ABOUTME: Profile and report operations for SQLite storage.
// ABOUTME: Implements find-or-create semantics keyed by natural identity.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
)

// GetOrCreateProfile returns the profile with the given display name,
// creating it if it does not exist yet.
func (d *DB) GetOrCreateProfile(displayName string) (*models.Profile, error) {
	query := `
		SELECT id, display_name, created_at
		FROM profiles
		WHERE display_name = ?
	`
	p, err := d.scanProfile(d.db.QueryRow(query, displayName))
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p = models.NewProfile(displayName)
	_, err = d.db.Exec(
		`INSERT INTO profiles (id, display_name, created_at) VALUES (?, ?, ?)`,
		p.ID.String(), p.DisplayName, p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by display name.
func (d *DB) ListProfiles() ([]*models.Profile, error) {
	rows, err := d.db.Query(`
		SELECT id, display_name, created_at
		FROM profiles
		ORDER BY display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		var p models.Profile
		var idStr, createdAt string
		if err := rows.Scan(&idStr, &p.DisplayName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.ID, _ = uuid.Parse(idStr)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// GetOrCreateReport returns the report for (profile, sample date),
// creating it if none exists. A re-ingested file for the same date
// lands on the same report rather than producing a duplicate.
func (d *DB) GetOrCreateReport(profileID uuid.UUID, sampleDate string, fileName *string) (*models.Report, error) {
	query := `
		SELECT id, profile_id, sample_date, file_name, source, created_at
		FROM reports
		WHERE profile_id = ? AND sample_date = ?
	`
	r, err := d.scanReport(d.db.QueryRow(query, profileID.String(), sampleDate))
	if err == nil {
		return r, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get report: %w", err)
	}

	r = models.NewReport(profileID, sampleDate)
	r.FileName = fileName
	_, err = d.db.Exec(
		`INSERT INTO reports (id, profile_id, sample_date, file_name, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.ProfileID.String(), r.SampleDate, r.FileName,
		r.Source, r.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return r, nil
}

// ListReports returns all reports for a profile ordered by sample date
// ascending.
func (d *DB) ListReports(profileID uuid.UUID) ([]*models.Report, error) {
	rows, err := d.db.Query(`
		SELECT id, profile_id, sample_date, file_name, source, created_at
		FROM reports
		WHERE profile_id = ?
		ORDER BY sample_date
	`, profileID.String())
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := d.scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (d *DB) scanProfile(row *sql.Row) (*models.Profile, error) {
	var p models.Profile
	var idStr, createdAt string
	if err := row.Scan(&idStr, &p.DisplayName, &createdAt); err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(idStr)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (d *DB) scanReport(row *sql.Row) (*models.Report, error) {
	var r models.Report
	var idStr, profileID, createdAt string
	var fileName sql.NullString
	if err := row.Scan(&idStr, &profileID, &r.SampleDate, &fileName, &r.Source, &createdAt); err != nil {
		return nil, err
	}
	r.ID, _ = uuid.Parse(idStr)
	r.ProfileID, _ = uuid.Parse(profileID)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if fileName.Valid {
		r.FileName = &fileName.String
	}
	return &r, nil
}

func (d *DB) scanReportRows(rows *sql.Rows) (*models.Report, error) {
	var r models.Report
	var idStr, profileID, createdAt string
	var fileName sql.NullString
	if err := rows.Scan(&idStr, &profileID, &r.SampleDate, &fileName, &r.Source, &createdAt); err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	r.ID, _ = uuid.Parse(idStr)
	r.ProfileID, _ = uuid.Parse(profileID)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if fileName.Valid {
		r.FileName = &fileName.String
	}
	return &r, nil
}
