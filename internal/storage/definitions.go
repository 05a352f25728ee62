// ABOUTME: Metric definition and alias operations for SQLite storage.
// ABOUTME: Definitions are keyed (profile_id, name); aliases are globally unique.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
)

// GetDefinition returns the definition for (profile, name), or nil when
// none exists yet.
func (d *DB) GetDefinition(profileID uuid.UUID, name string) (*models.MetricDefinition, error) {
	row := d.db.QueryRow(`
		SELECT profile_id, name, unit, ref_low, ref_high, display_order, favorite, updated_at
		FROM metric_definitions
		WHERE profile_id = ? AND name = ?
	`, profileID.String(), name)

	def, err := scanDefinition(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get definition: %w", err)
	}
	return def, nil
}

// ListDefinitions returns a profile's definitions in display order.
func (d *DB) ListDefinitions(profileID uuid.UUID) ([]*models.MetricDefinition, error) {
	rows, err := d.db.Query(`
		SELECT profile_id, name, unit, ref_low, ref_high, display_order, favorite, updated_at
		FROM metric_definitions
		WHERE profile_id = ?
		ORDER BY display_order, name
	`, profileID.String())
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.MetricDefinition
	for rows.Next() {
		def, err := scanDefinition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// UpsertDefinitions writes a batch of definitions keyed by
// (profile_id, name). A failing row does not abort the rest of the
// batch.
func (d *DB) UpsertDefinitions(defs []*models.MetricDefinition) error {
	query := `
		INSERT INTO metric_definitions (profile_id, name, unit, ref_low, ref_high, display_order, favorite, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, name) DO UPDATE SET
			unit = excluded.unit,
			ref_low = excluded.ref_low,
			ref_high = excluded.ref_high,
			display_order = excluded.display_order,
			favorite = excluded.favorite,
			updated_at = excluded.updated_at
	`
	var errs []error
	for _, def := range defs {
		_, err := d.db.Exec(query,
			def.ProfileID.String(), def.Name, def.Unit, def.RefLow, def.RefHigh,
			def.DisplayOrder, def.Favorite, def.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert definition %s: %w", def.Name, err))
		}
	}
	return errors.Join(errs...)
}

// DeleteDefinition removes the definition for (profile, name). Used
// when consolidation folds a variant name into its canonical one.
func (d *DB) DeleteDefinition(profileID uuid.UUID, name string) error {
	_, err := d.db.Exec(`
		DELETE FROM metric_definitions WHERE profile_id = ? AND name = ?
	`, profileID.String(), name)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	return nil
}

// InsertAlias records alias -> canonical if the alias string is not
// already claimed. Returns true when a new row was inserted; an existing
// mapping (to any canonical name) is left untouched.
func (d *DB) InsertAlias(alias, canonicalName string) (bool, error) {
	res, err := d.db.Exec(`
		INSERT INTO metric_aliases (alias, canonical_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (alias) DO NOTHING
	`, alias, canonicalName, time.Now().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("insert alias: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert alias: %w", err)
	}
	return affected > 0, nil
}

// ListAliases returns all alias mappings ordered by alias.
func (d *DB) ListAliases() ([]*models.Alias, error) {
	rows, err := d.db.Query(`
		SELECT alias, canonical_name, created_at
		FROM metric_aliases
		ORDER BY alias
	`)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*models.Alias
	for rows.Next() {
		var a models.Alias
		var createdAt string
		if err := rows.Scan(&a.Alias, &a.CanonicalName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		aliases = append(aliases, &a)
	}
	return aliases, rows.Err()
}

// scanDefinition scans one definition row via the given Scan func, so
// it works for both sql.Row and sql.Rows.
func scanDefinition(scan func(...any) error) (*models.MetricDefinition, error) {
	var def models.MetricDefinition
	var profileID, updatedAt string
	var unit sql.NullString
	var refLow, refHigh sql.NullFloat64

	err := scan(&profileID, &def.Name, &unit, &refLow, &refHigh, &def.DisplayOrder, &def.Favorite, &updatedAt)
	if err != nil {
		return nil, err
	}

	def.ProfileID, _ = uuid.Parse(profileID)
	def.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if unit.Valid {
		def.Unit = &unit.String
	}
	if refLow.Valid {
		def.RefLow = &refLow.Float64
	}
	if refHigh.Valid {
		def.RefHigh = &refHigh.Float64
	}
	return &def, nil
}
