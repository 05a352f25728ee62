// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for profiles, reports, metrics, definitions, and aliases.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		sample_date TEXT NOT NULL,
		file_name TEXT,
		source TEXT NOT NULL DEFAULT 'pdf',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE,
		UNIQUE (profile_id, sample_date)
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT,
		flag TEXT,
		ref_low REAL,
		ref_high REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE,
		UNIQUE (report_id, name)
	);

	CREATE TABLE IF NOT EXISTS metric_definitions (
		profile_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit TEXT,
		ref_low REAL,
		ref_high REAL,
		display_order INTEGER NOT NULL DEFAULT 0,
		favorite INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (profile_id, name),
		FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS metric_aliases (
		alias TEXT PRIMARY KEY,
		canonical_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_profile ON reports(profile_id, sample_date);
	CREATE INDEX IF NOT EXISTS idx_metrics_report ON metrics(report_id);
	CREATE INDEX IF NOT EXISTS idx_metrics_name ON metrics(name);
	CREATE INDEX IF NOT EXISTS idx_definitions_order ON metric_definitions(profile_id, display_order);
	`

	_, err := d.db.Exec(schema)
	return err
}
