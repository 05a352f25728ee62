// ABOUTME: Repository interface for lab data storage.
// ABOUTME: Defines the contract for profiles, reports, observations, definitions, and aliases.
package storage

import (
	"github.com/google/uuid"
	"github.com/viziai/labtrack/internal/models"
)

// Repository defines the storage interface for lab data. It is handed
// to the ingestion orchestrator and normalizer explicitly, which allows
// swapping implementations (SQLite, Charm KV, test doubles).
//
// The batched Upsert methods are keyed by natural unique keys:
// observations by (report, name), definitions by (profile, name).
// Implementations must make each single-row upsert atomic
// (last-write-wins); the callers do no locking of their own.
type Repository interface {
	// Profile operations
	GetOrCreateProfile(displayName string) (*models.Profile, error)
	ListProfiles() ([]*models.Profile, error)

	// Report operations
	GetOrCreateReport(profileID uuid.UUID, sampleDate string, fileName *string) (*models.Report, error)
	ListReports(profileID uuid.UUID) ([]*models.Report, error)

	// Observation operations
	UpsertObservations(obs []*models.Observation) error
	ListObservations(reportID uuid.UUID) ([]*models.Observation, error)
	MetricHistory(profileID uuid.UUID, name string) ([]float64, error)
	DistinctMetricNames(profileID uuid.UUID) ([]string, error)
	RenameMetric(profileID uuid.UUID, from, to string) (int, error)

	// Definition operations
	GetDefinition(profileID uuid.UUID, name string) (*models.MetricDefinition, error)
	ListDefinitions(profileID uuid.UUID) ([]*models.MetricDefinition, error)
	UpsertDefinitions(defs []*models.MetricDefinition) error
	DeleteDefinition(profileID uuid.UUID, name string) error

	// Alias operations. InsertAlias is insert-if-absent: it reports
	// false when the alias string is already claimed, which is not an
	// error.
	InsertAlias(alias, canonicalName string) (bool, error)
	ListAliases() ([]*models.Alias, error)

	// Export/Import
	GetAllData() (*ExportData, error)
	ImportData(data *ExportData) error

	// Lifecycle
	Close() error
}
