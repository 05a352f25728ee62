// ABOUTME: Profile and Report models.
// ABOUTME: A profile scopes reports; a report owns the observations of one lab visit.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Report sources.
const (
	SourcePDF      = "pdf"
	SourceMigrated = "migrated"
)

// Profile is a patient identity that scopes reports, observations, and
// metric definitions.
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

// NewProfile creates a Profile with generated UUID and current timestamp.
func NewProfile(displayName string) *Profile {
	return &Profile{
		ID:          uuid.New(),
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
}

// Report is one lab visit's result set, keyed by (profile, sample date).
// SampleDate is an ISO YYYY-MM-DD day string.
type Report struct {
	ID         uuid.UUID
	ProfileID  uuid.UUID
	SampleDate string
	FileName   *string
	Source     string
	CreatedAt  time.Time
}

// NewReport creates a Report with generated UUID and current timestamp.
func NewReport(profileID uuid.UUID, sampleDate string) *Report {
	return &Report{
		ID:         uuid.New(),
		ProfileID:  profileID,
		SampleDate: sampleDate,
		Source:     SourcePDF,
		CreatedAt:  time.Now(),
	}
}

// WithFileName records the source file the report was extracted from.
func (r *Report) WithFileName(name string) *Report {
	r.FileName = &name
	return r
}

// WithSource overrides the default "pdf" source.
func (r *Report) WithSource(source string) *Report {
	r.Source = source
	return r
}
