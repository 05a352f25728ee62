// ABOUTME: Observation, MetricDefinition, and Alias models for lab data.
// ABOUTME: Observations are report-scoped values; definitions are profile-scoped reference metadata.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Flag marks how a lab reported a value relative to its reference range.
type Flag string

const (
	FlagHigh   Flag = "H"
	FlagLow    Flag = "L"
	FlagNormal Flag = "N"
)

// IsValidFlag checks if a string is a recognized result flag.
func IsValidFlag(s string) bool {
	switch Flag(s) {
	case FlagHigh, FlagLow, FlagNormal:
		return true
	}
	return false
}

// Observation is a single accepted metric value from one report.
// Immutable once persisted; rejected values are never stored.
type Observation struct {
	ID        uuid.UUID
	ReportID  uuid.UUID
	Name      string
	Value     float64
	Unit      *string
	Flag      *Flag
	RefLow    *float64
	RefHigh   *float64
	CreatedAt time.Time
}

// NewObservation creates an Observation with generated UUID and current timestamp.
func NewObservation(reportID uuid.UUID, name string, value float64) *Observation {
	return &Observation{
		ID:        uuid.New(),
		ReportID:  reportID,
		Name:      name,
		Value:     value,
		CreatedAt: time.Now(),
	}
}

// WithUnit sets the unit as reported by the lab.
func (o *Observation) WithUnit(unit string) *Observation {
	o.Unit = &unit
	return o
}

// WithFlag sets the H/L/N flag.
func (o *Observation) WithFlag(f Flag) *Observation {
	o.Flag = &f
	return o
}

// WithRefRange sets the reference range snapshot at extraction time.
// Either bound may be nil.
func (o *Observation) WithRefRange(low, high *float64) *Observation {
	o.RefLow = low
	o.RefHigh = high
	return o
}

// MetricDefinition is the canonical, profile-scoped metadata for a metric
// name: unit, reference range, and chart ordering. One row per
// (profile, name); created on first sighting, updated but never deleted by
// reconciliation.
type MetricDefinition struct {
	ProfileID    uuid.UUID
	Name         string
	Unit         *string
	RefLow       *float64
	RefHigh      *float64
	DisplayOrder int
	Favorite     bool
	UpdatedAt    time.Time
}

// NewMetricDefinition creates a definition for a first-seen metric name.
func NewMetricDefinition(profileID uuid.UUID, name string) *MetricDefinition {
	return &MetricDefinition{
		ProfileID: profileID,
		Name:      name,
		UpdatedAt: time.Now(),
	}
}

// Alias maps a raw extracted metric name to its canonical name.
// Alias strings are globally unique; an alias resolves to exactly one
// canonical name at a time.
type Alias struct {
	Alias         string
	CanonicalName string
	CreatedAt     time.Time
}
