package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/offergrid/offergrid/utils"
	"gorm.io/gorm"
)

// SeedRunStatus represents the lifecycle state of a reseed
type SeedRunStatus string

const (
	SeedRunStatusRunning   SeedRunStatus = "running"
	SeedRunStatusSucceeded SeedRunStatus = "succeeded"
	SeedRunStatusFailed    SeedRunStatus = "failed"
)

// String returns the string representation of the status
func (s SeedRunStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s SeedRunStatus) Valid() bool {
	switch s {
	case SeedRunStatusRunning, SeedRunStatusSucceeded, SeedRunStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SeedRunStatus
func (s *SeedRunStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SeedRunStatus(v)
	case []byte:
		*s = SeedRunStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SeedRunStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SeedRunStatus
func (s SeedRunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SeedRunStatus: %s", s)
	}
	return string(s), nil
}

// SeedRun records one reseed of a city: how much was generated, how many
// flushes the writers performed, and how the run ended.
type SeedRun struct {
	ID                int64         `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:uk_seed_runs_uuid" json:"uuid"`
	CityID            int64         `gorm:"column:city_id;not null;index:idx_seed_runs_city_id" json:"city_id"`
	OfferCount        int           `gorm:"column:offer_count;not null" json:"offer_count"`
	NotificationCount int           `gorm:"column:notification_count;not null" json:"notification_count"`
	FlushCount        int           `gorm:"column:flush_count;not null" json:"flush_count"`
	Status            SeedRunStatus `gorm:"type:varchar(16);not null;index:idx_seed_runs_status" json:"status"`
	ErrorMessage      *string       `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	StartedAt         time.Time     `gorm:"column:started_at;index:idx_seed_runs_started_at" json:"started_at"`
	FinishedAt        *time.Time    `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

// TableName returns the table name for the model
func (SeedRun) TableName() string {
	return "seed_runs"
}

// BeforeCreate is called before creating a new record
func (r *SeedRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.Status == "" {
		r.Status = SeedRunStatusRunning
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = utils.UTCNow()
	}
	return nil
}

// IsTerminal reports whether the run has finished, successfully or not
func (r *SeedRun) IsTerminal() bool {
	return r.Status == SeedRunStatusSucceeded || r.Status == SeedRunStatusFailed
}

// SeedRunFilter represents filter criteria for seed run queries
type SeedRunFilter struct {
	ID            *int64         `json:"id,omitempty"`
	UUID          *uuid.UUID     `json:"uuid,omitempty"`
	CityID        *int64         `json:"city_id,omitempty"`
	Status        *SeedRunStatus `json:"status,omitempty"`
	StartedAfter  *time.Time     `json:"started_after,omitempty"`
	StartedBefore *time.Time     `json:"started_before,omitempty"`
}
