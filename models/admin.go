package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/offergrid/offergrid/utils"
	"gorm.io/gorm"
)

// Admin is a dashboard operator account. Mutating endpoints (reseeding, the
// analytics export) require an authenticated admin; a default account is
// ensured from configuration at bootstrap.
type Admin struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_admin_accounts_uuid" json:"uuid"`
	Username     string    `gorm:"size:255;not null;uniqueIndex:uk_admin_accounts_username" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`

	IsActive    *bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_admin_accounts_last_login_at" json:"last_login_at,omitempty"`
}

// TableName returns the table name for the model
func (Admin) TableName() string {
	return "admin_accounts"
}

// BeforeCreate is called before creating a new record
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.IsActive == nil {
		a.IsActive = utils.ToPtr(true)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	return nil
}

// AdminFilter represents filter criteria for admin queries
type AdminFilter struct {
	ID             *int64     `json:"id,omitempty"`
	UUID           *uuid.UUID `json:"uuid,omitempty"`
	Username       *string    `json:"username,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	LastLoginAfter *time.Time `json:"last_login_after,omitempty"`
}
