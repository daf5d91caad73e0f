package models

import (
	"time"

	"github.com/offergrid/offergrid/utils"
	"gorm.io/gorm"
)

// Notification is a delivered-offer event: an offer fired for a customer at a
// location. Rows power the dashboard feed, the map overlay, and conversion
// analytics. In production they are produced by the matching pipeline; the
// seeder synthesizes a sample so a freshly reseeded dashboard has data.
type Notification struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	CustomerID int64     `gorm:"column:customer_id;not null;index:idx_notifications_customer_id" json:"customer_id"`
	OfferID    int64     `gorm:"column:offer_id;not null;index:idx_notifications_offer_id" json:"offer_id"`
	CityID     int64     `gorm:"column:city_id;not null;index:idx_notifications_city_id" json:"city_id"`
	Lon        float64   `gorm:"column:lon;not null" json:"lon"`
	Lat        float64   `gorm:"column:lat;not null" json:"lat"`
	CostCents  int64     `gorm:"column:cost_cents;not null" json:"cost_cents"`
	Converted  bool      `gorm:"column:converted;not null;default:false;index:idx_notifications_converted" json:"converted"`
	CreatedAt  time.Time `gorm:"index:idx_notifications_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate is called before creating a new record
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.CustomerID == 0 {
		n.CustomerID = utils.DefaultCustomerID
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	return nil
}

// NotificationFilter represents filter criteria for notification queries
type NotificationFilter struct {
	CustomerID    *int64     `json:"customer_id,omitempty"`
	OfferID       *int64     `json:"offer_id,omitempty"`
	CityID        *int64     `json:"city_id,omitempty"`
	Converted     *bool      `json:"converted,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
