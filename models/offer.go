package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/offergrid/offergrid/utils"
	"gorm.io/gorm"
)

// SegmentIDList is the JSON-encoded array of derived segment ids an offer
// references, serialized in the offer's segment order. The durable linkage
// between offers and segments is by id, not by object reference.
type SegmentIDList []int64

// Value implements the driver.Valuer interface for SegmentIDList
func (l SegmentIDList) Value() (driver.Value, error) {
	if l == nil {
		l = SegmentIDList{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for SegmentIDList
func (l *SegmentIDList) Scan(value any) error {
	if value == nil {
		*l = SegmentIDList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SegmentIDList", value)
	}

	return json.Unmarshal(bytes, l)
}

// Offer is an advertising/notification opportunity. Offers are created via
// batched insert and never mutated in place by this service; deletion and
// expiry are external concerns.
type Offer struct {
	ID                  int64         `gorm:"primaryKey" json:"id"`
	CustomerID          int64         `gorm:"column:customer_id;not null;index:idx_offers_customer_id" json:"customer_id"`
	NotificationZone    string        `gorm:"column:notification_zone;type:text;not null" json:"notification_zone"`
	SegmentIDs          SegmentIDList `gorm:"column:segment_ids;type:jsonb;not null" json:"segment_ids"`
	NotificationContent string        `gorm:"column:notification_content;size:512;not null" json:"notification_content"`
	NotificationTarget  string        `gorm:"column:notification_target;size:512;not null" json:"notification_target"`
	MaximumBidCents     int64         `gorm:"column:maximum_bid_cents;not null" json:"maximum_bid_cents"`
	CreatedAt           time.Time     `gorm:"index:idx_offers_created_at" json:"created_at"`

	// Segments carries the full descriptors from the generator to the
	// writers; only the derived ids are persisted on the offer row.
	Segments []Segment `gorm:"-" json:"-"`
}

// TableName returns the table name for the model
func (Offer) TableName() string {
	return "offers"
}

// BeforeCreate is called before creating a new record
func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.CustomerID == 0 {
		o.CustomerID = utils.DefaultCustomerID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = utils.UTCNow()
	}
	return nil
}

// DerivedSegmentIDs returns the ordered ids of the carried segment
// descriptors, which is what gets serialized into the segment_ids column.
func (o *Offer) DerivedSegmentIDs() SegmentIDList {
	ids := make(SegmentIDList, 0, len(o.Segments))
	for _, s := range o.Segments {
		ids = append(ids, s.SegmentID)
	}
	return ids
}

// OfferFilter represents filter criteria for offer queries
type OfferFilter struct {
	ID            *int64     `json:"id,omitempty"`
	CustomerID    *int64     `json:"customer_id,omitempty"`
	MinBidCents   *int64     `json:"min_bid_cents,omitempty"`
	MaxBidCents   *int64     `json:"max_bid_cents,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
