// Package models contains domain entities and business models for the offer platform
package models

import (
	"database/sql/driver"
	"fmt"
	"hash/fnv"
)

// SegmentInterval is the time bucket an audience filter applies over
type SegmentInterval string

const (
	SegmentIntervalMinute SegmentInterval = "minute"
	SegmentIntervalHour   SegmentInterval = "hour"
	SegmentIntervalDay    SegmentInterval = "day"
	SegmentIntervalWeek   SegmentInterval = "week"
	SegmentIntervalMonth  SegmentInterval = "month"
)

// SegmentIntervals enumerates all valid intervals, in ascending bucket size
var SegmentIntervals = []SegmentInterval{
	SegmentIntervalMinute,
	SegmentIntervalHour,
	SegmentIntervalDay,
	SegmentIntervalWeek,
	SegmentIntervalMonth,
}

// String returns the string representation of the interval
func (i SegmentInterval) String() string {
	return string(i)
}

// Valid checks if the interval is valid
func (i SegmentInterval) Valid() bool {
	switch i {
	case SegmentIntervalMinute, SegmentIntervalHour, SegmentIntervalDay,
		SegmentIntervalWeek, SegmentIntervalMonth:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SegmentInterval
func (i *SegmentInterval) Scan(value any) error {
	if value == nil {
		*i = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*i = SegmentInterval(v)
	case []byte:
		*i = SegmentInterval(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SegmentInterval", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SegmentInterval
func (i SegmentInterval) Value() (driver.Value, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("invalid SegmentInterval: %s", i)
	}
	return string(i), nil
}

// SegmentKind is the dimension an audience filter matches on
type SegmentKind string

const (
	SegmentKindGeocode8 SegmentKind = "geocode-8"
	SegmentKindGeocode6 SegmentKind = "geocode-6"
	SegmentKindPurchase SegmentKind = "purchase"
	SegmentKindRequest  SegmentKind = "request"
)

// SegmentKinds enumerates all valid kinds
var SegmentKinds = []SegmentKind{
	SegmentKindGeocode8,
	SegmentKindGeocode6,
	SegmentKindPurchase,
	SegmentKindRequest,
}

// String returns the string representation of the kind
func (k SegmentKind) String() string {
	return string(k)
}

// Valid checks if the kind is valid
func (k SegmentKind) Valid() bool {
	switch k {
	case SegmentKindGeocode8, SegmentKindGeocode6, SegmentKindPurchase, SegmentKindRequest:
		return true
	default:
		return false
	}
}

// IsGeocode reports whether the kind filters on a geocode cell
func (k SegmentKind) IsGeocode() bool {
	return k == SegmentKindGeocode8 || k == SegmentKindGeocode6
}

// Scan implements the sql.Scanner interface for SegmentKind
func (k *SegmentKind) Scan(value any) error {
	if value == nil {
		*k = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*k = SegmentKind(v)
	case []byte:
		*k = SegmentKind(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SegmentKind", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SegmentKind
func (k SegmentKind) Value() (driver.Value, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid SegmentKind: %s", k)
	}
	return string(k), nil
}

// DeriveSegmentID computes the stable identity of a segment from its semantic
// content. Logically identical segments always map to the same row; the id is
// FNV-1a over "interval-kind-value" widened to int64, so it is always
// non-negative and stable across restarts. Collisions between distinct
// triples are absorbed by the upsert semantics of the segments relation.
// Changing the hash is a compatibility break with existing rows.
func DeriveSegmentID(interval SegmentInterval, kind SegmentKind, value string) int64 {
	h := fnv.New32a()
	h.Write([]byte(string(interval) + "-" + string(kind) + "-" + value))
	return int64(h.Sum32())
}

// Segment is a named audience/targeting filter. Segments are immutable and
// have no lifecycle beyond upsert: they are created lazily as offers
// reference them and persist until pruned externally.
type Segment struct {
	SegmentID     int64           `gorm:"column:segment_id;primaryKey;autoIncrement:false" json:"segment_id"`
	ValidInterval SegmentInterval `gorm:"column:valid_interval;type:varchar(16);not null" json:"valid_interval"`
	FilterKind    SegmentKind     `gorm:"column:filter_kind;type:varchar(16);not null;index:idx_segments_filter_kind" json:"filter_kind"`
	FilterValue   string          `gorm:"column:filter_value;size:255;not null" json:"filter_value"`
}

// TableName returns the table name for the model
func (Segment) TableName() string {
	return "segments"
}

// NewSegment builds a segment with its derived id precomputed
func NewSegment(interval SegmentInterval, kind SegmentKind, value string) Segment {
	return Segment{
		SegmentID:     DeriveSegmentID(interval, kind, value),
		ValidInterval: interval,
		FilterKind:    kind,
		FilterValue:   value,
	}
}

// SegmentFilter represents filter criteria for segment queries
type SegmentFilter struct {
	SegmentID   *int64           `json:"segment_id,omitempty"`
	Interval    *SegmentInterval `json:"interval,omitempty"`
	Kind        *SegmentKind     `json:"kind,omitempty"`
	ValuePrefix *string          `json:"value_prefix,omitempty"`
}
