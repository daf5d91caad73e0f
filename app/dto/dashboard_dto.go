// Package dto contains request and response types exposed by the HTTP API
package dto

// ViewportRequest is the rectangular map region dashboard queries operate on.
// Bound via query parameters on GET endpoints.
type ViewportRequest struct {
	MinLon float64 `query:"min_lon" json:"min_lon" validate:"gte=-180,lte=180"`
	MinLat float64 `query:"min_lat" json:"min_lat" validate:"gte=-90,lte=90"`
	MaxLon float64 `query:"max_lon" json:"max_lon" validate:"gte=-180,lte=180"`
	MaxLat float64 `query:"max_lat" json:"max_lat" validate:"gte=-90,lte=90"`
	Limit  int     `query:"limit" json:"limit" validate:"omitempty,gte=1,lte=5000"`
}

// OfferZoneDTO is one offer's notification zone rendered on the map
type OfferZoneDTO struct {
	OfferID             int64   `json:"offer_id"`
	NotificationZone    string  `json:"notification_zone"`
	NotificationContent string  `json:"notification_content"`
	NotificationTarget  string  `json:"notification_target"`
	MaximumBidCents     int64   `json:"maximum_bid_cents"`
	SegmentIDs          []int64 `json:"segment_ids"`
}

// NotificationPointDTO is one delivered notification rendered on the map
type NotificationPointDTO struct {
	ID        int64   `json:"id"`
	OfferID   int64   `json:"offer_id"`
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	CostCents int64   `json:"cost_cents"`
	Converted bool    `json:"converted"`
}

// MapDataResponse carries everything the dashboard map draws for a viewport
type MapDataResponse struct {
	Message string                 `json:"message"`
	Zones   []OfferZoneDTO         `json:"zones"`
	Points  []NotificationPointDTO `json:"points"`
}

// NotificationFeedRequest pages through recent delivered notifications
type NotificationFeedRequest struct {
	CityID *int64 `query:"city_id" json:"city_id,omitempty"`
	Limit  int    `query:"limit" json:"limit" validate:"omitempty,gte=1,lte=200"`
}

// NotificationFeedItemDTO is one row of the dashboard activity feed
type NotificationFeedItemDTO struct {
	ID                  int64   `json:"id"`
	OfferID             int64   `json:"offer_id"`
	CityID              int64   `json:"city_id"`
	NotificationContent string  `json:"notification_content"`
	NotificationTarget  string  `json:"notification_target"`
	Lon                 float64 `json:"lon"`
	Lat                 float64 `json:"lat"`
	CostCents           int64   `json:"cost_cents"`
	Converted           bool    `json:"converted"`
	CreatedAt           string  `json:"created_at"`
}

type NotificationFeedResponse struct {
	Message string                    `json:"message"`
	Items   []NotificationFeedItemDTO `json:"items"`
}

// ConversionRowDTO is one offer's delivery outcome in the analytics report
type ConversionRowDTO struct {
	OfferID             int64   `json:"offer_id"`
	NotificationContent string  `json:"notification_content"`
	Sent                int64   `json:"sent"`
	Converted           int64   `json:"converted"`
	ConversionRate      float64 `json:"conversion_rate"`
	CostCents           int64   `json:"cost_cents"`
}

// ConversionAnalyticsResponse is the per-offer conversion report
type ConversionAnalyticsResponse struct {
	Message        string             `json:"message"`
	Rows           []ConversionRowDTO `json:"rows"`
	TotalSent      int64              `json:"total_sent"`
	TotalConverted int64              `json:"total_converted"`
	OverallRate    float64            `json:"overall_rate"`
	FromCache      bool               `json:"from_cache"`
}

// SegmentBreakdownRowDTO is one (kind, interval) bucket of the segment catalog
type SegmentBreakdownRowDTO struct {
	FilterKind    string `json:"filter_kind"`
	ValidInterval string `json:"valid_interval"`
	Total         int64  `json:"total"`
}

type SegmentBreakdownResponse struct {
	Message   string                   `json:"message"`
	Rows      []SegmentBreakdownRowDTO `json:"rows"`
	FromCache bool                     `json:"from_cache"`
}

// CityDTO is one entry of the seedable city catalog
type CityDTO struct {
	CityID    int64   `json:"city_id"`
	CityName  string  `json:"city_name"`
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
	Diameter  float64 `json:"diameter"`
}

type ListCitiesResponse struct {
	Message string    `json:"message"`
	Cities  []CityDTO `json:"cities"`
}
