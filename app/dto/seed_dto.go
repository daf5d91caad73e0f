// Package dto contains request and response types exposed by the HTTP API
package dto

// ReseedRequest asks the seeder to rebuild the demo dataset for one city.
// Zero counts fall back to the configured defaults.
type ReseedRequest struct {
	CityName              string `json:"city_name" validate:"required,min=1,max=255"`
	OfferCount            int    `json:"offer_count" validate:"omitempty,gte=1,lte=100000"`
	NotificationsPerOffer int    `json:"notifications_per_offer" validate:"omitempty,gte=0,lte=20"`
	Seed                  int64  `json:"seed" validate:"omitempty"`
}

// SeedRunDTO is the API shape of one recorded reseed
type SeedRunDTO struct {
	ID                int64  `json:"id"`
	UUID              string `json:"uuid"`
	CityID            int64  `json:"city_id"`
	OfferCount        int    `json:"offer_count"`
	NotificationCount int    `json:"notification_count"`
	FlushCount        int    `json:"flush_count"`
	Status            string `json:"status"`
	ErrorMessage      string `json:"error_message,omitempty"`
	StartedAt         string `json:"started_at"`
	FinishedAt        string `json:"finished_at,omitempty"`
}

type ReseedResponse struct {
	Message string     `json:"message"`
	Run     SeedRunDTO `json:"run"`
}

// ListSeedRunsRequest pages through recorded reseeds, newest first
type ListSeedRunsRequest struct {
	Page   int    `query:"page" json:"page" validate:"omitempty,gte=1"`
	Limit  int    `query:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
	Status string `query:"status" json:"status" validate:"omitempty,oneof=running succeeded failed"`
}

type ListSeedRunsResponse struct {
	Message    string         `json:"message"`
	Runs       []SeedRunDTO   `json:"runs"`
	Pagination PaginationInfo `json:"pagination"`
}

type GetSeedRunResponse struct {
	Message string     `json:"message"`
	Run     SeedRunDTO `json:"run"`
}
