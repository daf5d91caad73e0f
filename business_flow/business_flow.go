// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/offergrid/offergrid/app/dto"
	"github.com/offergrid/offergrid/config"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
)

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// redisKey prefixes a cache key with the configured namespace
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// ToAdminDTOModel converts an admin model to its API shape
func ToAdminDTOModel(admin models.Admin) dto.AdminDTO {
	out := dto.AdminDTO{
		ID:        admin.ID,
		UUID:      admin.UUID.String(),
		Username:  admin.Username,
		IsActive:  admin.IsActive,
		CreatedAt: admin.CreatedAt.Format(time.RFC3339),
	}
	if admin.LastLoginAt != nil {
		out.LastLoginAt = admin.LastLoginAt.Format(time.RFC3339)
	}
	return out
}

// ToAdminSessionDTO wraps a freshly generated token pair for the API
func ToAdminSessionDTO(accessToken, refreshToken string, expiresIn time.Duration) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(expiresIn.Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

// ToSeedRunDTO converts a seed run record to its API shape
func ToSeedRunDTO(run models.SeedRun) dto.SeedRunDTO {
	out := dto.SeedRunDTO{
		ID:                run.ID,
		UUID:              run.UUID.String(),
		CityID:            run.CityID,
		OfferCount:        run.OfferCount,
		NotificationCount: run.NotificationCount,
		FlushCount:        run.FlushCount,
		Status:            run.Status.String(),
		StartedAt:         run.StartedAt.Format(time.RFC3339),
	}
	if run.ErrorMessage != nil {
		out.ErrorMessage = *run.ErrorMessage
	}
	if run.FinishedAt != nil {
		out.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return out
}

// ToCityDTO converts a city model to its API shape
func ToCityDTO(city models.City) dto.CityDTO {
	return dto.CityDTO{
		CityID:    city.CityID,
		CityName:  city.CityName,
		CenterLon: city.CenterLon,
		CenterLat: city.CenterLat,
		Diameter:  city.Diameter,
	}
}

// ToNotificationFeedItemDTO converts a feed row to its API shape
func ToNotificationFeedItemDTO(item repository.NotificationFeedItem) dto.NotificationFeedItemDTO {
	return dto.NotificationFeedItemDTO{
		ID:                  item.ID,
		OfferID:             item.OfferID,
		CityID:              item.CityID,
		NotificationContent: item.NotificationContent,
		NotificationTarget:  item.NotificationTarget,
		Lon:                 item.Lon,
		Lat:                 item.Lat,
		CostCents:           item.CostCents,
		Converted:           item.Converted,
		CreatedAt:           item.CreatedAt.Format(time.RFC3339),
	}
}
