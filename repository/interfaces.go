// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id int64) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CityRepository defines operations for the seeded city catalog
type CityRepository interface {
	Repository[models.City, models.CityFilter]
	ByName(ctx context.Context, name string) (*models.City, error)
	ListAll(ctx context.Context) ([]*models.City, error)
}

// SegmentRepository defines operations for segment descriptors
type SegmentRepository interface {
	Repository[models.Segment, models.SegmentFilter]
	BreakdownByKind(ctx context.Context) ([]SegmentBreakdown, error)
}

// OfferRepository defines operations for offers
type OfferRepository interface {
	Repository[models.Offer, models.OfferFilter]
	ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*models.Offer, error)
	ZonesWithin(ctx context.Context, viewport geo.Bounds, customerID int64, limit int) ([]*models.Offer, error)
	DeleteByCustomer(ctx context.Context, customerID int64) (int64, error)
}

// NotificationRepository defines operations for delivered notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	RecentFeed(ctx context.Context, cityID *int64, limit int) ([]NotificationFeedItem, error)
	ConversionByOffer(ctx context.Context, cityID *int64, limit int) ([]OfferConversionAggregate, error)
	PointsWithin(ctx context.Context, viewport geo.Bounds, limit int) ([]*models.Notification, error)
	DeleteByCity(ctx context.Context, cityID int64) (int64, error)
}

// SeedRunRepository defines operations for seed run records
type SeedRunRepository interface {
	Repository[models.SeedRun, models.SeedRunFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.SeedRun, error)
	Update(ctx context.Context, run *models.SeedRun) error
}

// AdminRepository defines operations for admin accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	ByUUID(ctx context.Context, uuid string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, adminID int64, at time.Time) error
}
