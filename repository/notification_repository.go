// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
	"gorm.io/gorm"
)

const (
	defaultFeedLimit       = 50
	defaultConversionLimit = 100
	defaultPointsLimit     = 2000
)

// NotificationFeedItem is a feed row joining a delivery with its offer copy
type NotificationFeedItem struct {
	ID                  int64     `json:"id"`
	OfferID             int64     `json:"offer_id"`
	CityID              int64     `json:"city_id"`
	NotificationContent string    `json:"notification_content"`
	NotificationTarget  string    `json:"notification_target"`
	Lon                 float64   `json:"lon"`
	Lat                 float64   `json:"lat"`
	CostCents           int64     `json:"cost_cents"`
	Converted           bool      `json:"converted"`
	CreatedAt           time.Time `json:"created_at"`
}

// OfferConversionAggregate is a report row for per-offer delivery outcomes
type OfferConversionAggregate struct {
	OfferID             int64  `json:"offer_id"`
	NotificationContent string `json:"notification_content"`
	Sent                int64  `json:"sent"`
	Converted           int64  `json:"converted"`
	CostCents           int64  `json:"cost_cents"`
}

// NotificationRepositoryImpl implements NotificationRepository interface
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, models.NotificationFilter]
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification, models.NotificationFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *NotificationRepositoryImpl) applyFilter(query *gorm.DB, filter models.NotificationFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.OfferID != nil {
		query = query.Where("offer_id = ?", *filter.OfferID)
	}
	if filter.CityID != nil {
		query = query.Where("city_id = ?", *filter.CityID)
	}
	if filter.Converted != nil {
		query = query.Where("converted = ?", *filter.Converted)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves notifications based on filter criteria
func (r *NotificationRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Notification{})

	// Apply filters
	query = r.applyFilter(query, filter)

	// Apply ordering (default to id DESC)
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var notifications []*models.Notification
	err := query.Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// Count returns the number of notifications matching the filter
func (r *NotificationRepositoryImpl) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Notification{})

	// Apply filters
	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any notification matching the filter exists
func (r *NotificationRepositoryImpl) Exists(ctx context.Context, filter models.NotificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecentFeed returns the latest deliveries joined with their offer copy,
// optionally restricted to one city
func (r *NotificationRepositoryImpl) RecentFeed(ctx context.Context, cityID *int64, limit int) ([]NotificationFeedItem, error) {
	db := r.getDB(ctx)

	if limit <= 0 {
		limit = defaultFeedLimit
	}

	query := db.Table("notifications AS n").
		Select("n.id, n.offer_id, n.city_id, o.notification_content, o.notification_target, n.lon, n.lat, n.cost_cents, n.converted, n.created_at").
		Joins("JOIN offers o ON o.id = n.offer_id")
	if cityID != nil {
		query = query.Where("n.city_id = ?", *cityID)
	}

	var items []NotificationFeedItem
	err := query.Order("n.created_at DESC, n.id DESC").Limit(limit).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

// ConversionByOffer aggregates delivery outcomes per offer, busiest offers
// first, optionally restricted to one city
func (r *NotificationRepositoryImpl) ConversionByOffer(ctx context.Context, cityID *int64, limit int) ([]OfferConversionAggregate, error) {
	db := r.getDB(ctx)

	if limit <= 0 {
		limit = defaultConversionLimit
	}

	query := db.Table("notifications AS n").
		Select("n.offer_id, o.notification_content, COUNT(*) AS sent, SUM(CASE WHEN n.converted THEN 1 ELSE 0 END) AS converted, COALESCE(SUM(n.cost_cents), 0) AS cost_cents").
		Joins("JOIN offers o ON o.id = n.offer_id")
	if cityID != nil {
		query = query.Where("n.city_id = ?", *cityID)
	}

	var rows []OfferConversionAggregate
	err := query.Group("n.offer_id, o.notification_content").
		Order("sent DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// PointsWithin returns the latest deliveries inside the viewport
func (r *NotificationRepositoryImpl) PointsWithin(ctx context.Context, viewport geo.Bounds, limit int) ([]*models.Notification, error) {
	db := r.getDB(ctx)

	if limit <= 0 {
		limit = defaultPointsLimit
	}

	var notifications []*models.Notification
	err := db.Model(&models.Notification{}).
		Where("lat BETWEEN ? AND ?", viewport.LatLo, viewport.LatHi).
		Where("lon BETWEEN ? AND ?", viewport.LngLo, viewport.LngHi).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// DeleteByCity removes all deliveries recorded for the city and reports how
// many rows went away
func (r *NotificationRepositoryImpl) DeleteByCity(ctx context.Context, cityID int64) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Where("city_id = ?", cityID).Delete(&models.Notification{})
	if result.Error != nil {
		err = fmt.Errorf("failed to delete notifications for city %d: %w", cityID, result.Error)
		return 0, err
	}

	return result.RowsAffected, nil
}
