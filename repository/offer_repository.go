// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
	"gorm.io/gorm"
)

// zoneScanLimit caps how many recent offers a viewport query inspects
const zoneScanLimit = 5000

// OfferRepositoryImpl implements OfferRepository interface
type OfferRepositoryImpl struct {
	*BaseRepository[models.Offer, models.OfferFilter]
}

// NewOfferRepository creates a new offer repository
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &OfferRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Offer, models.OfferFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *OfferRepositoryImpl) applyFilter(query *gorm.DB, filter models.OfferFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.MinBidCents != nil {
		query = query.Where("maximum_bid_cents >= ?", *filter.MinBidCents)
	}
	if filter.MaxBidCents != nil {
		query = query.Where("maximum_bid_cents <= ?", *filter.MaxBidCents)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves offers based on filter criteria
func (r *OfferRepositoryImpl) ByFilter(ctx context.Context, filter models.OfferFilter, orderBy string, limit, offset int) ([]*models.Offer, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Offer{})

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

	var offers []*models.Offer
	err := query.Find(&offers).Error
	if err != nil {
		return nil, err
	}

	return offers, nil
}

// Count returns the number of offers matching the filter
func (r *OfferRepositoryImpl) Count(ctx context.Context, filter models.OfferFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Offer{})

	// Apply filters
	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any offer matching the filter exists
func (r *OfferRepositoryImpl) Exists(ctx context.Context, filter models.OfferFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByCustomer returns a customer's offers, newest first
func (r *OfferRepositoryImpl) ListByCustomer(ctx context.Context, customerID int64, limit, offset int) ([]*models.Offer, error) {
	filter := models.OfferFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
}

// ZonesWithin returns the customer's offers whose notification zone overlaps
// the viewport. Zones are stored as WKT text, so recent candidates are
// fetched and their envelopes tested here; rows with unparseable zones are
// skipped.
func (r *OfferRepositoryImpl) ZonesWithin(ctx context.Context, viewport geo.Bounds, customerID int64, limit int) ([]*models.Offer, error) {
	if limit <= 0 || limit > zoneScanLimit {
		limit = zoneScanLimit
	}

	candidates, err := r.ListByCustomer(ctx, customerID, zoneScanLimit, 0)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Offer, 0, limit)
	for _, offer := range candidates {
		zone, err := geo.ParsePolygonBounds(offer.NotificationZone)
		if err != nil {
			continue
		}
		if viewport.Intersects(zone) {
			matches = append(matches, offer)
			if len(matches) == limit {
				break
			}
		}
	}

	return matches, nil
}

// DeleteByCustomer removes all offers owned by the customer and reports how
// many rows went away
func (r *OfferRepositoryImpl) DeleteByCustomer(ctx context.Context, customerID int64) (int64, error) {
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

	result := db.Where("customer_id = ?", customerID).Delete(&models.Offer{})
	if result.Error != nil {
		err = fmt.Errorf("failed to delete offers for customer %d: %w", customerID, result.Error)
		return 0, err
	}

	return result.RowsAffected, nil
}
