// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/offergrid/offergrid/models"
	"gorm.io/gorm"
)

// CityRepositoryImpl implements CityRepository interface
type CityRepositoryImpl struct {
	*BaseRepository[models.City, models.CityFilter]
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *gorm.DB) CityRepository {
	return &CityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.City, models.CityFilter](db),
	}
}

// ByName retrieves a city by its unique name
func (r *CityRepositoryImpl) ByName(ctx context.Context, name string) (*models.City, error) {
	filter := models.CityFilter{CityName: &name}
	cities, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(cities) == 0 {
		return nil, nil
	}

	return cities[0], nil
}

// ListAll returns the whole city catalog ordered by name
func (r *CityRepositoryImpl) ListAll(ctx context.Context) ([]*models.City, error) {
	return r.ByFilter(ctx, models.CityFilter{}, "city_name ASC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *CityRepositoryImpl) applyFilter(query *gorm.DB, filter models.CityFilter) *gorm.DB {
	if filter.CityID != nil {
		query = query.Where("city_id = ?", *filter.CityID)
	}
	if filter.CityName != nil {
		query = query.Where("city_name = ?", *filter.CityName)
	}
	return query
}

// ByFilter retrieves cities based on filter criteria
func (r *CityRepositoryImpl) ByFilter(ctx context.Context, filter models.CityFilter, orderBy string, limit, offset int) ([]*models.City, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.City{})

	// Apply filters
	query = r.applyFilter(query, filter)

	// Apply ordering (default to city_id DESC)
	if orderBy == "" {
		orderBy = "city_id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var cities []*models.City
	err := query.Find(&cities).Error
	if err != nil {
		return nil, err
	}

	return cities, nil
}

// Count returns the number of cities matching the filter
func (r *CityRepositoryImpl) Count(ctx context.Context, filter models.CityFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.City{})

	// Apply filters
	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any city matching the filter exists
func (r *CityRepositoryImpl) Exists(ctx context.Context, filter models.CityFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
