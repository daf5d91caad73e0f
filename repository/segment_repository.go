// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/offergrid/offergrid/models"
	"gorm.io/gorm"
)

// SegmentBreakdown is a report row counting segments per kind and interval
type SegmentBreakdown struct {
	FilterKind    models.SegmentKind     `json:"filter_kind"`
	ValidInterval models.SegmentInterval `json:"valid_interval"`
	Total         int64                  `json:"total"`
}

// SegmentRepositoryImpl implements SegmentRepository interface
type SegmentRepositoryImpl struct {
	*BaseRepository[models.Segment, models.SegmentFilter]
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *gorm.DB) SegmentRepository {
	return &SegmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Segment, models.SegmentFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *SegmentRepositoryImpl) applyFilter(query *gorm.DB, filter models.SegmentFilter) *gorm.DB {
	if filter.SegmentID != nil {
		query = query.Where("segment_id = ?", *filter.SegmentID)
	}
	if filter.Interval != nil {
		query = query.Where("valid_interval = ?", *filter.Interval)
	}
	if filter.Kind != nil {
		query = query.Where("filter_kind = ?", *filter.Kind)
	}
	if filter.ValuePrefix != nil {
		query = query.Where("filter_value LIKE ?", *filter.ValuePrefix+"%")
	}
	return query
}

// ByFilter retrieves segments based on filter criteria
func (r *SegmentRepositoryImpl) ByFilter(ctx context.Context, filter models.SegmentFilter, orderBy string, limit, offset int) ([]*models.Segment, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Segment{})

	// Apply filters
	query = r.applyFilter(query, filter)

	// Apply ordering (default to segment_id DESC)
	if orderBy == "" {
		orderBy = "segment_id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var segments []*models.Segment
	err := query.Find(&segments).Error
	if err != nil {
		return nil, err
	}

	return segments, nil
}

// Count returns the number of segments matching the filter
func (r *SegmentRepositoryImpl) Count(ctx context.Context, filter models.SegmentFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Segment{})

	// Apply filters
	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any segment matching the filter exists
func (r *SegmentRepositoryImpl) Exists(ctx context.Context, filter models.SegmentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// BreakdownByKind counts segments grouped by kind and interval
func (r *SegmentRepositoryImpl) BreakdownByKind(ctx context.Context) ([]SegmentBreakdown, error) {
	db := r.getDB(ctx)

	var rows []SegmentBreakdown
	err := db.Model(&models.Segment{}).
		Select("filter_kind, valid_interval, COUNT(*) AS total").
		Group("filter_kind, valid_interval").
		Order("filter_kind ASC, valid_interval ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}
