// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/offergrid/offergrid/models"
	"gorm.io/gorm"
)

// SeedRunRepositoryImpl implements SeedRunRepository interface
type SeedRunRepositoryImpl struct {
	*BaseRepository[models.SeedRun, models.SeedRunFilter]
}

// NewSeedRunRepository creates a new seed run repository
func NewSeedRunRepository(db *gorm.DB) SeedRunRepository {
	return &SeedRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SeedRun, models.SeedRunFilter](db),
	}
}

// ByUUID retrieves a seed run by its public identifier
func (r *SeedRunRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.SeedRun, error) {
	filter := models.SeedRunFilter{UUID: &id}
	runs, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

// Update persists the current state of an existing seed run
func (r *SeedRunRepositoryImpl) Update(ctx context.Context, run *models.SeedRun) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
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

	err = db.Save(run).Error
	if err != nil {
		return fmt.Errorf("failed to update seed run %d: %w", run.ID, err)
	}

	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *SeedRunRepositoryImpl) applyFilter(query *gorm.DB, filter models.SeedRunFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CityID != nil {
		query = query.Where("city_id = ?", *filter.CityID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StartedAfter != nil {
		query = query.Where("started_at > ?", *filter.StartedAfter)
	}
	if filter.StartedBefore != nil {
		query = query.Where("started_at < ?", *filter.StartedBefore)
	}
	return query
}

// ByFilter retrieves seed runs based on filter criteria
func (r *SeedRunRepositoryImpl) ByFilter(ctx context.Context, filter models.SeedRunFilter, orderBy string, limit, offset int) ([]*models.SeedRun, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SeedRun{})

	// Apply filters
	query = r.applyFilter(query, filter)

	// Apply ordering (default to newest first)
	if orderBy == "" {
		orderBy = "started_at DESC, id DESC"
	}
	query = query.Order(orderBy)

	// Apply pagination
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var runs []*models.SeedRun
	err := query.Find(&runs).Error
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// Count returns the number of seed runs matching the filter
func (r *SeedRunRepositoryImpl) Count(ctx context.Context, filter models.SeedRunFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SeedRun{})

	// Apply filters
	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any seed run matching the filter exists
func (r *SeedRunRepositoryImpl) Exists(ctx context.Context, filter models.SeedRunFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
