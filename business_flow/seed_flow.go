// Package businessflow contains the core business logic and use cases for seeding and dashboard workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/offergrid/offergrid/app/dto"
	"github.com/offergrid/offergrid/config"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
	"github.com/offergrid/offergrid/seeder"
	"github.com/offergrid/offergrid/utils"
)

// SeedFlow rebuilds the synthetic demo dataset and exposes the run history
type SeedFlow interface {
	ReseedCity(ctx context.Context, req *dto.ReseedRequest, metadata *ClientMetadata) (*dto.ReseedResponse, error)
	ListSeedRuns(ctx context.Context, req *dto.ListSeedRunsRequest) (*dto.ListSeedRunsResponse, error)
	GetSeedRun(ctx context.Context, runUUID string) (*dto.GetSeedRunResponse, error)
}

// SeedFlowImpl drives the generate-write-record pipeline for one city at a time
type SeedFlowImpl struct {
	cityRepo    repository.CityRepository
	offerRepo   repository.OfferRepository
	notifRepo   repository.NotificationRepository
	seedRunRepo repository.SeedRunRepository
	exec        seeder.Executor
	rc          *redis.Client
	cacheConfig *config.CacheConfig
	seederCfg   config.SeederConfig
}

func NewSeedFlow(
	cityRepo repository.CityRepository,
	offerRepo repository.OfferRepository,
	notifRepo repository.NotificationRepository,
	seedRunRepo repository.SeedRunRepository,
	exec seeder.Executor,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
	seederCfg config.SeederConfig,
) SeedFlow {
	return &SeedFlowImpl{
		cityRepo:    cityRepo,
		offerRepo:   offerRepo,
		notifRepo:   notifRepo,
		seedRunRepo: seedRunRepo,
		exec:        exec,
		rc:          rc,
		cacheConfig: cacheConfig,
		seederCfg:   seederCfg,
	}
}

// ReseedCity replaces the demo rows for a city with a freshly generated set.
// Counts that are zero or negative in the request fall back to the configured
// defaults. Only one reseed may run at a time across all instances.
func (sf *SeedFlowImpl) ReseedCity(ctx context.Context, req *dto.ReseedRequest, metadata *ClientMetadata) (*dto.ReseedResponse, error) {
	if req == nil || req.CityName == "" {
		return nil, NewBusinessError("RESEED_VALIDATION_FAILED", "City name is required", ErrCityNotFound)
	}

	city, err := sf.cityRepo.ByName(ctx, req.CityName)
	if err != nil {
		return nil, NewBusinessError("CITY_LOOKUP_FAILED", "Failed to lookup city", err)
	}
	if city == nil {
		return nil, NewBusinessErrorf("CITY_NOT_FOUND", "City %q is not seedable", ErrCityNotFound, req.CityName)
	}

	offerCount := req.OfferCount
	if offerCount <= 0 {
		offerCount = sf.seederCfg.OffersPerRun
	}
	perOffer := req.NotificationsPerOffer
	if perOffer <= 0 {
		perOffer = sf.seederCfg.NotificationsPerOffer
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Serialize reseeds across instances (SETNX with TTL)
	if sf.rc != nil {
		lockKey := redisKey(*sf.cacheConfig, utils.SeedLockKey)
		ok, err := sf.rc.SetNX(ctx, lockKey, "1", utils.SeedLockTTL).Result()
		if err != nil {
			return nil, NewBusinessError("SEED_LOCK_FAILED", "Failed to acquire seed lock", err)
		}
		if !ok {
			return nil, NewBusinessError("SEED_LOCK_BUSY", "Another seed run is in progress", ErrSeedAlreadyActive)
		}
		defer func() {
			_ = sf.rc.Del(context.Background(), lockKey).Err()
		}()
	}

	run := &models.SeedRun{
		CityID:     city.CityID,
		OfferCount: offerCount,
		Status:     models.SeedRunStatusRunning,
		StartedAt:  utils.UTCNow(),
	}
	if err := sf.seedRunRepo.Save(ctx, run); err != nil {
		return nil, NewBusinessError("SEED_RUN_CREATE_FAILED", "Failed to record seed run", err)
	}

	// Clear the previous demo dataset before writing the new one
	if _, err := sf.offerRepo.DeleteByCustomer(ctx, utils.DefaultCustomerID); err != nil {
		return nil, sf.finalizeFailed(ctx, run, 0, fmt.Errorf("clearing offers: %w", err))
	}
	if _, err := sf.notifRepo.DeleteByCity(ctx, city.CityID); err != nil {
		return nil, sf.finalizeFailed(ctx, run, 0, fmt.Errorf("clearing notifications: %w", err))
	}

	gen := seeder.NewGenerator(seeder.DefaultVendors, seed)
	offers := gen.RandomOffers(*city, offerCount)

	writer := seeder.NewOfferWriter(sf.exec, utils.DefaultCustomerID)
	if err := writer.WriteOffers(ctx, offers); err != nil {
		return nil, sf.finalizeFailed(ctx, run, writer.Flushes(), fmt.Errorf("writing offers: %w", err))
	}

	// Notifications reference persisted offer rows, so re-read the batch to
	// pick up the database-assigned ids.
	persisted, err := sf.offerRepo.ListByCustomer(ctx, utils.DefaultCustomerID, offerCount, 0)
	if err != nil {
		return nil, sf.finalizeFailed(ctx, run, writer.Flushes(), fmt.Errorf("listing offers: %w", err))
	}
	byValue := make([]models.Offer, 0, len(persisted))
	for _, o := range persisted {
		byValue = append(byValue, *o)
	}

	notifications := gen.RandomNotifications(*city, byValue, perOffer)
	if len(notifications) > 0 {
		batch := make([]*models.Notification, 0, len(notifications))
		for i := range notifications {
			batch = append(batch, &notifications[i])
		}
		if err := sf.notifRepo.SaveBatch(ctx, batch); err != nil {
			return nil, sf.finalizeFailed(ctx, run, writer.Flushes(), fmt.Errorf("writing notifications: %w", err))
		}
	}

	// Finalize the run record
	run.Status = models.SeedRunStatusSucceeded
	run.OfferCount = len(offers)
	run.NotificationCount = len(notifications)
	run.FlushCount = writer.Flushes()
	run.FinishedAt = utils.UTCNowPtr()
	if err := sf.seedRunRepo.Update(ctx, run); err != nil {
		return nil, NewBusinessError("SEED_RUN_FINALIZE_FAILED", "Failed to finalize seed run", err)
	}

	sf.invalidateAnalyticsCache(ctx)

	return &dto.ReseedResponse{
		Message: fmt.Sprintf("Reseeded %s with %d offers in %d flushes", city.CityName, run.OfferCount, run.FlushCount),
		Run:     ToSeedRunDTO(*run),
	}, nil
}

// ListSeedRuns returns the recorded reseeds, newest first
func (sf *SeedFlowImpl) ListSeedRuns(ctx context.Context, req *dto.ListSeedRunsRequest) (*dto.ListSeedRunsResponse, error) {
	page := 1
	limit := 20
	var filter models.SeedRunFilter

	if req != nil {
		if req.Page > 0 {
			page = req.Page
		}
		if req.Limit > 0 {
			if req.Limit > 100 {
				return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
			}
			limit = req.Limit
		}
		if req.Status != "" {
			status := models.SeedRunStatus(req.Status)
			if !status.Valid() {
				return nil, NewBusinessErrorf("INVALID_SEED_RUN_STATUS", "Unknown seed run status %q", ErrSeedRunNotFound, req.Status)
			}
			filter.Status = &status
		}
	}

	total, err := sf.seedRunRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SEED_RUN_LIST_FAILED", "Failed to count seed runs", err)
	}

	runs, err := sf.seedRunRepo.ByFilter(ctx, filter, "started_at DESC, id DESC", limit, (page-1)*limit)
	if err != nil {
		return nil, NewBusinessError("SEED_RUN_LIST_FAILED", "Failed to list seed runs", err)
	}

	items := make([]dto.SeedRunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, ToSeedRunDTO(*run))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &dto.ListSeedRunsResponse{
		Message: "Seed runs retrieved",
		Runs:    items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// GetSeedRun returns one recorded reseed by its public UUID
func (sf *SeedFlowImpl) GetSeedRun(ctx context.Context, runUUID string) (*dto.GetSeedRunResponse, error) {
	parsed, err := uuid.Parse(runUUID)
	if err != nil {
		return nil, NewBusinessErrorf("SEED_RUN_NOT_FOUND", "Invalid seed run id %q", ErrSeedRunNotFound, runUUID)
	}

	run, err := sf.seedRunRepo.ByUUID(ctx, parsed)
	if err != nil {
		return nil, NewBusinessError("SEED_RUN_LOOKUP_FAILED", "Failed to lookup seed run", err)
	}
	if run == nil {
		return nil, NewBusinessError("SEED_RUN_NOT_FOUND", "Seed run not found", ErrSeedRunNotFound)
	}

	return &dto.GetSeedRunResponse{
		Message: "Seed run retrieved",
		Run:     ToSeedRunDTO(*run),
	}, nil
}

// finalizeFailed marks the run failed with the cause and returns the wrapped error
func (sf *SeedFlowImpl) finalizeFailed(ctx context.Context, run *models.SeedRun, flushes int, cause error) error {
	msg := cause.Error()
	run.Status = models.SeedRunStatusFailed
	run.FlushCount = flushes
	run.ErrorMessage = &msg
	run.FinishedAt = utils.UTCNowPtr()
	if err := sf.seedRunRepo.Update(ctx, run); err != nil {
		return NewBusinessError("SEED_RUN_FINALIZE_FAILED", "Failed to record seed failure", err)
	}
	return NewBusinessError("RESEED_FAILED", "Reseed failed", cause)
}

// invalidateAnalyticsCache drops cached analytics payloads after a reseed.
// Best effort: a cache miss is always recoverable from the database.
func (sf *SeedFlowImpl) invalidateAnalyticsCache(ctx context.Context) {
	if sf.rc == nil {
		return
	}
	_ = sf.rc.Del(ctx,
		redisKey(*sf.cacheConfig, utils.ConversionCacheKey),
		redisKey(*sf.cacheConfig, utils.SegmentCacheKey),
	).Err()
}
