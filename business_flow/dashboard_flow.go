package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"github.com/offergrid/offergrid/app/dto"
	"github.com/offergrid/offergrid/config"
	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/repository"
	"github.com/offergrid/offergrid/utils"
)

const (
	defaultMapLimit    = 1000
	defaultFeedLimit   = 50
	conversionRowLimit = 500
	exportRowLimit     = 10000
)

// DashboardFlow serves the read side: map layers, the activity feed, and
// the conversion and segment analytics.
type DashboardFlow interface {
	GetMapData(ctx context.Context, req *dto.ViewportRequest) (*dto.MapDataResponse, error)
	GetNotificationFeed(ctx context.Context, req *dto.NotificationFeedRequest) (*dto.NotificationFeedResponse, error)
	GetConversionAnalytics(ctx context.Context, cityID *int64) (*dto.ConversionAnalyticsResponse, error)
	ExportConversionReport(ctx context.Context, cityID *int64) (string, []byte, error)
	GetSegmentBreakdown(ctx context.Context) (*dto.SegmentBreakdownResponse, error)
	ListCities(ctx context.Context) (*dto.ListCitiesResponse, error)
}

type DashboardFlowImpl struct {
	cityRepo    repository.CityRepository
	segmentRepo repository.SegmentRepository
	offerRepo   repository.OfferRepository
	notifRepo   repository.NotificationRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
}

func NewDashboardFlow(
	cityRepo repository.CityRepository,
	segmentRepo repository.SegmentRepository,
	offerRepo repository.OfferRepository,
	notifRepo repository.NotificationRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) DashboardFlow {
	return &DashboardFlowImpl{
		cityRepo:    cityRepo,
		segmentRepo: segmentRepo,
		offerRepo:   offerRepo,
		notifRepo:   notifRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
	}
}

// GetMapData returns the offer zones and notification points inside a viewport
func (df *DashboardFlowImpl) GetMapData(ctx context.Context, req *dto.ViewportRequest) (*dto.MapDataResponse, error) {
	if req == nil {
		return nil, NewBusinessError("VIEWPORT_REQUIRED", "Viewport is required", ErrInvalidViewport)
	}
	if req.MinLon >= req.MaxLon || req.MinLat >= req.MaxLat {
		return nil, NewBusinessError("INVALID_VIEWPORT", "Viewport must have positive extent on both axes", ErrInvalidViewport)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultMapLimit
	}

	viewport := geo.Bounds{
		LatLo: req.MinLat,
		LatHi: req.MaxLat,
		LngLo: req.MinLon,
		LngHi: req.MaxLon,
	}

	offers, err := df.offerRepo.ZonesWithin(ctx, viewport, utils.DefaultCustomerID, limit)
	if err != nil {
		return nil, NewBusinessError("MAP_ZONES_FAILED", "Failed to load offer zones", err)
	}

	points, err := df.notifRepo.PointsWithin(ctx, viewport, limit)
	if err != nil {
		return nil, NewBusinessError("MAP_POINTS_FAILED", "Failed to load notification points", err)
	}

	zones := make([]dto.OfferZoneDTO, 0, len(offers))
	for _, o := range offers {
		zones = append(zones, dto.OfferZoneDTO{
			OfferID:             o.ID,
			NotificationZone:    o.NotificationZone,
			NotificationContent: o.NotificationContent,
			NotificationTarget:  o.NotificationTarget,
			MaximumBidCents:     o.MaximumBidCents,
			SegmentIDs:          []int64(o.SegmentIDs),
		})
	}

	pointDTOs := make([]dto.NotificationPointDTO, 0, len(points))
	for _, n := range points {
		pointDTOs = append(pointDTOs, dto.NotificationPointDTO{
			ID:        n.ID,
			OfferID:   n.OfferID,
			Lon:       n.Lon,
			Lat:       n.Lat,
			CostCents: n.CostCents,
			Converted: n.Converted,
		})
	}

	return &dto.MapDataResponse{
		Message: "Map data retrieved",
		Zones:   zones,
		Points:  pointDTOs,
	}, nil
}

// GetNotificationFeed returns the most recent delivered notifications,
// optionally scoped to one city
func (df *DashboardFlowImpl) GetNotificationFeed(ctx context.Context, req *dto.NotificationFeedRequest) (*dto.NotificationFeedResponse, error) {
	limit := defaultFeedLimit
	var cityID *int64
	if req != nil {
		if req.Limit > 0 {
			limit = req.Limit
		}
		cityID = req.CityID
	}

	items, err := df.notifRepo.RecentFeed(ctx, cityID, limit)
	if err != nil {
		return nil, NewBusinessError("FEED_FAILED", "Failed to load notification feed", err)
	}

	feed := make([]dto.NotificationFeedItemDTO, 0, len(items))
	for _, item := range items {
		feed = append(feed, ToNotificationFeedItemDTO(item))
	}

	return &dto.NotificationFeedResponse{
		Message: "Notification feed retrieved",
		Items:   feed,
	}, nil
}

// GetConversionAnalytics aggregates delivery outcomes per offer. The result
// is cached in redis until the next reseed or TTL expiry.
func (df *DashboardFlowImpl) GetConversionAnalytics(ctx context.Context, cityID *int64) (*dto.ConversionAnalyticsResponse, error) {
	cacheKey := df.conversionCacheKey(cityID)
	if df.rc != nil {
		if bs, err := df.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.ConversionAnalyticsResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	aggregates, err := df.notifRepo.ConversionByOffer(ctx, cityID, conversionRowLimit)
	if err != nil {
		return nil, NewBusinessError("CONVERSION_ANALYTICS_FAILED", "Failed to aggregate conversions", err)
	}

	resp := buildConversionResponse(aggregates)

	if df.rc != nil {
		if bs, err := json.Marshal(resp); err == nil {
			_ = df.rc.Set(ctx, cacheKey, bs, df.cacheConfig.DefaultTTL).Err()
		}
	}

	return resp, nil
}

// ExportConversionReport renders the conversion analytics as an Excel
// workbook and returns the suggested filename with the file bytes
func (df *DashboardFlowImpl) ExportConversionReport(ctx context.Context, cityID *int64) (string, []byte, error) {
	aggregates, err := df.notifRepo.ConversionByOffer(ctx, cityID, exportRowLimit)
	if err != nil {
		return "", nil, NewBusinessError("CONVERSION_EXPORT_FAILED", "Failed to aggregate conversions", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Conversions"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"offer_id", "notification_content", "sent", "converted", "conversion_rate", "cost_cents"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, agg := range aggregates {
		rate := 0.0
		if agg.Sent > 0 {
			rate = float64(agg.Converted) / float64(agg.Sent)
		}
		record := []any{
			agg.OfferID,
			agg.NotificationContent,
			agg.Sent,
			agg.Converted,
			rate,
			agg.CostCents,
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "offer_conversion_report.xlsx", buf.Bytes(), nil
}

// GetSegmentBreakdown counts the segment catalog per (kind, interval) bucket.
// The result is cached in redis the same way as the conversion analytics.
func (df *DashboardFlowImpl) GetSegmentBreakdown(ctx context.Context) (*dto.SegmentBreakdownResponse, error) {
	cacheKey := redisKey(*df.cacheConfig, utils.SegmentCacheKey)
	if df.rc != nil {
		if bs, err := df.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.SegmentBreakdownResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
		}
	}

	rows, err := df.segmentRepo.BreakdownByKind(ctx)
	if err != nil {
		return nil, NewBusinessError("SEGMENT_BREAKDOWN_FAILED", "Failed to aggregate segments", err)
	}

	items := make([]dto.SegmentBreakdownRowDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.SegmentBreakdownRowDTO{
			FilterKind:    row.FilterKind.String(),
			ValidInterval: row.ValidInterval.String(),
			Total:         row.Total,
		})
	}

	resp := &dto.SegmentBreakdownResponse{
		Message: "Segment breakdown retrieved",
		Rows:    items,
	}

	if df.rc != nil {
		if bs, err := json.Marshal(resp); err == nil {
			_ = df.rc.Set(ctx, cacheKey, bs, df.cacheConfig.DefaultTTL).Err()
		}
	}

	return resp, nil
}

// ListCities returns the seedable city catalog
func (df *DashboardFlowImpl) ListCities(ctx context.Context) (*dto.ListCitiesResponse, error) {
	cities, err := df.cityRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("CITY_LIST_FAILED", "Failed to list cities", err)
	}

	items := make([]dto.CityDTO, 0, len(cities))
	for _, city := range cities {
		items = append(items, ToCityDTO(*city))
	}

	return &dto.ListCitiesResponse{
		Message: "Cities retrieved",
		Cities:  items,
	}, nil
}

func (df *DashboardFlowImpl) conversionCacheKey(cityID *int64) string {
	key := redisKey(*df.cacheConfig, utils.ConversionCacheKey)
	if cityID != nil {
		key = fmt.Sprintf("%s:%d", key, *cityID)
	}
	return key
}

func buildConversionResponse(aggregates []repository.OfferConversionAggregate) *dto.ConversionAnalyticsResponse {
	rows := make([]dto.ConversionRowDTO, 0, len(aggregates))
	var totalSent, totalConverted int64
	for _, agg := range aggregates {
		rate := 0.0
		if agg.Sent > 0 {
			rate = float64(agg.Converted) / float64(agg.Sent)
		}
		rows = append(rows, dto.ConversionRowDTO{
			OfferID:             agg.OfferID,
			NotificationContent: agg.NotificationContent,
			Sent:                agg.Sent,
			Converted:           agg.Converted,
			ConversionRate:      rate,
			CostCents:           agg.CostCents,
		})
		totalSent += agg.Sent
		totalConverted += agg.Converted
	}

	overall := 0.0
	if totalSent > 0 {
		overall = float64(totalConverted) / float64(totalSent)
	}

	return &dto.ConversionAnalyticsResponse{
		Message:        "Conversion analytics retrieved",
		Rows:           rows,
		TotalSent:      totalSent,
		TotalConverted: totalConverted,
		OverallRate:    overall,
	}
}
