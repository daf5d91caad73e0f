package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/offergrid/offergrid/app/dto"
	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
)

// newTestDashboardFlow wires a dashboard flow against the given database
// without redis
func newTestDashboardFlow(db *gorm.DB) DashboardFlow {
	return NewDashboardFlow(
		repository.NewCityRepository(db),
		repository.NewSegmentRepository(db),
		repository.NewOfferRepository(db),
		repository.NewNotificationRepository(db),
		nil,
		testCacheConfig(),
	)
}

// seedDashboardData reseeds a city so the read side has rows to serve
func seedDashboardData(t *testing.T, db *gorm.DB, offers, perOffer int) *models.City {
	t.Helper()

	city := createTestCity(t, db, "New York")
	_, err := newTestSeedFlow(db).ReseedCity(context.Background(), &dto.ReseedRequest{
		CityName:              "New York",
		OfferCount:            offers,
		NotificationsPerOffer: perOffer,
		Seed:                  42,
	}, nil)
	require.NoError(t, err)
	return city
}

func cityViewport(city *models.City) *dto.ViewportRequest {
	bounds := geo.SquareAround(city.CenterLat, city.CenterLon, city.Diameter)
	return &dto.ViewportRequest{
		MinLon: bounds.LngLo,
		MinLat: bounds.LatLo,
		MaxLon: bounds.LngHi,
		MaxLat: bounds.LatHi,
	}
}

func TestDashboardFlowMapData(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsZonesAndPoints", func(t *testing.T) {
		db := setupTestDB(t)
		city := seedDashboardData(t, db, 10, 2)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetMapData(ctx, cityViewport(city))
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.Len(t, resp.Zones, 10)
		assert.Len(t, resp.Points, 20)

		for _, zone := range resp.Zones {
			assert.NotZero(t, zone.OfferID)
			assert.Contains(t, zone.NotificationZone, "POLYGON((")
			assert.NotEmpty(t, zone.NotificationContent)
			assert.NotEmpty(t, zone.SegmentIDs)
			assert.LessOrEqual(t, len(zone.SegmentIDs), 2)
			assert.Greater(t, zone.MaximumBidCents, int64(0))
		}

		viewport := geo.SquareAround(city.CenterLat, city.CenterLon, city.Diameter)
		for _, point := range resp.Points {
			assert.NotZero(t, point.OfferID)
			assert.True(t, viewport.Contains(point.Lat, point.Lon))
			assert.Greater(t, point.CostCents, int64(0))
		}
	})

	t.Run("HonorsLimit", func(t *testing.T) {
		db := setupTestDB(t)
		city := seedDashboardData(t, db, 10, 2)
		flow := newTestDashboardFlow(db)

		req := cityViewport(city)
		req.Limit = 3

		resp, err := flow.GetMapData(ctx, req)
		require.NoError(t, err)
		assert.Len(t, resp.Zones, 3)
		assert.Len(t, resp.Points, 3)
	})

	t.Run("DistantViewportIsEmpty", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 5, 1)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetMapData(ctx, &dto.ViewportRequest{
			MinLon: 139.0,
			MinLat: 35.0,
			MaxLon: 140.0,
			MaxLat: 36.0,
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Zones)
		assert.Empty(t, resp.Points)
	})

	t.Run("RejectsInvertedViewport", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestDashboardFlow(db)

		_, err := flow.GetMapData(ctx, &dto.ViewportRequest{
			MinLon: 10, MinLat: 10, MaxLon: 5, MaxLat: 20,
		})
		require.Error(t, err)
		assert.True(t, IsInvalidViewport(err))
	})

	t.Run("RejectsNilRequest", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestDashboardFlow(db)

		_, err := flow.GetMapData(ctx, nil)
		require.Error(t, err)
		assert.True(t, IsInvalidViewport(err))
	})
}

func TestDashboardFlowNotificationFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsRecentNotifications", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 10, 2)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetNotificationFeed(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, resp.Items, 20)

		for _, item := range resp.Items {
			assert.NotZero(t, item.OfferID)
			assert.NotEmpty(t, item.NotificationContent)
			assert.NotEmpty(t, item.CreatedAt)
		}
	})

	t.Run("HonorsLimit", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 10, 2)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetNotificationFeed(ctx, &dto.NotificationFeedRequest{Limit: 5})
		require.NoError(t, err)
		assert.Len(t, resp.Items, 5)
	})

	t.Run("FiltersByCity", func(t *testing.T) {
		db := setupTestDB(t)
		city := seedDashboardData(t, db, 5, 1)
		flow := newTestDashboardFlow(db)

		cityID := city.CityID
		resp, err := flow.GetNotificationFeed(ctx, &dto.NotificationFeedRequest{CityID: &cityID})
		require.NoError(t, err)
		assert.Len(t, resp.Items, 5)

		other := cityID + 999
		resp, err = flow.GetNotificationFeed(ctx, &dto.NotificationFeedRequest{CityID: &other})
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
	})
}

func TestDashboardFlowConversionAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("AggregatesPerOffer", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 10, 4)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetConversionAnalytics(ctx, nil)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Rows)
		assert.False(t, resp.FromCache)

		assert.Equal(t, int64(40), resp.TotalSent)

		var sent, converted int64
		for _, row := range resp.Rows {
			assert.NotZero(t, row.OfferID)
			assert.GreaterOrEqual(t, row.ConversionRate, 0.0)
			assert.LessOrEqual(t, row.ConversionRate, 1.0)
			sent += row.Sent
			converted += row.Converted
		}
		assert.Equal(t, resp.TotalSent, sent)
		assert.Equal(t, resp.TotalConverted, converted)

		if resp.TotalSent > 0 {
			assert.InDelta(t, float64(resp.TotalConverted)/float64(resp.TotalSent), resp.OverallRate, 1e-9)
		}
	})

	t.Run("EmptyDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetConversionAnalytics(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Rows)
		assert.Zero(t, resp.TotalSent)
		assert.Zero(t, resp.OverallRate)
	})
}

func TestDashboardFlowExportConversionReport(t *testing.T) {
	ctx := context.Background()

	t.Run("WritesWorkbook", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 5, 2)
		flow := newTestDashboardFlow(db)

		filename, content, err := flow.ExportConversionReport(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "offer_conversion_report.xlsx", filename)
		require.NotEmpty(t, content)
		// xlsx files are zip archives
		assert.Equal(t, []byte{'P', 'K'}, content[:2])
	})

	t.Run("EmptyDatabaseStillExports", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestDashboardFlow(db)

		filename, content, err := flow.ExportConversionReport(ctx, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, filename)
		assert.NotEmpty(t, content)
	})
}

func TestDashboardFlowSegmentBreakdown(t *testing.T) {
	ctx := context.Background()

	t.Run("CountsPerKindAndInterval", func(t *testing.T) {
		db := setupTestDB(t)
		seedDashboardData(t, db, 30, 1)
		flow := newTestDashboardFlow(db)

		resp, err := flow.GetSegmentBreakdown(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, resp.Rows)
		assert.False(t, resp.FromCache)

		segmentCount, err := repository.NewSegmentRepository(db).Count(ctx, models.SegmentFilter{})
		require.NoError(t, err)

		var total int64
		for _, row := range resp.Rows {
			assert.True(t, models.SegmentKind(row.FilterKind).Valid())
			assert.True(t, models.SegmentInterval(row.ValidInterval).Valid())
			assert.Greater(t, row.Total, int64(0))
			total += row.Total
		}
		assert.Equal(t, segmentCount, total)
	})
}

func TestDashboardFlowListCities(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsCatalog", func(t *testing.T) {
		db := setupTestDB(t)
		createTestCity(t, db, "New York")
		flow := newTestDashboardFlow(db)

		resp, err := flow.ListCities(ctx)
		require.NoError(t, err)
		require.Len(t, resp.Cities, 1)

		city := resp.Cities[0]
		assert.Equal(t, "New York", city.CityName)
		assert.InDelta(t, -73.993562, city.CenterLon, 1e-9)
		assert.InDelta(t, 40.727063, city.CenterLat, 1e-9)
		assert.InDelta(t, 0.15, city.Diameter, 1e-9)
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		db := setupTestDB(t)
		flow := newTestDashboardFlow(db)

		resp, err := flow.ListCities(ctx)
		require.NoError(t, err)
		assert.Empty(t, resp.Cities)
	})
}
