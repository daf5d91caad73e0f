// Package repository_test runs the repositories against a live PostgreSQL
// instance, covering the pieces the in-package sqlite tests cannot: the
// migration files, the batched raw-SQL offer writer, and JSONB columns.
// Tests skip when no database is reachable via the TEST_DB_* variables.
package repository_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
	testingutil "github.com/offergrid/offergrid/testing"
	"github.com/offergrid/offergrid/utils"
)

func withTestDB(t *testing.T, testFunc func(*testingutil.TestDB)) {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			t.Logf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	testFunc(testDB)
}

func TestCityCatalogOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewCityRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("CatalogInsertedByMigrations", func(t *testing.T) {
			cities, err := repo.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, cities, len(models.DefaultCities))
		})

		t.Run("ByName", func(t *testing.T) {
			city, err := repo.ByName(ctx, "New York")
			require.NoError(t, err)
			require.NotNil(t, city)
			assert.Equal(t, models.DeriveCityID("New York"), city.CityID)
			assert.InDelta(t, 40.727063, city.CenterLat, 1e-9)
		})

		t.Run("ByNameNotFound", func(t *testing.T) {
			city, err := repo.ByName(ctx, "Atlantis")
			assert.NoError(t, err)
			assert.Nil(t, city)
		})

		t.Run("Exists", func(t *testing.T) {
			exists, err := repo.Exists(ctx, models.CityFilter{CityName: utils.ToPtr("Tokyo")})
			require.NoError(t, err)
			assert.True(t, exists)
		})
	})
}

func TestSeededPipelineOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		city, err := fixtures.CityByName("San Francisco")
		require.NoError(t, err)

		offers, notifications, err := fixtures.SeedDemoData(ctx, city, 25, 3)
		require.NoError(t, err)
		assert.Equal(t, 25, offers)
		assert.Equal(t, 75, notifications)

		offerRepo := repository.NewOfferRepository(testDB.DB)
		segmentRepo := repository.NewSegmentRepository(testDB.DB)
		notificationRepo := repository.NewNotificationRepository(testDB.DB)

		t.Run("BatchedInsertPersistsOffers", func(t *testing.T) {
			rows, err := offerRepo.ListByCustomer(ctx, utils.DefaultCustomerID, 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 25)

			for _, offer := range rows {
				// created_at is absent from the batched INSERT and must
				// come from the column default
				assert.False(t, offer.CreatedAt.IsZero())
				assert.NotEmpty(t, offer.SegmentIDs)
				assert.Greater(t, offer.MaximumBidCents, int64(0))
			}
		})

		t.Run("SegmentsUpserted", func(t *testing.T) {
			count, err := segmentRepo.Count(ctx, models.SegmentFilter{})
			require.NoError(t, err)
			assert.Greater(t, count, int64(0))

			breakdown, err := segmentRepo.BreakdownByKind(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, breakdown)
		})

		t.Run("ZonesWithinViewport", func(t *testing.T) {
			viewport := geo.SquareAround(city.CenterLat, city.CenterLon, city.Diameter)
			zones, err := offerRepo.ZonesWithin(ctx, viewport, utils.DefaultCustomerID, 100)
			require.NoError(t, err)
			assert.Len(t, zones, 25)
		})

		t.Run("ZonesOutsideViewport", func(t *testing.T) {
			elsewhere := geo.SquareAround(-33.865143, 151.209900, 0.1)
			zones, err := offerRepo.ZonesWithin(ctx, elsewhere, utils.DefaultCustomerID, 100)
			require.NoError(t, err)
			assert.Empty(t, zones)
		})

		t.Run("PointsWithinViewport", func(t *testing.T) {
			viewport := geo.SquareAround(city.CenterLat, city.CenterLon, city.Diameter)
			points, err := notificationRepo.PointsWithin(ctx, viewport, 200)
			require.NoError(t, err)
			assert.Len(t, points, 75)

			for _, n := range points {
				assert.GreaterOrEqual(t, n.Lat, viewport.LatLo)
				assert.LessOrEqual(t, n.Lat, viewport.LatHi)
			}
		})

		t.Run("DeleteByCustomer", func(t *testing.T) {
			_, err := notificationRepo.DeleteByCity(ctx, city.CityID)
			require.NoError(t, err)

			deleted, err := offerRepo.DeleteByCustomer(ctx, utils.DefaultCustomerID)
			require.NoError(t, err)
			assert.Equal(t, int64(25), deleted)

			count, err := offerRepo.Count(ctx, models.OfferFilter{CustomerID: utils.ToPtr(utils.DefaultCustomerID)})
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	})
}

func TestNotificationAnalyticsOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		city, err := fixtures.CityByName("Chicago")
		require.NoError(t, err)

		offer, err := fixtures.CreateTestOffer(city)
		require.NoError(t, err)

		_, err = fixtures.CreateTestNotification(offer, city, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestNotification(offer, city, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestNotification(offer, city, false)
		require.NoError(t, err)

		repo := repository.NewNotificationRepository(testDB.DB)

		t.Run("RecentFeed", func(t *testing.T) {
			items, err := repo.RecentFeed(ctx, &city.CityID, 10)
			require.NoError(t, err)
			require.Len(t, items, 3)

			for _, item := range items {
				assert.Equal(t, offer.ID, item.OfferID)
				assert.Equal(t, city.CityID, item.CityID)
				assert.Equal(t, offer.NotificationContent, item.NotificationContent)
				assert.False(t, item.CreatedAt.IsZero())
			}
		})

		t.Run("RecentFeedOtherCity", func(t *testing.T) {
			otherCity := models.DeriveCityID("London")
			items, err := repo.RecentFeed(ctx, &otherCity, 10)
			require.NoError(t, err)
			assert.Empty(t, items)
		})

		t.Run("ConversionByOffer", func(t *testing.T) {
			rows, err := repo.ConversionByOffer(ctx, &city.CityID, 10)
			require.NoError(t, err)
			require.Len(t, rows, 1)

			row := rows[0]
			assert.Equal(t, offer.ID, row.OfferID)
			assert.Equal(t, int64(3), row.Sent)
			assert.Equal(t, int64(1), row.Converted)
			assert.Greater(t, row.CostCents, int64(0))
		})

		t.Run("CountConverted", func(t *testing.T) {
			count, err := repo.Count(ctx, models.NotificationFilter{
				CityID:    &city.CityID,
				Converted: utils.ToPtr(true),
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})
	})
}

func TestSeedRunRepositoryOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewSeedRunRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		cityID := models.DeriveCityID("New York")

		t.Run("ByUUID", func(t *testing.T) {
			run, err := fixtures.CreateTestSeedRun(cityID, models.SeedRunStatusRunning)
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, run.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, run.ID, found.ID)
			assert.Equal(t, models.SeedRunStatusRunning, found.Status)
			assert.Nil(t, found.FinishedAt)
		})

		t.Run("ByUUIDNotFound", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("UpdateToTerminal", func(t *testing.T) {
			run, err := fixtures.CreateTestSeedRun(cityID, models.SeedRunStatusRunning)
			require.NoError(t, err)

			run.Status = models.SeedRunStatusSucceeded
			run.OfferCount = 120
			run.NotificationCount = 600
			run.FlushCount = 2
			run.FinishedAt = utils.UTCNowPtr()
			require.NoError(t, repo.Update(ctx, run))

			found, err := repo.ByUUID(ctx, run.UUID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, models.SeedRunStatusSucceeded, found.Status)
			assert.Equal(t, 120, found.OfferCount)
			assert.Equal(t, 600, found.NotificationCount)
			assert.NotNil(t, found.FinishedAt)
		})

		t.Run("ByFilterStatus", func(t *testing.T) {
			_, err := fixtures.CreateTestSeedRun(cityID, models.SeedRunStatusFailed)
			require.NoError(t, err)

			runs, err := repo.ByFilter(ctx, models.SeedRunFilter{
				Status: utils.ToPtr(models.SeedRunStatusFailed),
			}, "started_at DESC", 0, 0)
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.NotNil(t, runs[0].ErrorMessage)
		})

		t.Run("ExistsRunning", func(t *testing.T) {
			exists, err := repo.Exists(ctx, models.SeedRunFilter{
				Status: utils.ToPtr(models.SeedRunStatusRunning),
				CityID: &cityID,
			})
			require.NoError(t, err)
			assert.True(t, exists)
		})
	})
}

func TestAdminRepositoryOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewAdminRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin("ops", "hunter2-but-longer")
		require.NoError(t, err)
		assert.NotZero(t, admin.ID)
		assert.NotEqual(t, uuid.Nil, admin.UUID)

		t.Run("ByUsername", func(t *testing.T) {
			found, err := repo.ByUsername(ctx, "ops")
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, admin.ID, found.ID)
			assert.NotNil(t, found.IsActive)
			assert.True(t, *found.IsActive)
		})

		t.Run("ByUsernameNotFound", func(t *testing.T) {
			found, err := repo.ByUsername(ctx, "nobody")
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("ByUUID", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, admin.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, admin.Username, found.Username)
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			at := utils.UTCNow()
			require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))

			found, err := repo.ByUsername(ctx, "ops")
			require.NoError(t, err)
			require.NotNil(t, found)
			require.NotNil(t, found.LastLoginAt)
			assert.WithinDuration(t, at, *found.LastLoginAt, time.Second)
		})
	})
}

func TestClearAllTablesOnPostgres(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		city, err := fixtures.CityByName("Tokyo")
		require.NoError(t, err)

		_, _, err = fixtures.SeedDemoData(ctx, city, 5, 2)
		require.NoError(t, err)

		require.NoError(t, testDB.ClearAllTables())

		offerCount, err := repository.NewOfferRepository(testDB.DB).Count(ctx, models.OfferFilter{})
		require.NoError(t, err)
		assert.Zero(t, offerCount)

		cities, err := repository.NewCityRepository(testDB.DB).ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, cities)
	})
}
