// Package testing provides test utilities and database setup for testing the offer platform
package testing

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/repository"
	"github.com/offergrid/offergrid/seeder"
	"github.com/offergrid/offergrid/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAdmin creates an active admin account with a bcrypt-hashed password
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}

	return admin, nil
}

// CityByName returns one catalog city inserted by the migrations
func (tf *TestFixtures) CityByName(name string) (*models.City, error) {
	var city models.City
	if err := tf.DB.DB.Where("city_name = ?", name).First(&city).Error; err != nil {
		return nil, fmt.Errorf("failed to find city %s: %w", name, err)
	}
	return &city, nil
}

// CreateTestCity inserts a city with its derived id precomputed
func (tf *TestFixtures) CreateTestCity(name string, centerLon, centerLat, diameter float64) (*models.City, error) {
	city := models.NewCity(name, centerLon, centerLat, diameter)
	if err := tf.DB.DB.Create(&city).Error; err != nil {
		return nil, fmt.Errorf("failed to create test city: %w", err)
	}
	return &city, nil
}

// CreateTestOffer generates one offer inside the city square and persists it
// together with its segments
func (tf *TestFixtures) CreateTestOffer(city *models.City) (*models.Offer, error) {
	gen := seeder.NewGenerator(seeder.DefaultVendors, rand.Int63())
	offer := gen.RandomOffers(*city, 1)[0]
	offer.SegmentIDs = offer.DerivedSegmentIDs()

	for i := range offer.Segments {
		seg := offer.Segments[i]
		if err := tf.DB.DB.Where(models.Segment{SegmentID: seg.SegmentID}).FirstOrCreate(&seg).Error; err != nil {
			return nil, fmt.Errorf("failed to create segment %d: %w", seg.SegmentID, err)
		}
	}

	if err := tf.DB.DB.Create(&offer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test offer: %w", err)
	}

	return &offer, nil
}

// CreateTestNotification records one delivery of the offer at the city center
func (tf *TestFixtures) CreateTestNotification(offer *models.Offer, city *models.City, converted bool) (*models.Notification, error) {
	cost := offer.MaximumBidCents / 2
	if cost < 1 {
		cost = 1
	}

	notification := &models.Notification{
		CustomerID: utils.DefaultCustomerID,
		OfferID:    offer.ID,
		CityID:     city.CityID,
		Lon:        city.CenterLon,
		Lat:        city.CenterLat,
		CostCents:  cost,
		Converted:  converted,
	}

	if err := tf.DB.DB.Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create test notification: %w", err)
	}

	return notification, nil
}

// CreateTestSeedRun records one seed run in the given terminal or running state
func (tf *TestFixtures) CreateTestSeedRun(cityID int64, status models.SeedRunStatus) (*models.SeedRun, error) {
	run := &models.SeedRun{
		CityID: cityID,
		Status: status,
	}
	if run.IsTerminal() {
		run.FinishedAt = utils.UTCNowPtr()
	}
	if status == models.SeedRunStatusFailed {
		run.ErrorMessage = utils.ToPtr("injected test failure")
	}

	if err := tf.DB.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create test seed run: %w", err)
	}

	return run, nil
}

// SeedDemoData runs the full generation pipeline: batched offer writes through
// the raw-SQL writers, then notifications against the persisted offer rows.
// It returns how many offers and notifications were written.
func (tf *TestFixtures) SeedDemoData(ctx context.Context, city *models.City, offerCount, perOffer int) (int, int, error) {
	gen := seeder.NewGenerator(seeder.DefaultVendors, rand.Int63())
	offers := gen.RandomOffers(*city, offerCount)

	writer := seeder.NewOfferWriter(repository.NewSQLExecutor(tf.DB.DB), utils.DefaultCustomerID)
	if err := writer.WriteOffers(ctx, offers); err != nil {
		return 0, 0, fmt.Errorf("failed to write offers: %w", err)
	}

	offerRepo := repository.NewOfferRepository(tf.DB.DB)
	persisted, err := offerRepo.ListByCustomer(ctx, utils.DefaultCustomerID, offerCount, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list persisted offers: %w", err)
	}
	byValue := make([]models.Offer, 0, len(persisted))
	for _, o := range persisted {
		byValue = append(byValue, *o)
	}

	notifications := gen.RandomNotifications(*city, byValue, perOffer)
	rows := make([]*models.Notification, 0, len(notifications))
	for i := range notifications {
		rows = append(rows, &notifications[i])
	}
	if len(rows) > 0 {
		if err := repository.NewNotificationRepository(tf.DB.DB).SaveBatch(ctx, rows); err != nil {
			return 0, 0, fmt.Errorf("failed to write notifications: %w", err)
		}
	}

	return len(offers), len(notifications), nil
}
