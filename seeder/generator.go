package seeder

import (
	"fmt"
	"math/rand"

	"github.com/offergrid/offergrid/geo"
	"github.com/offergrid/offergrid/models"
)

// Generator produces random but semantically valid offers and notification
// samples for a city. The vendor catalog and random seed are injected so
// callers get reproducible output when they need it; the generator owns its
// source and must not be shared across goroutines.
type Generator struct {
	vendors []Vendor
	rng     *rand.Rand
}

func NewGenerator(vendors []Vendor, seed int64) *Generator {
	return &Generator{
		vendors: vendors,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// RandomOffers generates count offers scattered across the city's bounding
// square. Each offer carries one or two segments, a notification zone, offer
// copy for a random vendor and a bid in the valid range.
func (g *Generator) RandomOffers(city models.City, count int) []models.Offer {
	offers := make([]models.Offer, 0, count)
	for i := 0; i < count; i++ {
		offers = append(offers, g.randomOffer(city))
	}
	return offers
}

func (g *Generator) randomOffer(city models.City) models.Offer {
	numSegments := g.randIntInRange(1, 3)
	segments := make([]models.Segment, 0, numSegments)
	for i := 0; i < numSegments; i++ {
		segments = append(segments, g.randomSegment(city))
	}

	vendor := g.vendors[g.rng.Intn(len(g.vendors))]
	offer := models.Offer{
		NotificationZone:    g.randomZone(city),
		NotificationContent: fmt.Sprintf("%d%% off at %s", g.randIntInRange(10, 50), vendor.Name),
		NotificationTarget:  fmt.Sprintf("https://www.%s/offers/%d", vendor.Domain(), g.randIntInRange(1, 1000)),
		MaximumBidCents:     int64(g.randIntInRange(2, 15)),
		Segments:            segments,
	}
	offer.SegmentIDs = offer.DerivedSegmentIDs()
	return offer
}

// randomSegment draws an interval and a kind uniformly, then a value of the
// matching shape: a geocode cell for the geocode kinds, a vendor name for
// purchases, a vendor domain for requests.
func (g *Generator) randomSegment(city models.City) models.Segment {
	interval := models.SegmentIntervals[g.rng.Intn(len(models.SegmentIntervals))]
	kind := models.SegmentKinds[g.rng.Intn(len(models.SegmentKinds))]

	var value string
	switch kind {
	case models.SegmentKindGeocode8:
		lat, lng := g.randomPoint(city)
		value = geo.EncodeCell(lat, lng, 8)
	case models.SegmentKindGeocode6:
		lat, lng := g.randomPoint(city)
		value = geo.EncodeCell(lat, lng, 6)
	case models.SegmentKindPurchase:
		value = g.vendors[g.rng.Intn(len(g.vendors))].Name
	case models.SegmentKindRequest:
		value = g.vendors[g.rng.Intn(len(g.vendors))].Domain()
	}

	return models.NewSegment(interval, kind, value)
}

// RandomNotifications generates perOffer delivery samples for each offer,
// scattered across the city, each costing less than the offer's maximum bid
// and converting roughly a quarter of the time. Offers are expected to be
// persisted rows so the samples reference real offer ids.
func (g *Generator) RandomNotifications(city models.City, offers []models.Offer, perOffer int) []models.Notification {
	if perOffer <= 0 || len(offers) == 0 {
		return nil
	}

	notifications := make([]models.Notification, 0, len(offers)*perOffer)
	for _, offer := range offers {
		for i := 0; i < perOffer; i++ {
			lat, lng := g.randomPoint(city)
			cost := int64(1)
			if offer.MaximumBidCents > 1 {
				cost = int64(g.randIntInRange(1, int(offer.MaximumBidCents)))
			}
			notifications = append(notifications, models.Notification{
				CustomerID: offer.CustomerID,
				OfferID:    offer.ID,
				CityID:     city.CityID,
				Lon:        lng,
				Lat:        lat,
				CostCents:  cost,
				Converted:  g.rng.Intn(4) == 0,
			})
		}
	}
	return notifications
}

// randomZone returns the WKT polygon of the cell of an 8- or 10-digit
// geocode at a random point in the city.
func (g *Generator) randomZone(city models.City) string {
	lat, lng := g.randomPoint(city)
	digits := 8
	if g.rng.Intn(2) == 1 {
		digits = 10
	}

	code := geo.EncodeCell(lat, lng, digits)
	bounds, err := geo.CellBounds(code)
	if err != nil {
		// unreachable: the code was produced by EncodeCell
		bounds = geo.SquareAround(lat, lng, city.Diameter/10)
	}
	return bounds.PolygonWKT()
}

func (g *Generator) randomPoint(city models.City) (lat, lng float64) {
	bounds := geo.SquareAround(city.CenterLat, city.CenterLon, city.Diameter)
	lat = bounds.LatLo + g.rng.Float64()*(bounds.LatHi-bounds.LatLo)
	lng = bounds.LngLo + g.rng.Float64()*(bounds.LngHi-bounds.LngLo)
	return lat, lng
}

// randIntInRange returns a uniform integer in [lo, hi).
func (g *Generator) randIntInRange(lo, hi int) int {
	return g.rng.Intn(hi-lo) + lo
}
