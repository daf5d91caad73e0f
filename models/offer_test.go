package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentIDList(t *testing.T) {
	t.Run("ValueMarshalsOrderedJSON", func(t *testing.T) {
		list := SegmentIDList{42, 7, 42}
		v, err := list.Value()
		require.NoError(t, err)
		assert.JSONEq(t, "[42,7,42]", string(v.([]byte)))
	})

	t.Run("NilValueMarshalsEmptyArray", func(t *testing.T) {
		var list SegmentIDList
		v, err := list.Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", string(v.([]byte)))
	})

	t.Run("ScanBytes", func(t *testing.T) {
		var list SegmentIDList
		require.NoError(t, list.Scan([]byte("[1,2,3]")))
		assert.Equal(t, SegmentIDList{1, 2, 3}, list)
	})

	t.Run("ScanString", func(t *testing.T) {
		var list SegmentIDList
		require.NoError(t, list.Scan("[9]"))
		assert.Equal(t, SegmentIDList{9}, list)
	})

	t.Run("ScanNil", func(t *testing.T) {
		var list SegmentIDList
		require.NoError(t, list.Scan(nil))
		assert.Empty(t, list)
	})

	t.Run("ScanRejectsOtherTypes", func(t *testing.T) {
		var list SegmentIDList
		assert.Error(t, list.Scan(12))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		original := SegmentIDList{
			DeriveSegmentID(SegmentIntervalDay, SegmentKindPurchase, "Prada"),
			DeriveSegmentID(SegmentIntervalHour, SegmentKindGeocode8, "87G8P200+"),
		}
		v, err := original.Value()
		require.NoError(t, err)

		var decoded SegmentIDList
		require.NoError(t, decoded.Scan(v))
		assert.Equal(t, original, decoded)
	})
}

func TestOffer(t *testing.T) {
	t.Run("TableName", func(t *testing.T) {
		assert.Equal(t, "offers", Offer{}.TableName())
	})

	t.Run("DerivedSegmentIDsPreservesOrder", func(t *testing.T) {
		s1 := NewSegment(SegmentIntervalMinute, SegmentKindPurchase, "Gucci")
		s2 := NewSegment(SegmentIntervalMonth, SegmentKindRequest, "gucci.io")
		offer := Offer{Segments: []Segment{s2, s1}}

		ids := offer.DerivedSegmentIDs()
		require.Len(t, ids, 2)
		assert.Equal(t, s2.SegmentID, ids[0])
		assert.Equal(t, s1.SegmentID, ids[1])
	})

	t.Run("SegmentIDsColumnParsesToDerivedIDs", func(t *testing.T) {
		offer := Offer{Segments: []Segment{
			NewSegment(SegmentIntervalDay, SegmentKindGeocode6, "87G8Q200+"),
			NewSegment(SegmentIntervalWeek, SegmentKindPurchase, "Armani"),
		}}
		offer.SegmentIDs = offer.DerivedSegmentIDs()

		encoded, err := json.Marshal(offer.SegmentIDs)
		require.NoError(t, err)

		var parsed []int64
		require.NoError(t, json.Unmarshal(encoded, &parsed))
		require.Len(t, parsed, 2)
		for i, seg := range offer.Segments {
			assert.Equal(t, seg.SegmentID, parsed[i])
		}
	})
}

func TestDeriveCityID(t *testing.T) {
	assert.Equal(t, DeriveCityID("New York"), DeriveCityID("New York"))
	assert.NotEqual(t, DeriveCityID("New York"), DeriveCityID("Tokyo"))
	assert.GreaterOrEqual(t, DeriveCityID("London"), int64(0))

	for _, city := range DefaultCities {
		assert.Equal(t, DeriveCityID(city.CityName), city.CityID)
		assert.Greater(t, city.Diameter, 0.0)
	}
}
