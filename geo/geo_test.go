package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquareAround(t *testing.T) {
	b := SquareAround(40.727063, -73.993562, 0.15)

	assert.InDelta(t, 40.652063, b.LatLo, 1e-9)
	assert.InDelta(t, 40.802063, b.LatHi, 1e-9)
	assert.InDelta(t, -74.068562, b.LngLo, 1e-9)
	assert.InDelta(t, -73.918562, b.LngHi, 1e-9)

	lat, lng := b.Center()
	assert.InDelta(t, 40.727063, lat, 1e-9)
	assert.InDelta(t, -73.993562, lng, 1e-9)
}

func TestBoundsContains(t *testing.T) {
	b := SquareAround(40.0, -74.0, 0.2)

	assert.True(t, b.Contains(40.0, -74.0))
	assert.True(t, b.Contains(40.1, -73.9))
	assert.False(t, b.Contains(40.2, -74.0))
	assert.False(t, b.Contains(40.0, -74.2))
}

func TestPolygonWKT(t *testing.T) {
	b := Bounds{LatLo: 40.5, LatHi: 40.75, LngLo: -74.25, LngHi: -74.0}
	wkt := b.PolygonWKT()

	assert.Equal(t, "POLYGON((-74.25 40.5,-74 40.5,-74 40.75,-74.25 40.75,-74.25 40.5))", wkt)

	t.Run("RingIsClosed", func(t *testing.T) {
		inner := strings.TrimSuffix(strings.TrimPrefix(wkt, "POLYGON(("), "))")
		points := strings.Split(inner, ",")
		require.Len(t, points, 5)
		assert.Equal(t, points[0], points[len(points)-1])
	})

	t.Run("NoScientificNotation", func(t *testing.T) {
		tiny := Bounds{LatLo: 0.0000001, LatHi: 0.0000002, LngLo: 0.0000001, LngHi: 0.0000002}
		assert.NotContains(t, tiny.PolygonWKT(), "e")
	})
}

func TestEncodeCell(t *testing.T) {
	code8 := EncodeCell(40.727063, -73.993562, 8)
	code10 := EncodeCell(40.727063, -73.993562, 10)

	// An 8-digit code carries its digits before the separator; a 10-digit
	// code continues after it.
	assert.Len(t, code8, 9)
	assert.True(t, strings.HasSuffix(code8, "+"))
	assert.Len(t, code10, 11)
	assert.Contains(t, code10, "+")
}

func TestCellBounds(t *testing.T) {
	lat, lng := 40.727063, -73.993562
	code := EncodeCell(lat, lng, 8)

	b, err := CellBounds(code)
	require.NoError(t, err)

	assert.True(t, b.Contains(lat, lng))
	assert.Less(t, b.LatLo, b.LatHi)
	assert.Less(t, b.LngLo, b.LngHi)

	t.Run("InvalidCode", func(t *testing.T) {
		_, err := CellBounds("not-a-geocode")
		assert.Error(t, err)
	})
}

func TestBoundsIntersects(t *testing.T) {
	base := Bounds{LatLo: 40.0, LatHi: 41.0, LngLo: -75.0, LngHi: -74.0}

	assert.True(t, base.Intersects(base))
	assert.True(t, base.Intersects(Bounds{LatLo: 40.5, LatHi: 41.5, LngLo: -74.5, LngHi: -73.5}))
	assert.True(t, base.Intersects(Bounds{LatLo: 41.0, LatHi: 42.0, LngLo: -74.0, LngHi: -73.0}), "touching edges overlap")
	assert.False(t, base.Intersects(Bounds{LatLo: 41.1, LatHi: 42.0, LngLo: -75.0, LngHi: -74.0}))
	assert.False(t, base.Intersects(Bounds{LatLo: 40.0, LatHi: 41.0, LngLo: -73.9, LngHi: -73.0}))
}

func TestParsePolygonBounds(t *testing.T) {
	t.Run("RoundTripsRenderedPolygon", func(t *testing.T) {
		want := Bounds{LatLo: 40.5, LatHi: 40.75, LngLo: -74.25, LngHi: -74.0}

		got, err := ParsePolygonBounds(want.PolygonWKT())

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("RecoversEnvelopeOfIrregularRing", func(t *testing.T) {
		got, err := ParsePolygonBounds("POLYGON((-74 40.5, -73.5 40.6, -73.8 41.2, -74 40.5))")

		require.NoError(t, err)
		assert.Equal(t, Bounds{LatLo: 40.5, LatHi: 41.2, LngLo: -74.0, LngHi: -73.5}, got)
	})

	t.Run("IgnoresInteriorRings", func(t *testing.T) {
		got, err := ParsePolygonBounds("POLYGON((0 0,2 0,2 2,0 2,0 0),(0.5 0.5,1 0.5,1 1,0.5 1,0.5 0.5))")

		require.NoError(t, err)
		assert.Equal(t, Bounds{LatLo: 0, LatHi: 2, LngLo: 0, LngHi: 2}, got)
	})

	t.Run("RejectsMalformedInput", func(t *testing.T) {
		for _, wkt := range []string{"", "POINT(1 2)", "POLYGON((1 2,3))", "POLYGON((a b,c d))"} {
			_, err := ParsePolygonBounds(wkt)
			assert.Error(t, err, "expected rejection of %q", wkt)
		}
	})
}
