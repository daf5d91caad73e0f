// Package geo provides bounding-box math, WKT rendering, and the Open
// Location Code geocoding primitives used by the seeding pipeline and the
// dashboard map queries.
package geo

import (
	"fmt"
	"strconv"
	"strings"

	olc "github.com/google/open-location-code/go"
)

// Bounds is a geographic bounding box in degrees
type Bounds struct {
	LatLo float64 `json:"lat_lo"`
	LatHi float64 `json:"lat_hi"`
	LngLo float64 `json:"lng_lo"`
	LngHi float64 `json:"lng_hi"`
}

// SquareAround returns the square of the given diameter centered on a point
func SquareAround(lat, lng, diameter float64) Bounds {
	half := diameter / 2
	return Bounds{
		LatLo: lat - half,
		LatHi: lat + half,
		LngLo: lng - half,
		LngHi: lng + half,
	}
}

// Contains reports whether the point lies within the bounds, inclusive
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.LatLo && lat <= b.LatHi && lng >= b.LngLo && lng <= b.LngHi
}

// Center returns the midpoint of the bounds
func (b Bounds) Center() (lat, lng float64) {
	return (b.LatLo + b.LatHi) / 2, (b.LngLo + b.LngHi) / 2
}

// Intersects reports whether two bounds overlap, edges included
func (b Bounds) Intersects(other Bounds) bool {
	return b.LatLo <= other.LatHi && b.LatHi >= other.LatLo &&
		b.LngLo <= other.LngHi && b.LngHi >= other.LngLo
}

// PolygonWKT renders the bounds as a closed well-known-text polygon ring in
// longitude-latitude order, the format the offers notification_zone column
// stores and map clients consume.
func (b Bounds) PolygonWKT() string {
	corners := [][2]float64{
		{b.LngLo, b.LatLo},
		{b.LngHi, b.LatLo},
		{b.LngHi, b.LatHi},
		{b.LngLo, b.LatHi},
		{b.LngLo, b.LatLo},
	}

	points := make([]string, 0, len(corners))
	for _, c := range corners {
		points = append(points, formatCoord(c[0])+" "+formatCoord(c[1]))
	}
	return "POLYGON((" + strings.Join(points, ",") + "))"
}

// formatCoord renders a coordinate without scientific notation, which WKT
// parsers reject
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParsePolygonBounds reads a WKT polygon back into the bounding box of its
// outer ring. Only the envelope is recovered; the zones this system writes
// are axis-aligned rectangles, so nothing is lost.
func ParsePolygonBounds(wkt string) (Bounds, error) {
	trimmed := strings.TrimSpace(wkt)
	if !strings.HasPrefix(trimmed, "POLYGON((") || !strings.HasSuffix(trimmed, "))") {
		return Bounds{}, fmt.Errorf("malformed polygon %q", wkt)
	}

	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "POLYGON(("), "))")
	if ring := strings.Index(inner, ")"); ring >= 0 {
		inner = inner[:ring]
	}

	var b Bounds
	for i, pair := range strings.Split(inner, ",") {
		parts := strings.Fields(strings.TrimSpace(pair))
		if len(parts) != 2 {
			return Bounds{}, fmt.Errorf("malformed polygon point %q", pair)
		}
		lng, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("malformed polygon longitude %q: %w", parts[0], err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("malformed polygon latitude %q: %w", parts[1], err)
		}

		if i == 0 {
			b = Bounds{LatLo: lat, LatHi: lat, LngLo: lng, LngHi: lng}
			continue
		}
		if lat < b.LatLo {
			b.LatLo = lat
		}
		if lat > b.LatHi {
			b.LatHi = lat
		}
		if lng < b.LngLo {
			b.LngLo = lng
		}
		if lng > b.LngHi {
			b.LngHi = lng
		}
	}
	return b, nil
}

// EncodeCell encodes a point as an Open Location Code of the given digit length
func EncodeCell(lat, lng float64, digits int) string {
	return olc.Encode(lat, lng, digits)
}

// CellBounds decodes a geocode into the bounding box of its cell
func CellBounds(code string) (Bounds, error) {
	area, err := olc.Decode(code)
	if err != nil {
		return Bounds{}, fmt.Errorf("failed to decode geocode %q: %w", code, err)
	}
	return Bounds{
		LatLo: area.LatLo,
		LatHi: area.LatHi,
		LngLo: area.LngLo,
		LngHi: area.LngHi,
	}, nil
}
