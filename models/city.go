package models

import (
	"hash/fnv"
)

// City is the generation context for synthetic data: a named center point and
// the diameter, in degrees, of the square that offers and notifications are
// sampled within. Cities are reference data; the seeding pipeline upserts
// them but never mutates existing rows.
type City struct {
	CityID    int64   `gorm:"column:city_id;primaryKey;autoIncrement:false" json:"city_id"`
	CityName  string  `gorm:"column:city_name;size:255;not null;uniqueIndex:uk_cities_city_name" json:"city_name"`
	CenterLon float64 `gorm:"column:center_lon;not null" json:"center_lon"`
	CenterLat float64 `gorm:"column:center_lat;not null" json:"center_lat"`
	Diameter  float64 `gorm:"column:diameter;not null" json:"diameter"`
}

// TableName returns the table name for the model
func (City) TableName() string {
	return "cities"
}

// DeriveCityID computes a stable id from the city name, with the same FNV-1a
// widening used for segment ids.
func DeriveCityID(name string) int64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return int64(h.Sum32())
}

// NewCity builds a city with its derived id precomputed
func NewCity(name string, centerLon, centerLat, diameter float64) City {
	return City{
		CityID:    DeriveCityID(name),
		CityName:  name,
		CenterLon: centerLon,
		CenterLat: centerLat,
		Diameter:  diameter,
	}
}

// DefaultCities is the built-in demo catalog ensured at bootstrap
var DefaultCities = []City{
	NewCity("New York", -73.993562, 40.727063, 0.15),
	NewCity("San Francisco", -122.419416, 37.774929, 0.15),
	NewCity("Chicago", -87.629798, 41.878114, 0.15),
	NewCity("London", -0.127758, 51.507351, 0.15),
	NewCity("Tokyo", 139.691706, 35.689487, 0.20),
}

// CityFilter represents filter criteria for city queries
type CityFilter struct {
	CityID   *int64  `json:"city_id,omitempty"`
	CityName *string `json:"city_name,omitempty"`
}
