package utils

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// Point represents a geographical point
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox represents a rectangular area
type BoundingBox struct {
	NorthEast Point `json:"northEast"`
	SouthWest Point `json:"southWest"`
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineDistance calculates the great-circle distance between two points
// in kilometers.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dlat := toRadians(lat2 - lat1)
	dlng := toRadians(lng2 - lng1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is HaversineDistance for two Points.
func Distance(a, b Point) float64 {
	return HaversineDistance(a.Lat, a.Lng, b.Lat, b.Lng)
}

// IsWithinRadius checks if a point is within a specified radius of another point
func IsWithinRadius(center, point Point, radiusKm float64) bool {
	return Distance(center, point) <= radiusKm
}

// GetBoundingBox creates a bounding box around a center point. It is used as a
// cheap SQL prefilter before the exact Haversine check. A box that crosses the
// antimeridian has SouthWest.Lng > NorthEast.Lng.
func GetBoundingBox(center Point, radiusKm float64) BoundingBox {
	angular := radiusKm / EarthRadiusKm * 180 / math.Pi

	latMin := math.Max(center.Lat-angular, -90)
	latMax := math.Min(center.Lat+angular, 90)

	// Longitude degrees shrink towards the poles.
	cosLat := math.Cos(toRadians(center.Lat))
	lngDelta := 180.0
	if cosLat > 1e-9 {
		lngDelta = math.Min(angular/cosLat, 180)
	}
	if lngDelta >= 180 || latMin == -90 || latMax == 90 {
		return BoundingBox{
			NorthEast: Point{Lat: latMax, Lng: 180},
			SouthWest: Point{Lat: latMin, Lng: -180},
		}
	}

	return BoundingBox{
		NorthEast: Point{Lat: latMax, Lng: wrapLng(center.Lng + lngDelta)},
		SouthWest: Point{Lat: latMin, Lng: wrapLng(center.Lng - lngDelta)},
	}
}

func wrapLng(lng float64) float64 {
	switch {
	case lng > 180:
		return lng - 360
	case lng < -180:
		return lng + 360
	}
	return lng
}

// CrossesAntimeridian reports whether the box wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.SouthWest.Lng > b.NorthEast.Lng
}

// LngRanges returns the longitude intervals covered by the box, two when it
// crosses the antimeridian.
func (b BoundingBox) LngRanges() [][2]float64 {
	if b.CrossesAntimeridian() {
		return [][2]float64{{b.SouthWest.Lng, 180}, {-180, b.NorthEast.Lng}}
	}
	return [][2]float64{{b.SouthWest.Lng, b.NorthEast.Lng}}
}

// Contains checks if a point is within the bounding box
func (b BoundingBox) Contains(p Point) bool {
	if p.Lat < b.SouthWest.Lat || p.Lat > b.NorthEast.Lat {
		return false
	}
	for _, r := range b.LngRanges() {
		if p.Lng >= r[0] && p.Lng <= r[1] {
			return true
		}
	}
	return false
}

// ValidCoordinates reports whether lat/lng are inside the WGS84 ranges.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
