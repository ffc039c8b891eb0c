// Package geo holds the point type shared by users and services and the
// great-circle math used to filter services by radius.
package geo

import "math"

const EarthRadiusKm = 6371.0

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func Within(center, p Point, radiusKm float64) bool {
	return Distance(center, p) <= radiusKm
}

// ValidRadius is true for a finite radius greater than zero.
func ValidRadius(km float64) bool {
	return km > 0 && !math.IsInf(km, 1)
}

// Box is a latitude/longitude rectangle in degrees.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns a box holding every point within radiusKm of center.
// Boxes that reach a pole or cross the antimeridian span all longitudes.
func BoundingBox(center Point, radiusKm float64) Box {
	angular := radiusKm / EarthRadiusKm
	lat := radians(center.Lat)

	box := Box{
		MinLat: degrees(lat - angular),
		MaxLat: degrees(lat + angular),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}

	ratio := math.Sin(angular) / math.Cos(lat)
	if ratio >= 1 {
		return box
	}
	dLng := degrees(math.Asin(ratio))
	if center.Lng-dLng < -180 || center.Lng+dLng > 180 {
		return box
	}
	box.MinLng = center.Lng - dLng
	box.MaxLng = center.Lng + dLng
	return box
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
