package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
	}{
		{"same point", Point{0, 0}, Point{0, 0}, 0},
		{"small longitude offset on the equator", Point{0, 0}, Point{0, 0.05}, 5.56},
		{"one degree of latitude", Point{10, 20}, Point{11, 20}, 111.19},
		{"jakarta to bandung", Point{-6.2088, 106.8456}, Point{-6.9175, 107.6191}, 116.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > 0.5 {
				t.Fatalf("Distance() = %.3f, want ~%.2f", got, tt.want)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	service := Point{Lat: 0, Lng: 0}
	center := Point{Lat: 0, Lng: 0.05}

	if !Within(center, service, 10) {
		t.Fatal("expected service inside a 10 km radius")
	}
	if Within(center, service, 1) {
		t.Fatal("expected service outside a 1 km radius")
	}
}

func TestPointValid(t *testing.T) {
	if !(Point{Lat: 45, Lng: -120}).Valid() {
		t.Fatal("expected point to be valid")
	}
	if (Point{Lat: 91, Lng: 0}).Valid() {
		t.Fatal("expected latitude 91 to be invalid")
	}
	if (Point{Lat: 0, Lng: 181}).Valid() {
		t.Fatal("expected longitude 181 to be invalid")
	}
}

func TestValidRadius(t *testing.T) {
	tests := []struct {
		km   float64
		want bool
	}{
		{10, true},
		{0.5, true},
		{0, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}

	for _, tt := range tests {
		if got := ValidRadius(tt.km); got != tt.want {
			t.Errorf("ValidRadius(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	t.Run("holds every point on the radius", func(t *testing.T) {
		center := Point{Lat: -6.2088, Lng: 106.8456}
		box := BoundingBox(center, 25)
		// walk just inside the circle and check each point lies in the box
		for bearing := 0.0; bearing < 360; bearing += 5 {
			p := destination(center, bearing, 24.99)
			if !box.Contains(p) {
				t.Fatalf("bearing %v: %+v outside %+v", bearing, p, box)
			}
		}
		if box.MaxLng-box.MinLng >= 360 {
			t.Fatalf("box spans all longitudes: %+v", box)
		}
	})

	t.Run("crossing the antimeridian spans all longitudes", func(t *testing.T) {
		box := BoundingBox(Point{Lat: 0, Lng: 179.99}, 10)
		if box.MinLng != -180 || box.MaxLng != 180 {
			t.Fatalf("box = %+v, want full longitude range", box)
		}
		if !box.Contains(Point{Lat: 0, Lng: -179.99}) {
			t.Fatal("expected point across the antimeridian inside the box")
		}
	})

	t.Run("reaching a pole clamps latitude", func(t *testing.T) {
		box := BoundingBox(Point{Lat: 89.99, Lng: 0}, 50)
		if box.MaxLat != 90 || box.MinLng != -180 || box.MaxLng != 180 {
			t.Fatalf("box = %+v, want polar cap", box)
		}
	})
}

// destination moves km from p along bearing degrees on the sphere
func destination(p Point, bearing, km float64) Point {
	d := km / EarthRadiusKm
	lat1, lng1, b := radians(p.Lat), radians(p.Lng), radians(bearing)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(b))
	lng2 := lng1 + math.Atan2(math.Sin(b)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return Point{Lat: degrees(lat2), Lng: degrees(lng2)}
}
