package geo

import (
	"math"
	"testing"
)

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"valid san francisco", Point{Lat: 37.7749, Lon: -122.4194}, false},
		{"valid boundary north", Point{Lat: 90, Lon: 0}, false},
		{"valid boundary west", Point{Lat: 0, Lon: -180}, false},
		{"latitude too high", Point{Lat: 999, Lon: 999}, true},
		{"latitude too low", Point{Lat: -90.01, Lon: 0}, true},
		{"longitude too high", Point{Lat: 0, Lon: 180.5}, true},
		{"nan latitude", Point{Lat: math.NaN(), Lon: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHaversineSymmetric(t *testing.T) {
	a := Point{Lat: 37.7749, Lon: -122.4194} // San Francisco
	b := Point{Lat: 40.7128, Lon: -74.0060}  // New York

	ab := Haversine(a, b)
	ba := Haversine(b, a)

	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("Haversine not symmetric: %f vs %f", ab, ba)
	}
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 51.5074, Lon: -0.1278}
	if d := Haversine(p, p); d != 0 {
		t.Errorf("Expected 0 distance for same point, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// SF to NY is roughly 4130 km
	a := Point{Lat: 37.7749, Lon: -122.4194}
	b := Point{Lat: 40.7128, Lon: -74.0060}

	d := Haversine(a, b)
	if d < 4100 || d > 4160 {
		t.Errorf("Expected SF-NY distance around 4130km, got %f", d)
	}
}

func TestPointKeyRoundsCoordinates(t *testing.T) {
	a := Point{Lat: 37.77491, Lon: -122.41941}
	b := Point{Lat: 37.77493, Lon: -122.41939}

	if a.Key() != b.Key() {
		t.Errorf("Expected nearby points to share a key: %s vs %s", a.Key(), b.Key())
	}

	far := Point{Lat: 37.78, Lon: -122.41941}
	if a.Key() == far.Key() {
		t.Errorf("Expected distinct keys for distinct points, both %s", a.Key())
	}
}

func TestMilesToMeters(t *testing.T) {
	got := MilesToMeters(5)
	want := 5 * 1.60934 * 1000
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("MilesToMeters(5) = %f, want %f", got, want)
	}
}

func TestRoundDistance(t *testing.T) {
	if got := RoundDistance(3.14159); got != 3.1 {
		t.Errorf("RoundDistance(3.14159) = %f, want 3.1", got)
	}
	if got := RoundDistance(2.56); got != 2.6 {
		t.Errorf("RoundDistance(2.56) = %f, want 2.6", got)
	}
}
