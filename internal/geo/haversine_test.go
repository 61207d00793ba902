package geo

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestHaversineKm_SamePoint(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{-23.5505, -46.6333},
		{89.9999, 179.9999},
		{-90, -180},
	}
	for _, p := range points {
		if d := HaversineKm(p[0], p[1], p[0], p[1]); math.Abs(d) > eps {
			t.Errorf("HaversineKm(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{-23.5505, -46.6333, -22.9068, -43.1729},
		{51.5074, -0.1278, 48.8566, 2.3522},
		{10, 170, -10, -170},
	}
	for _, p := range pairs {
		ab := HaversineKm(p[0], p[1], p[2], p[3])
		ba := HaversineKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > eps {
			t.Errorf("asymmetric distance for %v: %v vs %v", p, ab, ba)
		}
	}
}

func TestHaversineKm_SaoPauloRio(t *testing.T) {
	d := HaversineKm(-23.5505, -46.6333, -22.9068, -43.1729)
	if d < 355 || d > 365 {
		t.Fatalf("expected ~360 km, got %.2f", d)
	}
}

func TestHaversineKm_Antipodal(t *testing.T) {
	d := HaversineKm(0, 0, 0, 180)
	if math.IsNaN(d) {
		t.Fatal("antipodal distance is NaN")
	}
	want := math.Pi * EarthRadiusKm
	if math.Abs(d-want) > 1e-6 {
		t.Fatalf("antipodal distance = %v, want %v", d, want)
	}

	d = HaversineKm(45, 30, -45, -150)
	if math.IsNaN(d) || math.Abs(d-want) > 1e-6 {
		t.Fatalf("antipodal distance = %v, want %v", d, want)
	}
}

func TestHaversineKm_MonotonicAlongBearing(t *testing.T) {
	// Due north from the user: latitude grows, longitude is fixed.
	userLat, userLng := -23.5505, -46.6333
	prev := 0.0
	for step := 1; step <= 100; step++ {
		lat := userLat + float64(step)*0.5
		d := HaversineKm(userLat, userLng, lat, userLng)
		if d <= prev {
			t.Fatalf("distance did not increase at step %d: %v <= %v", step, d, prev)
		}
		prev = d
	}
}

func TestValidLatLng(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{-90, 180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}
	for _, c := range cases {
		if got := ValidLatLng(c.lat, c.lng); got != c.want {
			t.Errorf("ValidLatLng(%v, %v) = %v, want %v", c.lat, c.lng, got, c.want)
		}
	}
}
