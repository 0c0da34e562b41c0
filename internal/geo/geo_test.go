package geo

import (
	"math"
	"testing"
)

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"origin", Coordinate{0, 0}, false},
		{"corners", Coordinate{-90, 180}, false},
		{"lat too high", Coordinate{90.1, 0}, true},
		{"lon too low", Coordinate{0, -180.5}, true},
		{"nan", Coordinate{math.NaN(), 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDistanceKm(t *testing.T) {
	paris := Coordinate{Lat: 48.8566, Lon: 2.3522}
	london := Coordinate{Lat: 51.5074, Lon: -0.1278}

	d := DistanceKm(paris, london)
	if d < 338 || d > 348 {
		t.Fatalf("expected Paris-London around 343km, got %.1f", d)
	}

	if got := DistanceKm(paris, paris); got != 0 {
		t.Fatalf("expected zero distance to self, got %v", got)
	}

	if back := DistanceKm(london, paris); math.Abs(back-d) > 1e-9 {
		t.Fatalf("distance not symmetric: %v vs %v", d, back)
	}
}
