package geo

import (
	"errors"
	"math"
	"testing"
)

func TestParseCoordinateRoundTrip(t *testing.T) {
	t.Parallel()

	coord, err := ParseCoordinate("43.4721,-80.5405")
	if err != nil {
		t.Fatalf("parse coordinate: %v", err)
	}
	if coord.Lat != 43.4721 {
		t.Fatalf("lat = %v, want 43.4721", coord.Lat)
	}
	if coord.Lng != -80.5405 {
		t.Fatalf("lng = %v, want -80.5405", coord.Lng)
	}
	if got := coord.String(); got != "43.4721,-80.5405" {
		t.Fatalf("string = %q, want %q", got, "43.4721,-80.5405")
	}
}

func TestParseCoordinateRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"", "43.47", "43.47,-80.54,1", "north,west"} {
		if _, err := ParseCoordinate(value); !errors.Is(err, ErrMalformedCoordinate) {
			t.Fatalf("parse %q error = %v, want %v", value, err, ErrMalformedCoordinate)
		}
	}
}

func TestParseCoordinateRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"91,0", "-91,0", "0,181", "0,-181"} {
		if _, err := ParseCoordinate(value); !errors.Is(err, ErrCoordinateOutOfRange) {
			t.Fatalf("parse %q error = %v, want %v", value, err, ErrCoordinateOutOfRange)
		}
	}
}

func TestApproxDistanceKmZeroForSamePoint(t *testing.T) {
	t.Parallel()

	point := Coordinate{Lat: 43.4721, Lng: -80.5405}
	if got := ApproxDistanceKm(point, point); got != 0 {
		t.Fatalf("distance = %v, want 0", got)
	}
}

func TestApproxDistanceKmScalesByDegree(t *testing.T) {
	t.Parallel()

	a := Coordinate{Lat: 43, Lng: -80}
	b := Coordinate{Lat: 44, Lng: -80}
	got := ApproxDistanceKm(a, b)
	if math.Abs(got-111.32) > 1e-9 {
		t.Fatalf("distance = %v, want 111.32", got)
	}
}

func TestApproxDistanceKmSymmetric(t *testing.T) {
	t.Parallel()

	a := Coordinate{Lat: 43.47, Lng: -80.54}
	b := Coordinate{Lat: 43.48, Lng: -80.52}
	if ApproxDistanceKm(a, b) != ApproxDistanceKm(b, a) {
		t.Fatal("expected symmetric distance")
	}
}
