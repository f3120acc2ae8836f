// Package geo provides coordinate parsing and short-range distance math.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// kmPerDegree approximates the surface distance covered by one degree of
// latitude.
const kmPerDegree = 111.32

var (
	// ErrMalformedCoordinate indicates a coordinate string could not be parsed.
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	// ErrCoordinateOutOfRange indicates latitude or longitude is out of range.
	ErrCoordinateOutOfRange = errors.New("coordinate out of range")
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Validate reports whether the coordinate lies within valid bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return ErrCoordinateOutOfRange
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %v: %w", c.Lat, ErrCoordinateOutOfRange)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %v: %w", c.Lng, ErrCoordinateOutOfRange)
	}
	return nil
}

// String renders the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate parses a "lat,lng" string into a validated Coordinate.
func ParseCoordinate(value string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(value), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedCoordinate, value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrMalformedCoordinate, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrMalformedCoordinate, parts[1])
	}
	coord := Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return Coordinate{}, err
	}
	return coord, nil
}

// ApproxDistanceKm returns the Euclidean distance between two coordinates in
// degree space scaled to kilometers.
//
// This is an intentional simplification, not great-circle distance. It is
// adequate for same-city ranges (tens of kilometers) and degrades at longer
// range or near the poles.
func ApproxDistanceKm(a, b Coordinate) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return math.Sqrt(dLat*dLat+dLng*dLng) * kmPerDegree
}
