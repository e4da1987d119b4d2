package kernel

import (
	"errors"
	"fmt"
	"math"

	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// ErrGeoPointIsNotConstructed is returned when validating a zero-value GeoPoint.
var ErrGeoPointIsNotConstructed = errs.NewValueIsRequiredError("geo point must be created via NewGeoPoint")

// GeoPoint is a WGS84 position. Latitude lies in [-90, 90] and longitude
// in [-180, 180], both inclusive.
//
// Example:
//
//	p, err := kernel.NewGeoPoint(52.52, 13.405)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(p) // GeoPoint(52.520000,13.405000)
type GeoPoint struct {
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

// NewGeoPoint validates both coordinates and returns the point.
// All violations are reported together.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	var latErr, lngErr error
	if lat < MinLatitude || lat > MaxLatitude || math.IsNaN(lat) {
		latErr = errs.NewValueIsOutOfRangeError("lat", lat, MinLatitude, MaxLatitude)
	}
	if lng < MinLongitude || lng > MaxLongitude || math.IsNaN(lng) {
		lngErr = errs.NewValueIsOutOfRangeError("lng", lng, MinLongitude, MaxLongitude)
	}
	if err := errors.Join(latErr, lngErr); err != nil {
		return GeoPoint{}, err
	}

	return GeoPoint{
		lat:   lat,
		lng:   lng,
		guard: guard.NewConstructorGuard(),
	}, nil
}

// Lat returns the latitude in degrees.
func (p GeoPoint) Lat() float64 {
	return p.lat
}

// Lng returns the longitude in degrees.
func (p GeoPoint) Lng() float64 {
	return p.lng
}

// Validate returns ErrGeoPointIsNotConstructed for the zero value.
func (p GeoPoint) Validate() error {
	return p.guard.Validate(ErrGeoPointIsNotConstructed)
}

// IsEqual compares coordinates exactly.
func (p GeoPoint) IsEqual(other GeoPoint) bool {
	return p.lat == other.lat && p.lng == other.lng
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("GeoPoint(%f,%f)", p.lat, p.lng)
}
