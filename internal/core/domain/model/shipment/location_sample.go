package shipment

import (
	"errors"
	"time"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

var ErrLocationSampleIsNotConstructed = errors.New("LocationSample must be created via NewLocationSample constructor")

// LocationSample is an agent position at a point in time. Only the newest
// sample of a shipment is ever stored.
type LocationSample struct {
	point kernel.GeoPoint
	at    time.Time
	guard guard.ConstructorGuard
}

func NewLocationSample(point kernel.GeoPoint, at time.Time) (LocationSample, error) {
	if err := point.Validate(); err != nil {
		return LocationSample{}, err
	}
	if at.IsZero() {
		return LocationSample{}, errs.NewValueIsRequiredError("sample timestamp")
	}
	return LocationSample{
		point: point,
		at:    at.UTC(),
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (s LocationSample) Point() kernel.GeoPoint {
	return s.point
}

func (s LocationSample) At() time.Time {
	return s.at
}

// IsNewerThan implements last-write-wins ordering by sample timestamp.
// Equal timestamps are not newer, so replays of the same sample are no-ops.
func (s LocationSample) IsNewerThan(other LocationSample) bool {
	return s.at.After(other.at)
}

func (s LocationSample) Validate() error {
	return s.guard.Validate(ErrLocationSampleIsNotConstructed)
}
