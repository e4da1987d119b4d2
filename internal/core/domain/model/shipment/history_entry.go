package shipment

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

const (
	// ClaimLocationLabel is recorded when an agent claims a shipment.
	ClaimLocationLabel = "Driver Location"

	// DeliveryLocationLabel is recorded on the Delivered transition.
	DeliveryLocationLabel = "Destination"

	// MaxLocationLabelLength bounds a history label, in characters.
	MaxLocationLabelLength = 256
)

var ErrHistoryEntryIsNotConstructed = errors.New("HistoryEntry must be created via NewHistoryEntry constructor")

// HistoryEntry is one row of the append-only audit trail.
type HistoryEntry struct {
	status   Status
	location string
	at       time.Time
	guard    guard.ConstructorGuard
}

// NewHistoryEntry validates the status and trims the free-text location label.
// An empty label is allowed.
func NewHistoryEntry(status Status, location string, at time.Time) (HistoryEntry, error) {
	if err := status.Validate(); err != nil {
		return HistoryEntry{}, err
	}
	location = strings.TrimSpace(location)
	if n := utf8.RuneCountInString(location); n > MaxLocationLabelLength {
		return HistoryEntry{}, errs.NewValueIsOutOfRangeError("location label length", n, 0, MaxLocationLabelLength)
	}
	if at.IsZero() {
		return HistoryEntry{}, errs.NewValueIsRequiredError("history timestamp")
	}
	return HistoryEntry{
		status:   status,
		location: location,
		at:       at.UTC(),
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (e HistoryEntry) Status() Status {
	return e.status
}

func (e HistoryEntry) Location() string {
	return e.location
}

func (e HistoryEntry) At() time.Time {
	return e.at
}

func (e HistoryEntry) Validate() error {
	return e.guard.Validate(ErrHistoryEntryIsNotConstructed)
}
