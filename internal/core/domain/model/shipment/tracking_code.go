package shipment

import (
	"crypto/rand"
	"fmt"
	"strings"
	"unicode"

	"shiptrack/internal/pkg/errs"
)

const (
	trackingCodePrefix   = "TRK-"
	trackingCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	trackingCodeLength   = 8
	maxTrackingCodeLen   = 64
)

// TrackingCode is the public, immutable identifier printed on a parcel.
type TrackingCode string

// NewTrackingCode generates "TRK-" followed by eight characters drawn from
// an alphabet without look-alike symbols.
func NewTrackingCode() (TrackingCode, error) {
	buf := make([]byte, trackingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate tracking code: %w", err)
	}
	for i, b := range buf {
		buf[i] = trackingCodeAlphabet[int(b)%len(trackingCodeAlphabet)]
	}
	return TrackingCode(trackingCodePrefix + string(buf)), nil
}

// ParseTrackingCode accepts any non-empty printable code without whitespace,
// so codes issued by other systems remain addressable.
func ParseTrackingCode(s string) (TrackingCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errs.NewValueIsRequiredError("tracking code")
	}
	if len(s) > maxTrackingCodeLen {
		return "", errs.NewValueIsOutOfRangeError("tracking code length", len(s), 1, maxTrackingCodeLen)
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", errs.NewValueIsInvalidErrorWithCause("tracking code", fmt.Errorf("%q contains whitespace or control characters", s))
		}
	}
	return TrackingCode(s), nil
}

func (c TrackingCode) String() string {
	return string(c)
}
