package shipment

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"
)

// MaxProofLength bounds the signature and the photo, in characters. Clients
// send either a storage reference or the Base64 payload itself.
const MaxProofLength = 2 << 20

var ErrProofOfDeliveryIsNotConstructed = errors.New("ProofOfDelivery must be created via NewProofOfDelivery constructor")

// ProofOfDelivery is the evidence captured at hand-over: a signature and an
// optional photo, each a reference or an inline Base64 payload.
type ProofOfDelivery struct {
	signature string
	photo     string
	at        time.Time
	guard     guard.ConstructorGuard
}

// NewProofOfDelivery requires a signature; the photo is optional.
func NewProofOfDelivery(signature, photo string, at time.Time) (ProofOfDelivery, error) {
	signature = strings.TrimSpace(signature)
	photo = strings.TrimSpace(photo)
	if signature == "" {
		return ProofOfDelivery{}, errs.NewValueIsRequiredError("signature")
	}
	if n := utf8.RuneCountInString(signature); n > MaxProofLength {
		return ProofOfDelivery{}, errs.NewValueIsOutOfRangeError("signature length", n, 1, MaxProofLength)
	}
	if n := utf8.RuneCountInString(photo); n > MaxProofLength {
		return ProofOfDelivery{}, errs.NewValueIsOutOfRangeError("photo length", n, 0, MaxProofLength)
	}
	if at.IsZero() {
		return ProofOfDelivery{}, errs.NewValueIsRequiredError("proof of delivery timestamp")
	}
	return ProofOfDelivery{
		signature: signature,
		photo:     photo,
		at:        at.UTC(),
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (p ProofOfDelivery) Signature() string {
	return p.signature
}

// Photo returns the photo, or "" when none was supplied.
func (p ProofOfDelivery) Photo() string {
	return p.photo
}

func (p ProofOfDelivery) At() time.Time {
	return p.at
}

func (p ProofOfDelivery) Validate() error {
	return p.guard.Validate(ErrProofOfDeliveryIsNotConstructed)
}
