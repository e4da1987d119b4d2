package shipment

import (
	"errors"
	"strings"
	"unicode/utf8"

	"shiptrack/internal/pkg/errs"
	"shiptrack/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

const (
	// MaxPlaceLength bounds origin and destination. The origin becomes the
	// first history label, so both share the label limit.
	MaxPlaceLength = MaxLocationLabelLength

	// CostScale is the number of decimal places a cost is stored with.
	CostScale = 2
)

// MaxCost is the largest cost the cost column (NUMERIC(12,2)) can hold.
var MaxCost = decimal.RequireFromString("9999999999.99")

var ErrDetailsAreNotConstructed = errors.New("Details must be created via NewDetails constructor")

// Party is a sender or receiver of a parcel.
type Party struct {
	Name    string
	Address string
	Phone   string
}

func (p Party) validate(role string) error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.NewValueIsRequiredError(role + " name")
	}
	return nil
}

// Details is the descriptive part of a shipment fixed at creation.
type Details struct {
	packageName string
	sender      Party
	receiver    Party
	from        string
	to          string
	cost        decimal.Decimal
	guard       guard.ConstructorGuard
}

// NewDetails validates the descriptive fields of a shipment.
//
// Rules:
//   - package name, origin and destination are required
//   - sender and receiver need at least a name
//   - origin and destination are at most MaxPlaceLength characters
//   - cost is rounded to CostScale places and must lie in [0, MaxCost]
func NewDetails(packageName string, sender, receiver Party, from, to string, cost decimal.Decimal) (Details, error) {
	var errList []error
	packageName = strings.TrimSpace(packageName)
	if packageName == "" {
		errList = append(errList, errs.NewValueIsRequiredError("package name"))
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	errList = append(errList,
		validatePlace("from", from),
		validatePlace("to", to),
		sender.validate("sender"),
		receiver.validate("receiver"),
	)
	cost = cost.Round(CostScale)
	if cost.IsNegative() || cost.GreaterThan(MaxCost) {
		errList = append(errList, errs.NewValueIsOutOfRangeError("cost", cost.String(), 0, MaxCost.String()))
	}
	if err := errors.Join(errList...); err != nil {
		return Details{}, err
	}

	return Details{
		packageName: packageName,
		sender:      sender,
		receiver:    receiver,
		from:        from,
		to:          to,
		cost:        cost,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func validatePlace(param, place string) error {
	if place == "" {
		return errs.NewValueIsRequiredError(param)
	}
	if n := utf8.RuneCountInString(place); n > MaxPlaceLength {
		return errs.NewValueIsOutOfRangeError(param+" length", n, 1, MaxPlaceLength)
	}
	return nil
}

func (d Details) PackageName() string   { return d.packageName }
func (d Details) Sender() Party         { return d.sender }
func (d Details) Receiver() Party       { return d.receiver }
func (d Details) From() string          { return d.from }
func (d Details) To() string            { return d.to }
func (d Details) Cost() decimal.Decimal { return d.cost }

func (d Details) Validate() error {
	return d.guard.Validate(ErrDetailsAreNotConstructed)
}
