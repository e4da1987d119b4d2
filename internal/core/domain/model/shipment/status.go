package shipment

import (
	"fmt"
	"strings"

	"shiptrack/internal/pkg/errs"
)

// Status is the lifecycle state of a shipment.
//
// State transitions:
//
//	Pending ──claim──> InTransit ──> OutForDelivery ──deliver──> Delivered
//	   │                   │                │
//	   └───────────────────┴────────────────┴──────────────────> Cancelled
//
// Delivered and Cancelled are terminal. Pending is entered only at creation;
// InTransit only through a claim.
type Status int

const (
	// Unknown catches uninitialised values.
	Unknown Status = iota

	// Pending is the creation state. The shipment waits for an agent to claim it.
	Pending

	// InTransit means an agent owns the shipment and is carrying it.
	InTransit

	// OutForDelivery means the shipment is on its final leg.
	OutForDelivery

	// Delivered is terminal and carries proof of delivery.
	Delivered

	// Cancelled is terminal and reachable from any non-terminal state.
	Cancelled
)

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:        "Unknown",
		Pending:        "Pending",
		InTransit:      "InTransit",
		OutForDelivery: "OutForDelivery",
		Delivered:      "Delivered",
		Cancelled:      "Cancelled",
	}
}

func getStatusLabels() map[Status]string {
	//nolint:exhaustive // Unknown has no label
	return map[Status]string{
		Pending:        "Pending",
		InTransit:      "In Transit",
		OutForDelivery: "Out for Delivery",
		Delivered:      "Delivered",
		Cancelled:      "Cancelled",
	}
}

// getTransitions is the complete transition table. Pairs absent from it are
// rejected with errs.ErrInvalidTransition.
func getTransitions() map[Status][]Status {
	//nolint:exhaustive // terminal states have no outgoing edges
	return map[Status][]Status{
		Pending:        {InTransit, Cancelled},
		InTransit:      {OutForDelivery, Cancelled},
		OutForDelivery: {Delivered, Cancelled},
	}
}

// ParseStatus accepts the canonical names ("OutForDelivery") as well as the
// human labels ("Out for Delivery") and is case-insensitive.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for status, name := range getStatusStrings() {
		if status != Unknown && strings.ToLower(name) == normalized {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", s))
}

// Validate rejects Unknown and any value outside the enumeration.
func (s Status) Validate() error {
	if s < Pending || s > Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "Unknown"
}

// Label returns the human form used in notification messages, e.g. "In Transit".
func (s Status) Label() string {
	if label, ok := getStatusLabels()[s]; ok {
		return label
	}
	return s.String()
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == Delivered || s == Cancelled
}

// HasAgent reports whether a shipment in this status must have an assigned agent.
func (s Status) HasAgent() bool {
	return s == InTransit || s == OutForDelivery || s == Delivered
}

// ValidateTransition checks the table without side effects.
//
// Returns errs.InvalidTransitionError when s is terminal or to is not a
// successor of s.
func (s Status) ValidateTransition(to Status) error {
	if s.IsTerminal() {
		return errs.NewInvalidTransitionErrorWithCause(s, to, fmt.Errorf("%s is terminal", s))
	}
	if err := to.Validate(); err != nil {
		return err
	}
	for _, next := range getTransitions()[s] {
		if next == to {
			return nil
		}
	}
	return errs.NewInvalidTransitionError(s, to)
}
