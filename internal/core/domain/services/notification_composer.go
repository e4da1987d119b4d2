package services

import (
	"errors"
	"fmt"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
)

// ErrNothingToAnnounce is returned for shipments whose status produces no
// owner notification (a freshly created Pending shipment).
var ErrNothingToAnnounce = errors.New("nothing to announce")

// NotificationType classifies a notification for presentation.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

// Notification is a status-change message addressed to a shipment owner.
type Notification struct {
	OwnerID  kernel.UUID
	Type     NotificationType
	Message  string
	Shipment *shipment.Shipment
}

// NotificationComposer turns the latest transition of a shipment into the
// message its owner sees.
//
// Business rules:
//   - every message references the tracking code
//   - a claim (InTransit) is announced as an acceptance, type info
//   - delivery is announced as DELIVERED, type success
//   - cancellation is a warning
//   - every other status is "Shipment <code> is now <status>", type success
//
// Example:
//
//	n, err := services.NewNotificationComposer().Compose(s)
//	if err != nil {
//	    return err
//	}
//	notifier.Notify(ctx, n)
type NotificationComposer struct{}

func NewNotificationComposer() NotificationComposer {
	return NotificationComposer{}
}

// Compose builds the notification for the shipment's current status.
func (NotificationComposer) Compose(s *shipment.Shipment) (Notification, error) {
	if err := s.Validate(); err != nil {
		return Notification{}, err
	}

	n := Notification{
		OwnerID:  s.Owner(),
		Shipment: s,
	}
	code := s.TrackingCode()

	switch s.Status() {
	case shipment.Pending:
		return Notification{}, ErrNothingToAnnounce
	case shipment.InTransit:
		n.Type = NotificationInfo
		n.Message = fmt.Sprintf("Your shipment %s has been accepted by a driver!", code)
	case shipment.Delivered:
		n.Type = NotificationSuccess
		n.Message = fmt.Sprintf("Shipment %s has been DELIVERED!", code)
	case shipment.Cancelled:
		n.Type = NotificationWarning
		n.Message = fmt.Sprintf("Shipment %s has been cancelled", code)
	default:
		n.Type = NotificationSuccess
		n.Message = fmt.Sprintf("Shipment %s is now %s", code, s.Status().Label())
	}
	return n, nil
}
