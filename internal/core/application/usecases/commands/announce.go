package commands

import (
	"context"

	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/domain/services"
	"shiptrack/internal/core/ports"
)

// announce hands the notification for s to the notifier. It runs after the
// commit, so a failure to compose never undoes a persisted transition.
func announce(ctx context.Context, notifier ports.Notifier, s *shipment.Shipment) {
	if notifier == nil {
		return
	}
	n, err := services.NewNotificationComposer().Compose(s)
	if err != nil {
		return
	}
	notifier.Notify(ctx, n)
}
