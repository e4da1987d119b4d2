package realtime

import (
	"context"
	"log/slog"

	"shiptrack/internal/core/application/usecases/queries"
	"shiptrack/internal/core/domain/model/shipment"
	"shiptrack/internal/core/domain/services"
)

// NotificationHub pushes shipment_updated to every connection in the owner's
// channel. An owner without live connections simply misses the event.
type NotificationHub struct {
	fanout     *Fanout
	logger     *slog.Logger
	onTerminal func(shipment.TrackingCode)
}

func NewNotificationHub(fanout *Fanout, logger *slog.Logger) *NotificationHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHub{
		fanout: fanout,
		logger: logger.With("component", "notification_hub"),
	}
}

// OnTerminal registers a callback invoked when a notification reports a
// shipment in a terminal status. It must be set before the hub is shared.
func (h *NotificationHub) OnTerminal(fn func(shipment.TrackingCode)) {
	h.onTerminal = fn
}

// Notify implements ports.Notifier.
func (h *NotificationHub) Notify(ctx context.Context, n services.Notification) {
	if n.Shipment == nil || n.Shipment.Validate() != nil {
		h.logger.WarnContext(ctx, "Dropping notification without shipment", "owner", n.OwnerID.String())
		return
	}
	if h.onTerminal != nil && n.Shipment.Status().IsTerminal() {
		h.onTerminal(n.Shipment.TrackingCode())
	}

	delivered := h.fanout.Broadcast(ctx, ChannelKey(n.OwnerID), Event{
		Name: EventShipmentUpdated,
		Data: ShipmentUpdatedPayload{
			Type:     string(n.Type),
			Message:  n.Message,
			Shipment: queries.NewShipmentResponse(n.Shipment),
		},
	})
	h.logger.DebugContext(ctx, "Notification sent",
		"owner", n.OwnerID.String(), "tracking_code", n.Shipment.TrackingCode().String(), "connections", delivered)
}
