package ports

import (
	"context"

	"shiptrack/internal/core/domain/services"
)

// Notifier delivers a notification to every live connection of its owner.
// Delivery is at-most-once and best-effort; an offline owner is a no-op,
// so Notify has no error result.
type Notifier interface {
	Notify(ctx context.Context, n services.Notification)
}
