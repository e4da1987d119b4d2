// Package realtime delivers live tracking updates to connected clients.
//
// Connections join tracking rooms (keyed by tracking code) and notification
// channels (keyed by owner id) through RoomRegistry. LocationRelay broadcasts
// agent positions to a room and hands the newest sample of each shipment to
// LocationWriter for persistence. NotificationHub pushes status changes to
// the owner's channel.
//
// Every delivery is at-most-once. A connection whose send buffer is full
// misses the event; nothing is queued, acknowledged or retried.
package realtime

// Event names exchanged with streaming clients.
const (
	EventJoinTracking    = "join_tracking"
	EventLeaveTracking   = "leave_tracking"
	EventJoinUserRoom    = "join_user_room"
	EventUpdateLocation  = "update_location"
	EventReceiveLocation = "receive_location"
	EventShipmentUpdated = "shipment_updated"
	EventError           = "error"
)

// Event is the envelope written to a connection.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// LocationPayload is the body of receive_location.
type LocationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ShipmentUpdatedPayload is the body of shipment_updated.
type ShipmentUpdatedPayload struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Shipment any    `json:"shipment"`
}

// ErrorPayload is the body of error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewErrorEvent wraps message in an error event.
func NewErrorEvent(message string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Message: message}}
}
