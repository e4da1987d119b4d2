package realtime

import (
	"fmt"

	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/domain/model/shipment"
)

// KeyKind separates tracking rooms from notification channels so a tracking
// code and a user id can never collide.
type KeyKind uint8

const (
	KindRoom KeyKind = iota + 1
	KindChannel
)

func (k KeyKind) String() string {
	switch k {
	case KindRoom:
		return "room"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Key addresses one room or channel.
type Key struct {
	Kind KeyKind `json:"kind"`
	Name string  `json:"name"`
}

// RoomKey is the tracking room of a shipment.
func RoomKey(code shipment.TrackingCode) Key {
	return Key{Kind: KindRoom, Name: code.String()}
}

// ChannelKey is the notification channel of a user.
func ChannelKey(userID kernel.UUID) Key {
	return Key{Kind: KindChannel, Name: userID.String()}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Name)
}

// IsValid reports whether k has a known kind and a name.
func (k Key) IsValid() bool {
	return (k.Kind == KindRoom || k.Kind == KindChannel) && k.Name != ""
}
