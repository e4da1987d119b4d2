package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shiptrack/internal/core/application/realtime"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "shiptrack:broadcasts"

// Deliverer hands a remote event to local connections.
type Deliverer interface {
	Deliver(key realtime.Key, ev realtime.Event) int
}

type envelope struct {
	Origin string       `json:"origin"`
	Key    realtime.Key `json:"key"`
	Event  string       `json:"event"`
	Data   any          `json:"data,omitempty"`
}

type inbound struct {
	Origin string          `json:"origin"`
	Key    realtime.Key    `json:"key"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Bus implements realtime.Backplane. Every envelope carries the publishing
// instance id so an instance ignores its own broadcasts.
type Bus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// New creates a bus for the instance identified by origin.
func New(client *redis.Client, channel, origin string, logger *slog.Logger) (*Bus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if origin == "" {
		return nil, errors.New("instance id is required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		client:  client,
		channel: channel,
		origin:  origin,
		logger:  logger.With("component", "redis_bus", "instance", origin),
	}, nil
}

// Publish sends ev for key to every other instance.
func (b *Bus) Publish(ctx context.Context, key realtime.Key, ev realtime.Event) error {
	payload, err := json.Marshal(envelope{
		Origin: b.origin,
		Key:    key,
		Event:  ev.Name,
		Data:   ev.Data,
	})
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// Subscription is a running listener started by Subscribe.
type Subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
	once   sync.Once
}

// Subscribe confirms the subscription with the server, then delivers every
// foreign envelope to deliver until ctx ends or Close is called.
func (b *Bus) Subscribe(ctx context.Context, deliver Deliverer) (*Subscription, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	sub := &Subscription{pubsub: pubsub, done: make(chan struct{})}
	messages := pubsub.Channel()
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				b.handle(ctx, msg, deliver)
			}
		}
	}()
	return sub, nil
}

func (b *Bus) handle(ctx context.Context, msg *redis.Message, deliver Deliverer) {
	var in inbound
	if err := json.Unmarshal([]byte(msg.Payload), &in); err != nil {
		b.logger.WarnContext(ctx, "Discarding malformed broadcast", "error", err)
		return
	}
	if in.Origin == b.origin {
		return
	}
	if !in.Key.IsValid() || in.Event == "" {
		b.logger.WarnContext(ctx, "Discarding broadcast without key or event", "origin", in.Origin)
		return
	}

	ev := realtime.Event{Name: in.Event}
	if len(in.Data) > 0 {
		ev.Data = in.Data
	}
	deliver.Deliver(in.Key, ev)
}

// Close stops the listener. Done reports when it has exited.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

// Done is closed once the listener has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
