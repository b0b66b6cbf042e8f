package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel carrying session events.
const DefaultChannel = "attendance:session-events"

// RedisBroker publishes events through Redis so every instance observes them.
// Delivery to local subscribers happens in Run, including for events this
// instance published itself.
type RedisBroker struct {
	client  *redis.Client
	channel string
	local   *LocalBroker
	logger  *zap.Logger
}

// NewRedisBroker constructs a broker on the given channel.
func NewRedisBroker(client *redis.Client, channel string, logger *zap.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, channel: channel, local: NewLocalBroker(), logger: logger}
}

// Publish sends the event to the shared channel.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Subscribe registers a local handler fed by Run.
func (b *RedisBroker) Subscribe(fn func(Event)) Subscription {
	return b.local.Subscribe(fn)
}

// Run relays channel messages to local subscribers until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("session event relay started", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("dropping malformed session event", zap.Error(err))
				continue
			}
			_ = b.local.Publish(ctx, event)
		}
	}
}
