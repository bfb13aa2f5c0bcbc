package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDispatcher fans events out across service instances over a Redis
// pub/sub channel. Local handlers run when the message comes back from Redis,
// so every instance, including the publisher, observes each event once.
type RedisDispatcher struct {
	client  *redis.Client
	channel string
	local   *inMemoryDispatcher
	logger  *zap.Logger
}

// NewRedisDispatcher creates a dispatcher bound to channel.
func NewRedisDispatcher(client *redis.Client, channel string, logger *zap.Logger) *RedisDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisDispatcher{
		client:  client,
		channel: channel,
		local:   newInMemoryDispatcher(logger),
		logger:  logger,
	}
}

// Publish sends the event to the channel.
func (d *RedisDispatcher) Publish(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return d.client.Publish(ctx, d.channel, payload).Err()
}

// Subscribe registers a handler for events received from the channel.
func (d *RedisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.local.Subscribe(eventType, handler)
}

// Run consumes the channel until ctx is cancelled.
func (d *RedisDispatcher) Run(ctx context.Context) error {
	sub := d.client.Subscribe(ctx, d.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", d.channel, err)
	}
	d.logger.Info("listening for ticket events", zap.String("channel", d.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				d.logger.Warn("dropping malformed event", zap.Error(err))
				continue
			}
			_ = d.local.Publish(ctx, event)
		}
	}
}

func encodeEvent(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

func decodeEvent(raw []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return event, nil
}
