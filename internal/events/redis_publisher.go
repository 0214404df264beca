package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ChannelPublisher is the slice of the redis client the publisher needs.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher forwards dispatched events to a redis pub/sub channel so
// other processes (presence, live ticket boards) can follow ticket changes.
type RedisPublisher struct {
	client  ChannelPublisher
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client ChannelPublisher, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Register subscribes the publisher to every ticket event type.
func (p *RedisPublisher) Register(dispatcher Dispatcher) {
	if dispatcher == nil || p.client == nil {
		return
	}
	dispatcher.Subscribe(EventTicketCreated, p.forward)
	dispatcher.Subscribe(EventTicketStatusChanged, p.forward)
}

func (p *RedisPublisher) forward(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := p.client.Publish(ctx, p.channel, body); err != nil {
		p.logger.Warn("redis publish failed",
			zap.String("channel", p.channel),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		return err
	}
	return nil
}
