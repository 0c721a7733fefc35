package notify

import (
	"context"
	"encoding/json"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/redisStore"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

// RedisPublisher forwards events to a pub/sub channel so dashboards on other nodes see them.
type RedisPublisher struct {
	store   *redisStore.Store
	channel string
	logger  *logger_i.Logger
}

func NewRedisPublisher(store *redisStore.Store, channel string) *RedisPublisher {
	if channel == "" {
		channel = config.NotificationChannel
	}
	return &RedisPublisher{store: store, channel: channel, logger: logger_i.NewLogger("notify_redis")}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.store.Publish(ctx, p.channel, data); err != nil {
		p.logger.Error("publishing event failed", "eventId", event.EventId, "error", err)
		return err
	}
	return nil
}

// Relay copies events from the redis channel into the local broker until ctx ends.
func (p *RedisPublisher) Relay(ctx context.Context, broker *Broker) {
	messages, closeSub := p.store.Subscribe(ctx, p.channel)
	defer closeSub()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				p.logger.Warn("dropping malformed event", "error", err)
				continue
			}
			_ = broker.Publish(ctx, event)
		}
	}
}
