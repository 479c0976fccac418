package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cansrv/cansrv/internal/logger"
)

const channelPrefix = "cansrv:events:"

// RedisPubSub publishes task lifecycle events to Redis Pub/Sub. It never
// reads anything back; server state is never reconstructed from Redis.
type RedisPubSub struct {
	client *redis.Client
}

func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

func (r *RedisPubSub) Publish(ctx context.Context, event *Event) error {
	channel := r.channelName(event.Type)
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.Debug().
		Str("event_type", string(event.Type)).
		Str("channel", channel).
		Msg("event published")

	return nil
}

func (r *RedisPubSub) Close() error {
	return r.client.Close()
}

func (r *RedisPubSub) channelName(eventType EventType) string {
	return channelPrefix + string(eventType)
}

// PublishTaskEvent is a convenience wrapper for task lifecycle transitions.
func (r *RedisPubSub) PublishTaskEvent(ctx context.Context, eventType EventType, sessionID, taskID, kind string, extra map[string]interface{}) error {
	event := NewEvent(eventType, TaskEventData(sessionID, taskID, kind, extra))
	return r.Publish(ctx, event)
}
