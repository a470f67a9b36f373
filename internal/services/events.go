package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"presensi-backend/internal/models"
)

// EventBus publishes per-user events onto Redis pub/sub, from where the
// WebSocket hub pushes them to connected clients. It implements
// geofence.Publisher.
type EventBus struct {
	redis *redis.Client
}

func NewEventBus(redisClient *redis.Client) *EventBus {
	return &EventBus{redis: redisClient}
}

func UserChannel(userID int64) string {
	return fmt.Sprintf("user_events:%d", userID)
}

func (b *EventBus) Publish(ctx context.Context, userID int64, eventType string, payload any) error {
	data, err := json.Marshal(models.WSMessage{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}
	return b.redis.Publish(ctx, UserChannel(userID), data).Err()
}
