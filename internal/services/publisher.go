package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"echoquiz-backend/internal/models"
)

type RedisPublisher struct {
	redis *redis.Client
	log   logrus.FieldLogger
}

func NewRedisPublisher(redisClient *redis.Client, log logrus.FieldLogger) *RedisPublisher {
	return &RedisPublisher{redis: redisClient, log: log}
}

// PublishUpdate sends a WebSocket update via Redis pub/sub
func (p *RedisPublisher) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.WithError(err).Warn("failed to encode session update")
		return
	}
	if err := p.redis.Publish(ctx, models.UpdatesChannel(sessionID), string(data)).Err(); err != nil {
		p.log.WithError(err).WithField("session_id", sessionID).Warn("failed to publish session update")
	}
}

// NoopPublisher drops updates; used when no Redis is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {}
