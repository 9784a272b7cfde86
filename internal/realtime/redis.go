package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/model"
)

// RedisSource delivers frames published on the Redis Pub/Sub channel
// "<prefix>:<userId>".
type RedisSource struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisSource returns a Source backed by client.
func NewRedisSource(client *redis.Client, prefix string, logger *zap.Logger) *RedisSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSource{client: client, prefix: prefix, logger: logger}
}

// Channel returns the Pub/Sub channel for a user.
func (s *RedisSource) Channel(userID string) string {
	return s.prefix + ":" + userID
}

// Subscribe subscribes to the user's channel and waits for the server to
// confirm before starting the receive loop.
func (s *RedisSource) Subscribe(ctx context.Context, identity model.Identity, deliver func(Envelope)) (Subscription, error) {
	channel := s.Channel(identity.UserID)
	logger := s.logger.With(
		zap.String("channel", channel),
		zap.String("conn_id", uuid.NewString()),
	)

	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", channel, err)
	}

	msgs := ps.Channel()
	sub := newSubscription(ps.Close, func(err error) {
		if err != nil {
			logger.Warn("Closing Redis subscription", zap.Error(err))
			return
		}
		logger.Debug("Redis subscription closed")
	})

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-sub.stop:
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn("Redis subscription channel closed")
					return
				}
				env, err := DecodeEnvelope([]byte(msg.Payload))
				if err != nil {
					logger.Warn("Dropping undecodable frame", zap.Error(err))
					continue
				}
				deliver(env)
			}
		}
	}()

	logger.Debug("Redis subscription started")
	return sub, nil
}
