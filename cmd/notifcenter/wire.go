package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/alert"
	"github.com/kevsands/prop-ie/internal/credential"
	"github.com/kevsands/prop-ie/internal/identity"
	"github.com/kevsands/prop-ie/internal/model"
	"github.com/kevsands/prop-ie/internal/realtime"
	"github.com/kevsands/prop-ie/internal/store"
)

// snapshotKeyPrefix namespaces snapshot keys when history lives in Redis.
const snapshotKeyPrefix = "prop-ie:snapshot"

func newRedisClient(cfg model.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// openSnapshotStore opens the configured durable history backend.
func openSnapshotStore(cfg *model.AppConfig) (store.SnapshotStore, error) {
	switch cfg.Storage.Backend {
	case model.BackendRedis:
		return store.NewRedisSnapshotStore(newRedisClient(cfg.Realtime.Redis), snapshotKeyPrefix), nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// newSource builds the configured realtime transport and a function that
// releases its shared resources.
func newSource(cfg *model.AppConfig, log *zap.Logger) (realtime.Source, func()) {
	switch cfg.Realtime.Transport {
	case model.TransportAMQP:
		return realtime.NewAMQPSource(cfg.Realtime.AMQP.URL, cfg.Realtime.AMQP.Exchange, log), func() {}
	default:
		client := newRedisClient(cfg.Realtime.Redis)
		return realtime.NewRedisSource(client, cfg.Realtime.Redis.ChannelPrefix, log), func() {
			if err := client.Close(); err != nil {
				log.Warn("Closing Redis client", zap.Error(err))
			}
		}
	}
}

func newAlertSurface(cfg *model.AppConfig) alert.Surface {
	if !cfg.Alerts.Enabled {
		return alert.Nop{}
	}
	return alert.NewDesktop()
}

// openTokenStore returns the OS keyring, or nil when none is available so
// the session runs without remembering tokens.
func openTokenStore(log *zap.Logger) identity.TokenStore {
	ring, err := credential.Open()
	if err != nil {
		log.Warn("Keyring unavailable, sign-in will not be remembered", zap.Error(err))
		return nil
	}
	return ring
}
