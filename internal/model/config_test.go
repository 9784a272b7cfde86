package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, TransportRedis, cfg.Realtime.Transport)
	require.Equal(t, "notifications", cfg.Realtime.Redis.ChannelPrefix)
	require.Equal(t, BackendSQLite, cfg.Storage.Backend)
	require.Equal(t, "notifications", cfg.Storage.SnapshotKey)
	require.Equal(t, DefaultRetention, cfg.Storage.Retention)
	require.Equal(t, 200, cfg.Storage.MemoryLimit)
	require.True(t, cfg.Alerts.Enabled)
	require.Equal(t, "127.0.0.1:5050", cfg.HTTP.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
realtime:
  transport: amqp
  amqp:
    url: amqp://user:pass@mq:5672/
    exchange: buyer-events
storage:
  retention: 20
  memory_limit: 80
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, TransportAMQP, cfg.Realtime.Transport)
	require.Equal(t, "amqp://user:pass@mq:5672/", cfg.Realtime.AMQP.URL)
	require.Equal(t, "buyer-events", cfg.Realtime.AMQP.Exchange)
	require.Equal(t, 20, cfg.Storage.Retention)
	require.Equal(t, 80, cfg.Storage.MemoryLimit)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PROPIE_STORAGE_BACKEND", "redis")
	t.Setenv("PROPIE_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, BackendRedis, cfg.Storage.Backend)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadConfigClampsLimits(t *testing.T) {
	path := writeConfig(t, `
storage:
  retention: 0
  memory_limit: 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, DefaultRetention, cfg.Storage.Retention)
	require.Equal(t, DefaultRetention, cfg.Storage.MemoryLimit)
}

func TestLoadConfigRejectsUnknownBackends(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"transport", "realtime:\n  transport: websocket\n"},
		{"storage", "storage:\n  backend: localstorage\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Realtime.Transport = TransportAMQP
	cfg.Storage.Retention = 30
	cfg.Storage.MemoryLimit = 90

	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, TransportAMQP, loaded.Realtime.Transport)
	require.Equal(t, 30, loaded.Storage.Retention)
	require.Equal(t, 90, loaded.Storage.MemoryLimit)
}
