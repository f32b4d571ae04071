package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
upstream:
  booking_url: http://booking:8001
  pricing_url: http://pricing:8000
feed:
  url: ws://pricing:8000/ws/feeds
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, FeedSourceWebSocket, cfg.Feed.Source)
	assert.Equal(t, 3000, cfg.Feed.ReconnectInitialMS)
	assert.Equal(t, 30000, cfg.Feed.ReconnectMaxMS)
	assert.Equal(t, 1.5, cfg.Feed.ReconnectMultiplier)
	assert.Equal(t, 60, cfg.Feed.StaleAfterSeconds)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout())
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db
  port: 5432
  user: fly
  password: secret
  name: flysmart
  ssl_mode: disable
kafka:
  brokers: ["kafka:9092"]
  feed_topic: flight-updates
  attempt_events_topic: attempt-events
upstream:
  booking_url: http://booking:8001
  pricing_url: http://pricing:8000
  timeout_seconds: 3
feed:
  source: kafka
storage:
  backend: postgres
booking:
  tick_ms: 250
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, FeedSourceKafka, cfg.Feed.Source)
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, 250, cfg.Booking.TickMillis)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout())
	assert.Equal(t, "host=db port=5432 user=fly password=secret dbname=flysmart sslmode=disable", cfg.Database.DSN())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing upstream", body: "feed:\n  url: ws://x\n"},
		{name: "websocket without url", body: "upstream:\n  booking_url: a\n  pricing_url: b\n"},
		{name: "kafka without topic", body: "upstream:\n  booking_url: a\n  pricing_url: b\nfeed:\n  source: kafka\n"},
		{name: "unknown source", body: "upstream:\n  booking_url: a\n  pricing_url: b\nfeed:\n  source: sse\n"},
		{name: "unknown storage", body: "upstream:\n  booking_url: a\n  pricing_url: b\nfeed:\n  url: ws://x\nstorage:\n  backend: mongo\n"},
		{name: "broken yaml", body: "upstream: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
