package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FeedSourceWebSocket = "websocket"
	FeedSourceKafka     = "kafka"

	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Feed     FeedConfig     `yaml:"feed"`
	Booking  BookingConfig  `yaml:"booking"`
	Storage  StorageConfig  `yaml:"storage"`
}

type HTTPConfig struct {
	Address         string `yaml:"address"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	AttemptEventsTopic string   `yaml:"attempt_events_topic"`
	FeedTopic          string   `yaml:"feed_topic"`
	GroupID            string   `yaml:"group_id"`
}

type UpstreamConfig struct {
	BookingURL     string `yaml:"booking_url"`
	PricingURL     string `yaml:"pricing_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

type FeedConfig struct {
	Source                string  `yaml:"source"`
	URL                   string  `yaml:"url"`
	PingSeconds           int     `yaml:"ping_seconds"`
	StaleAfterSeconds     int     `yaml:"stale_after_seconds"`
	HighlightMS           int     `yaml:"highlight_ms"`
	ReconnectInitialMS    int     `yaml:"reconnect_initial_ms"`
	ReconnectMaxMS        int     `yaml:"reconnect_max_ms"`
	ReconnectMultiplier   float64 `yaml:"reconnect_multiplier"`
	SnapshotMaxAgeMinutes int     `yaml:"snapshot_max_age_minutes"`
}

type BookingConfig struct {
	AttemptRetentionMinutes int `yaml:"attempt_retention_minutes"`
	SearchCacheTTLSeconds   int `yaml:"search_cache_ttl_seconds"`
	TickMillis              int `yaml:"tick_ms"`
	MyBookingsLimit         int `yaml:"my_bookings_limit"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.ShutdownSeconds == 0 {
		c.HTTP.ShutdownSeconds = 10
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "flysmart"
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 10
	}
	if c.Feed.Source == "" {
		c.Feed.Source = FeedSourceWebSocket
	}
	if c.Feed.PingSeconds == 0 {
		c.Feed.PingSeconds = 25
	}
	if c.Feed.StaleAfterSeconds == 0 {
		c.Feed.StaleAfterSeconds = 60
	}
	if c.Feed.HighlightMS == 0 {
		c.Feed.HighlightMS = 3500
	}
	if c.Feed.ReconnectInitialMS == 0 {
		c.Feed.ReconnectInitialMS = 3000
	}
	if c.Feed.ReconnectMaxMS == 0 {
		c.Feed.ReconnectMaxMS = 30000
	}
	if c.Feed.ReconnectMultiplier == 0 {
		c.Feed.ReconnectMultiplier = 1.5
	}
	if c.Feed.SnapshotMaxAgeMinutes == 0 {
		c.Feed.SnapshotMaxAgeMinutes = 30
	}
	if c.Booking.AttemptRetentionMinutes == 0 {
		c.Booking.AttemptRetentionMinutes = 30
	}
	if c.Booking.SearchCacheTTLSeconds == 0 {
		c.Booking.SearchCacheTTLSeconds = 30
	}
	if c.Booking.TickMillis == 0 {
		c.Booking.TickMillis = 1000
	}
	if c.Booking.MyBookingsLimit == 0 {
		c.Booking.MyBookingsLimit = 50
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageRedis
	}
}

func (c *Config) validate() error {
	if c.Upstream.BookingURL == "" || c.Upstream.PricingURL == "" {
		return fmt.Errorf("invalid config: upstream.booking_url and upstream.pricing_url are required")
	}
	switch c.Feed.Source {
	case FeedSourceWebSocket:
		if c.Feed.URL == "" {
			return fmt.Errorf("invalid config: feed.url is required for the websocket source")
		}
	case FeedSourceKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.FeedTopic == "" {
			return fmt.Errorf("invalid config: kafka.brokers and kafka.feed_topic are required for the kafka source")
		}
	default:
		return fmt.Errorf("invalid config: unknown feed.source %q", c.Feed.Source)
	}
	switch c.Storage.Backend {
	case StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("invalid config: unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
