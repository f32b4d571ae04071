package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flysmart/config"
	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	offersTTL time.Duration
	clock     clock.Clock
}

func NewRedisCache(cfg config.RedisConfig, offersTTL time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return newRedisCache(client, offersTTL, clock.New())
}

func newRedisCache(client *redis.Client, offersTTL time.Duration, clk clock.Clock) *RedisCache {
	return &RedisCache{client: client, offersTTL: offersTTL, clock: clk}
}

// GetOffers returns the cached search result under key, or nil on a miss.
func (c *RedisCache) GetOffers(ctx context.Context, key string) ([]domain.FlightOffer, error) {
	data, err := c.client.Get(ctx, offersKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var offers []domain.FlightOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *RedisCache) SetOffers(ctx context.Context, key string, offers []domain.FlightOffer) error {
	payload, err := json.Marshal(offers)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, offersKey(key), payload, c.offersTTL).Err()
}

// AddBookingCode appends code to the subject's list. A code already present keeps its original position.
func (c *RedisCache) AddBookingCode(ctx context.Context, subject, code string) error {
	score := float64(c.clock.Now().UnixMilli())
	return c.client.ZAddNX(ctx, bookingsKey(subject), redis.Z{Score: score, Member: code}).Err()
}

// ListBookingCodes returns the newest codes first. limit <= 0 returns all of them.
func (c *RedisCache) ListBookingCodes(ctx context.Context, subject string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	return c.client.ZRevRange(ctx, bookingsKey(subject), 0, stop).Result()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func offersKey(key string) string {
	return fmt.Sprintf("cache:offers:%s", key)
}

func bookingsKey(subject string) string {
	return fmt.Sprintf("bookings:%s", subject)
}
