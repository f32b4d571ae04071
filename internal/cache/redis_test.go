package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockCache(t *testing.T) (*RedisCache, redismock.ClientMock, *clock.Mock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC))
	return newRedisCache(db, 30*time.Second, clk), mock, clk
}

func TestRedisCache_GetOffersMiss(t *testing.T) {
	c, mock, _ := newMockCache(t)
	mock.ExpectGet("cache:offers:HYD-BLR@2026-11-01").RedisNil()

	offers, err := c.GetOffers(context.Background(), "HYD-BLR@2026-11-01")
	require.NoError(t, err)
	assert.Nil(t, offers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetOffersHit(t *testing.T) {
	c, mock, _ := newMockCache(t)
	cached := []domain.FlightOffer{{ID: "12", Airline: "IndiGo", DynamicPrice: 4100}}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("cache:offers:k").SetVal(string(payload))

	offers, err := c.GetOffers(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, cached, offers)
}

func TestRedisCache_GetOffersError(t *testing.T) {
	c, mock, _ := newMockCache(t)
	mock.ExpectGet("cache:offers:k").SetErr(errors.New("connection refused"))

	_, err := c.GetOffers(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisCache_SetOffers(t *testing.T) {
	c, mock, _ := newMockCache(t)
	offers := []domain.FlightOffer{{ID: "12", DynamicPrice: 4100}}
	payload, err := json.Marshal(offers)
	require.NoError(t, err)
	mock.ExpectSet("cache:offers:k", payload, 30*time.Second).SetVal("OK")

	require.NoError(t, c.SetOffers(context.Background(), "k", offers))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_BookingCodes(t *testing.T) {
	c, mock, clk := newMockCache(t)
	score := float64(clk.Now().UnixMilli())
	mock.ExpectZAddNX("bookings:user-1", redis.Z{Score: score, Member: "ABC123"}).SetVal(1)
	mock.ExpectZRevRange("bookings:user-1", 0, 9).SetVal([]string{"XYZ789", "ABC123"})
	mock.ExpectZRevRange("bookings:user-1", 0, -1).SetVal([]string{"XYZ789", "ABC123"})

	require.NoError(t, c.AddBookingCode(context.Background(), "user-1", "ABC123"))

	codes, err := c.ListBookingCodes(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"XYZ789", "ABC123"}, codes)

	_, err = c.ListBookingCodes(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
