package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flysmart/api"
	"github.com/Domenick1991/flysmart/config"
	"github.com/Domenick1991/flysmart/internal/bootstrap"
	"github.com/Domenick1991/flysmart/internal/cache"
	"github.com/Domenick1991/flysmart/internal/feed"
	"github.com/Domenick1991/flysmart/internal/kafka"
	"github.com/Domenick1991/flysmart/internal/reconciler"
	"github.com/Domenick1991/flysmart/internal/repository"
	"github.com/Domenick1991/flysmart/internal/service/attempt"
	"github.com/Domenick1991/flysmart/internal/service/mybookings"
	"github.com/Domenick1991/flysmart/internal/service/search"
	"github.com/Domenick1991/flysmart/internal/store"
	"github.com/Domenick1991/flysmart/internal/upstream"
	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()
	offers := store.NewOfferStore(clk)

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTLSeconds)*time.Second)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Printf("WARNING: redis unavailable, searches will bypass the cache: %v", err)
	}

	var codes mybookings.CodeStore = redisCache
	if cfg.Storage.Backend == config.StoragePostgres {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()

		repo := repository.NewBookingCodeRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("prepare schema: %v", err)
		}
		codes = repo
	}

	bookingClient := upstream.NewBookingClient(cfg.Upstream.BookingURL, cfg.Upstream.Timeout(), nil)
	pricingClient := upstream.NewPricingClient(cfg.Upstream.PricingURL, cfg.Upstream.Timeout(), nil)

	myBookings := mybookings.NewService(codes, bookingClient, mybookings.WithListLimit(cfg.Booking.MyBookingsLimit))

	managerOpts := []attempt.Option{
		attempt.WithClock(clk),
		attempt.WithTickInterval(time.Duration(cfg.Booking.TickMillis) * time.Millisecond),
		attempt.WithRetention(time.Duration(cfg.Booking.AttemptRetentionMinutes) * time.Minute),
		attempt.WithRecorder(myBookings),
		attempt.WithBaseContext(ctx),
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.AttemptEventsTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			log.Printf("WARNING: kafka unavailable, attempt events may be lost: %v", err)
		}
		managerOpts = append(managerOpts, attempt.WithEvents(producer.Retrying(2), cfg.Kafka.AttemptEventsTopic))
	}
	attempts := attempt.NewManager(bookingClient, managerOpts...)
	go func() {
		if err := attempts.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("attempt pruning stopped: %v", err)
		}
	}()

	var source feed.Source
	switch cfg.Feed.Source {
	case config.FeedSourceKafka:
		source = feed.NewKafkaSource(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-feed", cfg.Kafka.FeedTopic)
	default:
		source = feed.NewWebSocketSource(cfg.Feed.URL, time.Duration(cfg.Feed.PingSeconds)*time.Second)
	}
	subscriber := feed.NewSubscriber(source, offers,
		feed.WithClock(clk),
		feed.WithStaleAfter(time.Duration(cfg.Feed.StaleAfterSeconds)*time.Second),
		feed.WithReconnect(
			time.Duration(cfg.Feed.ReconnectInitialMS)*time.Millisecond,
			time.Duration(cfg.Feed.ReconnectMaxMS)*time.Millisecond,
			cfg.Feed.ReconnectMultiplier,
		),
	)
	rec := reconciler.New(offers, clk, time.Duration(cfg.Feed.HighlightMS)*time.Millisecond)
	go subscriber.Run(ctx)
	go rec.Run(ctx, subscriber.Events())
	go evictSnapshots(ctx, clk, offers, time.Duration(cfg.Feed.SnapshotMaxAgeMinutes)*time.Minute)

	searchService := search.NewSearchService(pricingClient, redisCache, offers)

	router := bootstrap.NewRouter(
		bootstrap.Route{Prefix: "", Handler: api.NewFlightHandler(searchService)},
		bootstrap.Route{Prefix: "/attempts", Handler: api.NewAttemptHandler(attempts)},
		bootstrap.Route{Prefix: "/bookings", Handler: api.NewBookingHandler(myBookings)},
		bootstrap.Route{Prefix: "/feed", Handler: api.NewFeedHandler(subscriber)},
	)

	if err := bootstrap.Run(ctx, cfg, router, attempts); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// evictSnapshots drops searches nobody has refreshed within maxAge.
func evictSnapshots(ctx context.Context, clk clock.Clock, offers *store.OfferStore, maxAge time.Duration) {
	ticker := clk.Ticker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := offers.EvictOlderThan(maxAge); n > 0 {
				log.Printf("evicted %d offer snapshots", n)
			}
		}
	}
}
