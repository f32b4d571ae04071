package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flysmart/config"
	"github.com/Domenick1991/flysmart/internal/email"
	"github.com/Domenick1991/flysmart/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
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
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.AttemptEventsTopic == "" {
		log.Fatalf("kafka.brokers and kafka.attempt_events_topic are required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-notifications", cfg.Kafka.AttemptEventsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	log.Printf("worker consuming %s", cfg.Kafka.AttemptEventsTopic)
	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		var event kafka.AttemptEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("decode event error: %v", err)
			return nil
		}
		if err := emailSender.Send(ctx, event); err != nil {
			log.Printf("send notification for attempt %s: %v", event.AttemptID, err)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
	log.Printf("worker stopped")
}
