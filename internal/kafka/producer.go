package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Attempt lifecycle event types.
const (
	EventAttemptReserved        = "attempt_reserved"
	EventAttemptConfirmed       = "attempt_confirmed"
	EventAttemptPartiallyFailed = "attempt_partially_failed"
	EventAttemptFailed          = "attempt_failed"
	EventAttemptExpired         = "attempt_expired"
)

type AttemptEvent struct {
	Type          string    `json:"type"`
	AttemptID     string    `json:"attempt_id"`
	Subject       string    `json:"subject"`
	Status        string    `json:"status"`
	PassengerName string    `json:"passenger_name"`
	Email         string    `json:"email"`
	OutboundCode  string    `json:"outbound_code,omitempty"`
	ReturnCode    string    `json:"return_code,omitempty"`
	FailureKind   string    `json:"failure_kind,omitempty"`
	FailureDetail string    `json:"failure_detail,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	log.Printf("published to Kafka - topic: %s, key: %s", topic, key)
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Printf("publish attempt %d failed: %v", i+1, err)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// Retrying publishes through PublishWithRetry with a fixed attempt budget.
type Retrying struct {
	producer   *Producer
	maxRetries int
}

func (p *Producer) Retrying(maxRetries int) *Retrying {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Retrying{producer: p, maxRetries: maxRetries}
}

func (r *Retrying) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return r.producer.PublishWithRetry(ctx, topic, key, payload, r.maxRetries)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	log.Printf("connected to Kafka, %d partitions visible", len(partitions))
	return nil
}
