// Package feed keeps a push connection to the upstream real-time feed and turns
// its frames into offer deltas.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/kafka"
	"github.com/gorilla/websocket"
)

// Source opens a connection to the feed.
type Source interface {
	Name() string
	Connect(ctx context.Context) (Stream, error)
}

// Stream yields raw frames until the connection drops. Close unblocks a pending Next.
type Stream interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

const DefaultPingInterval = 25 * time.Second

type WebSocketSource struct {
	url          string
	dialer       *websocket.Dialer
	header       http.Header
	pingInterval time.Duration
}

// NewWebSocketSource dials url on every Connect. A positive pingInterval sends
// "ping" text frames to keep idle connections open.
func NewWebSocketSource(url string, pingInterval time.Duration) *WebSocketSource {
	return &WebSocketSource{
		url:          url,
		dialer:       websocket.DefaultDialer,
		header:       http.Header{},
		pingInterval: pingInterval,
	}
}

func (s *WebSocketSource) Name() string { return "websocket" }

func (s *WebSocketSource) Connect(ctx context.Context) (Stream, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", s.url, err)
	}

	st := &wsStream{conn: conn, done: make(chan struct{})}
	if s.pingInterval > 0 {
		go st.keepalive(s.pingInterval)
	}
	return st, nil
}

type wsStream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
}

func (s *wsStream) Next(ctx context.Context) ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return data, nil
}

func (s *wsStream) keepalive(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// KafkaSource reads the same frames from a topic. Each Connect joins the consumer group anew.
type KafkaSource struct {
	brokers []string
	groupID string
	topic   string
}

func NewKafkaSource(brokers []string, groupID, topic string) *KafkaSource {
	return &KafkaSource{brokers: brokers, groupID: groupID, topic: topic}
}

func (s *KafkaSource) Name() string { return "kafka" }

func (s *KafkaSource) Connect(ctx context.Context) (Stream, error) {
	if len(s.brokers) == 0 || s.topic == "" {
		return nil, fmt.Errorf("kafka feed source: brokers and topic are required")
	}
	return &kafkaStream{consumer: kafka.NewConsumer(s.brokers, s.groupID, s.topic)}, nil
}

type kafkaStream struct {
	consumer *kafka.Consumer
	once     sync.Once
}

func (s *kafkaStream) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.consumer.Next(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (s *kafkaStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.consumer.Close()
	})
	return err
}

var (
	_ Source = (*WebSocketSource)(nil)
	_ Source = (*KafkaSource)(nil)
)
