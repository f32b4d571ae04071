package feed

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultStaleAfter        = 60 * time.Second
	DefaultInitialReconnect  = 3 * time.Second
	DefaultMaxReconnect      = 30 * time.Second
	DefaultReconnectMultiple = 1.5
)

// StaleMarker is told when the feed has been down long enough that cached offers
// can no longer be trusted, and again when it recovers.
type StaleMarker interface {
	SetStale(stale bool)
}

type Option func(*Subscriber)

func WithClock(clk clock.Clock) Option {
	return func(s *Subscriber) {
		s.clock = clk
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(s *Subscriber) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithReconnect(initial, max time.Duration, multiplier float64) Option {
	return func(s *Subscriber) {
		if initial > 0 {
			s.initial = initial
		}
		if max > 0 {
			s.max = max
		}
		if multiplier >= 1 {
			s.multiplier = multiplier
		}
	}
}

func WithBuffer(n int) Option {
	return func(s *Subscriber) {
		if n >= 0 {
			s.buffer = n
		}
	}
}

// Subscriber keeps the feed connected, reconnecting with exponential backoff,
// and forwards decoded deltas on Events.
type Subscriber struct {
	source     Source
	marker     StaleMarker
	clock      clock.Clock
	staleAfter time.Duration
	initial    time.Duration
	max        time.Duration
	multiplier float64
	buffer     int
	events     chan domain.FeedEvent

	mu         sync.RWMutex
	status     domain.FeedStatus
	staleTimer *clock.Timer
}

func NewSubscriber(source Source, marker StaleMarker, opts ...Option) *Subscriber {
	s := &Subscriber{
		source:     source,
		marker:     marker,
		clock:      clock.New(),
		staleAfter: DefaultStaleAfter,
		initial:    DefaultInitialReconnect,
		max:        DefaultMaxReconnect,
		multiplier: DefaultReconnectMultiple,
		buffer:     64,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan domain.FeedEvent, s.buffer)
	s.status.Source = source.Name()
	return s
}

// Events is closed when Run returns.
func (s *Subscriber) Events() <-chan domain.FeedEvent {
	return s.events
}

func (s *Subscriber) Status() domain.FeedStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Run connects and reads until ctx is done. Connection failures never end the loop.
func (s *Subscriber) Run(ctx context.Context) error {
	defer close(s.events)
	defer s.stopStaleTimer()

	b := s.newBackOff()
	s.armStaleTimer()

	for {
		stream, err := s.source.Connect(ctx)
		if err == nil {
			b.Reset()
			s.connected()
			err = s.consume(ctx, stream)
			stream.Close()
		}
		if ctx.Err() != nil {
			return nil
		}

		wait := b.NextBackOff()
		s.disconnected(err)
		log.Printf("WARNING: %s feed unavailable: %v, reconnecting in %s", s.source.Name(), err, wait)
		if !s.sleep(ctx, wait) {
			return nil
		}
	}
}

func (s *Subscriber) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initial
	b.Multiplier = s.multiplier
	b.MaxInterval = s.max
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (s *Subscriber) consume(ctx context.Context, stream Stream) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stream.Close()
		case <-done:
		}
	}()

	for {
		data, err := stream.Next(ctx)
		if err != nil {
			return err
		}

		msg, err := Decode(data)
		if err != nil {
			log.Printf("WARNING: skipping feed frame: %v", err)
			continue
		}

		switch msg.Type {
		case domain.FeedMessageConnectionEstablished:
			log.Printf("%s feed: %s", s.source.Name(), msg.Message)
		case domain.FeedMessageFlightUpdate:
			s.mu.Lock()
			s.status.LastEventAt = s.clock.Now()
			s.mu.Unlock()

			select {
			case s.events <- *msg.Event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *Subscriber) connected() {
	s.stopStaleTimer()

	s.mu.Lock()
	wasStale := s.status.Stale
	s.status.Connected = true
	s.status.Stale = false
	s.status.DisconnectAt = time.Time{}
	s.status.LastError = ""
	s.mu.Unlock()

	if wasStale && s.marker != nil {
		s.marker.SetStale(false)
	}
	log.Printf("%s feed connected", s.source.Name())
}

func (s *Subscriber) disconnected(err error) {
	if err == nil {
		err = errors.New("stream closed")
	}
	f := domain.NewFailure(domain.FailureFeedDisconnect, err.Error())

	s.mu.Lock()
	wasConnected := s.status.Connected
	s.status.Connected = false
	s.status.LastError = f.Error()
	if wasConnected || s.status.DisconnectAt.IsZero() {
		s.status.DisconnectAt = s.clock.Now()
	}
	s.mu.Unlock()

	if wasConnected {
		s.armStaleTimer()
	}
}

// armStaleTimer starts the countdown after which cached offers are flagged stale.
func (s *Subscriber) armStaleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleTimer != nil {
		s.staleTimer.Stop()
	}
	s.staleTimer = s.clock.AfterFunc(s.staleAfter, s.markStale)
}

func (s *Subscriber) stopStaleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleTimer != nil {
		s.staleTimer.Stop()
		s.staleTimer = nil
	}
}

func (s *Subscriber) markStale() {
	s.mu.Lock()
	if s.status.Connected || s.status.Stale {
		s.mu.Unlock()
		return
	}
	s.status.Stale = true
	s.mu.Unlock()

	log.Printf("WARNING: %s feed down for %s, offers marked stale", s.source.Name(), s.staleAfter)
	if s.marker != nil {
		s.marker.SetStale(true)
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
