package attempt

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/kafka"
	"github.com/Domenick1991/flysmart/internal/service/hold"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	DefaultRetention      = 30 * time.Minute
	DefaultPublishTimeout = 5 * time.Second
	DefaultRecordTimeout  = 3 * time.Second
	DefaultEventBuffer    = 256
)

type AttemptUseCase interface {
	Start(ctx context.Context, sess session.Session, req domain.AttemptRequest) (View, error)
	Get(id string) (View, error)
	Confirm(ctx context.Context, id string) (View, error)
	Abandon(ctx context.Context, id string) (View, error)
}

// BookingRecorder keeps the codes a user has been issued.
type BookingRecorder interface {
	Add(ctx context.Context, subject, code string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Option func(*Manager)

func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.tick = d
	}
}

func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

func WithRecorder(r BookingRecorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithEvents(producer Producer, topic string) Option {
	return func(m *Manager) {
		m.producer = producer
		m.topic = topic
	}
}

// WithPublishTimeout bounds a single event publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.publishTimeout = d
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.buffer = n
		}
	}
}

// WithBaseContext sets the context used for work that outlives a request, such as
// releasing the other leg when a hold expires in the background.
func WithBaseContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.bg = ctx
	}
}

// Manager keeps live attempts addressable by id.
type Manager struct {
	mu             sync.RWMutex
	attempts       map[string]*Attempt
	booking        hold.BookingGateway
	recorder       BookingRecorder
	producer       Producer
	topic          string
	events         chan kafka.AttemptEvent
	buffer         int
	publishTimeout time.Duration
	clock          clock.Clock
	tick           time.Duration
	retention      time.Duration
	bg             context.Context
}

func NewManager(booking hold.BookingGateway, opts ...Option) *Manager {
	m := &Manager{
		attempts:  make(map[string]*Attempt),
		booking:   booking,
		clock:     clock.New(),
		tick:      hold.DefaultTickInterval,
		retention:      DefaultRetention,
		buffer:         DefaultEventBuffer,
		publishTimeout: DefaultPublishTimeout,
		bg:             context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.producer != nil && m.topic != "" {
		m.events = make(chan kafka.AttemptEvent, m.buffer)
		go m.publishEvents()
	}
	return m
}

// Start validates the request, creates the attempt and reserves its legs.
// With AutoConfirm the attempt is confirmed as soon as both holds are active.
// Orchestration failures are reported in the returned view; only validation
// problems return an error without a view.
func (m *Manager) Start(ctx context.Context, sess session.Session, req domain.AttemptRequest) (View, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return View{}, err
	}

	a := newAttempt(attemptConfig{
		id:       uuid.NewString(),
		booking:  m.booking,
		sess:     sess,
		request:  req,
		clock:    m.clock,
		tick:     m.tick,
		bg:       m.bg,
		onChange: m.changed,
	})

	m.mu.Lock()
	m.attempts[a.ID()] = a
	m.mu.Unlock()

	if err := a.Reserve(ctx); err != nil {
		return a.View(), err
	}
	if req.AutoConfirm {
		err := a.Confirm(ctx)
		return a.View(), err
	}
	return a.View(), nil
}

func (m *Manager) Get(id string) (View, error) {
	a, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	return a.View(), nil
}

func (m *Manager) Confirm(ctx context.Context, id string) (View, error) {
	a, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	err = a.Confirm(ctx)
	return a.View(), err
}

func (m *Manager) Abandon(ctx context.Context, id string) (View, error) {
	a, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	err = a.Abandon(ctx)
	return a.View(), err
}

// Prune drops terminal attempts untouched for longer than the retention window.
func (m *Manager) Prune() int {
	cutoff := m.clock.Now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, a := range m.attempts {
		if done, at := a.Done(); done && at.Before(cutoff) {
			delete(m.attempts, id)
			removed++
		}
	}
	return removed
}

// Run prunes periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := m.clock.Ticker(m.retention / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := m.Prune(); n > 0 {
				log.Printf("pruned %d finished attempts", n)
			}
		}
	}
}

func (m *Manager) lookup(id string) (*Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return a, nil
}

// changed records issued codes and queues lifecycle events for publishing. Both are best effort.
func (m *Manager) changed(v View) {
	m.mu.RLock()
	a := m.attempts[v.ID]
	m.mu.RUnlock()
	if a == nil {
		return
	}

	eventType := eventFor(v)
	if eventType == "" {
		return
	}

	if m.recorder != nil {
		codes := append([]string{v.Codes.Outbound, v.Codes.Return}, v.LateCodes()...)
		for _, code := range codes {
			if code == "" {
				continue
			}
			m.record(a.Subject(), code, v.ID)
		}
	}

	if m.events == nil {
		return
	}
	passenger := a.Passenger()
	event := kafka.AttemptEvent{
		Type:          eventType,
		AttemptID:     v.ID,
		Subject:       a.Subject(),
		Status:        string(v.Status),
		PassengerName: passenger.Name,
		Email:         passenger.Email,
		OutboundCode:  v.Codes.Outbound,
		ReturnCode:    v.Codes.Return,
		OccurredAt:    m.clock.Now(),
	}
	if v.Failure != nil {
		event.FailureKind = string(v.Failure.Kind)
		event.FailureDetail = v.Failure.Detail
	}
	if v.Outbound.Hold != nil {
		event.ExpiresAt = v.Outbound.Hold.ExpiresAt
	}
	select {
	case m.events <- event:
	default:
		log.Printf("WARNING: event buffer full, dropping %s for attempt %s", eventType, v.ID)
	}
}

func (m *Manager) record(subject, code, attemptID string) {
	ctx, cancel := context.WithTimeout(m.bg, DefaultRecordTimeout)
	defer cancel()
	if err := m.recorder.Add(ctx, subject, code); err != nil {
		log.Printf("WARNING: failed to record booking %s for attempt %s: %v", code, attemptID, err)
	}
}

// publishEvents drains the event queue in order until the base context is done.
func (m *Manager) publishEvents() {
	for {
		select {
		case <-m.bg.Done():
			return
		case event := <-m.events:
			ctx, cancel := context.WithTimeout(m.bg, m.publishTimeout)
			if err := m.producer.Publish(ctx, m.topic, event.AttemptID, event); err != nil {
				log.Printf("WARNING: failed to publish %s for attempt %s: %v", event.Type, event.AttemptID, err)
			}
			cancel()
		}
	}
}

func eventFor(v View) string {
	switch v.Status {
	case domain.AttemptInProgress:
		if v.Outbound.State != hold.StateActive {
			return ""
		}
		if v.Return != nil && v.Return.State != hold.StateActive {
			return ""
		}
		return kafka.EventAttemptReserved
	case domain.AttemptConfirmed:
		return kafka.EventAttemptConfirmed
	case domain.AttemptPartiallyFailed:
		return kafka.EventAttemptPartiallyFailed
	case domain.AttemptFailed:
		return kafka.EventAttemptFailed
	case domain.AttemptExpired:
		return kafka.EventAttemptExpired
	}
	return ""
}

var _ AttemptUseCase = (*Manager)(nil)
