// Package hold drives one leg of a booking attempt: reserve, countdown, confirm.
package hold

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/Domenick1991/flysmart/internal/upstream"
	"github.com/benbjohnson/clock"
)

type State string

const (
	StateDetails          State = "DETAILS"
	StateReserveRequested State = "RESERVE_REQUESTED"
	StateActive           State = "ACTIVE"
	StateConfirmRequested State = "CONFIRM_REQUESTED"
	StateConfirmed        State = "CONFIRMED"
	StateExpired          State = "EXPIRED"
	StateFailed           State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateExpired || s == StateFailed
}

func (s State) holdStatus() domain.HoldStatus {
	switch s {
	case StateActive:
		return domain.HoldStatusActive
	case StateConfirmRequested:
		return domain.HoldStatusConfirmRequested
	case StateConfirmed:
		return domain.HoldStatusConfirmed
	case StateExpired:
		return domain.HoldStatusExpired
	case StateFailed:
		return domain.HoldStatusFailed
	default:
		return domain.HoldStatusRequested
	}
}

const DefaultTickInterval = time.Second

var (
	ErrConfirmInFlight      = errors.New("confirmation already in flight")
	ErrNotActive            = errors.New("hold is not active")
	ErrConfirmedAfterExpiry = errors.New("booking confirmed after the hold expired locally")
)

// BookingGateway is the part of the booking service a hold needs.
type BookingGateway interface {
	Reserve(ctx context.Context, sess session.Session, req domain.ReserveRequest) (*domain.Reservation, error)
	Confirm(ctx context.Context, sess session.Session, holdID string, passengers []domain.Passenger) (*domain.ConfirmResult, error)
	Cancel(ctx context.Context, sess session.Session, target upstream.CancelTarget) (*domain.CancelResult, error)
}

// Snapshot is a consistent read of an orchestrator.
type Snapshot struct {
	Leg             domain.Leg           `json:"leg"`
	State           State                `json:"state"`
	OfferID         string               `json:"offer_id"`
	Hold            *domain.Hold         `json:"hold,omitempty"`
	SecondsLeft     int                  `json:"seconds_left"`
	BookingCode     string               `json:"booking_code,omitempty"`
	LateBookingCode string               `json:"late_booking_code,omitempty"`
	Failure         *domain.Failure      `json:"failure,omitempty"`
	Release         *domain.Compensation `json:"release,omitempty"`
}

type Option func(*Orchestrator)

func WithClock(clk clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = clk
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.tick = d
		}
	}
}

// WithTransitionHook registers fn to run after every state change. It is called without locks held.
func WithTransitionHook(fn func(Snapshot)) Option {
	return func(o *Orchestrator) {
		o.onTransition = fn
	}
}

type Orchestrator struct {
	mu           sync.Mutex
	leg          domain.Leg
	booking      BookingGateway
	sess         session.Session
	clock        clock.Clock
	tick         time.Duration
	onTransition func(Snapshot)

	request    domain.ReserveRequest
	passengers []domain.Passenger

	state   State
	hold    *domain.Hold
	code    string
	late    string
	failure *domain.Failure
	release *domain.Compensation

	ticker   *clock.Ticker
	stopTick chan struct{}
}

func NewOrchestrator(
	leg domain.Leg,
	booking BookingGateway,
	sess session.Session,
	request domain.ReserveRequest,
	passengers []domain.Passenger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		leg:        leg,
		booking:    booking,
		sess:       sess,
		clock:      clock.New(),
		tick:       DefaultTickInterval,
		request:    request,
		passengers: append([]domain.Passenger(nil), passengers...),
		state:      StateDetails,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Leg() domain.Leg { return o.leg }

// Reserve requests the hold. Only the first call from Details reaches the booking service.
func (o *Orchestrator) Reserve(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateDetails {
		err := o.failureLocked()
		o.mu.Unlock()
		return err
	}
	o.state = StateReserveRequested
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	res, err := o.booking.Reserve(ctx, o.sess, o.request)

	o.mu.Lock()
	if err != nil {
		f := domain.AsFailure(err)
		o.failure = f
		o.state = StateFailed
		snap = o.snapshotLocked()
		o.mu.Unlock()
		log.Printf("hold %s: reserve offer %s failed: %v", o.leg, o.request.OfferID, err)
		o.notify(snap)
		return f
	}

	o.hold = &domain.Hold{
		ID:            res.HoldID,
		OfferID:       res.OfferID,
		Seats:         res.Seats,
		PassengerName: o.request.PassengerName,
		PriceSnapshot: res.PriceSnapshot,
		ExpiresAt:     res.ExpiresAt,
	}
	o.state = StateActive
	o.startTickerLocked()
	o.expireIfDueLocked()
	snap = o.snapshotLocked()
	o.mu.Unlock()

	log.Printf("hold %s: %s active on offer %s until %s", o.leg, res.HoldID, res.OfferID, res.ExpiresAt.Format(time.RFC3339))
	o.notify(snap)
	return nil
}

// Confirm converts the active hold into a booking and returns the booking code.
// A confirmed hold returns its code again without a second request.
func (o *Orchestrator) Confirm(ctx context.Context) (string, error) {
	o.mu.Lock()
	expired := o.expireIfDueLocked()
	switch o.state {
	case StateConfirmed:
		code := o.code
		o.mu.Unlock()
		return code, nil
	case StateConfirmRequested:
		o.mu.Unlock()
		return "", ErrConfirmInFlight
	case StateExpired:
		snap := o.snapshotLocked()
		o.mu.Unlock()
		if expired {
			o.notify(snap)
		}
		return "", domain.NewFailure(domain.FailureHoldExpired, "hold expired before confirmation")
	case StateActive:
	default:
		err := o.failureLocked()
		o.mu.Unlock()
		if err == nil {
			return "", ErrNotActive
		}
		return "", err
	}

	o.state = StateConfirmRequested
	holdID := o.hold.ID
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	res, err := o.booking.Confirm(ctx, o.sess, holdID, o.passengers)

	o.mu.Lock()
	o.expireIfDueLocked()
	defer func() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.notify(snap)
	}()

	if err != nil {
		f := domain.AsFailure(err)
		log.Printf("hold %s: confirm %s failed: %v", o.leg, holdID, f)
		if o.state == StateExpired {
			return "", f
		}
		o.failure = f
		o.state = StateFailed
		if f.Kind == domain.FailureHoldExpired {
			o.state = StateExpired
		}
		o.stopTickerLocked()
		return "", f
	}

	if o.state == StateExpired {
		o.late = res.BookingCode
		log.Printf("hold %s: %s confirmed as %s after local expiry", o.leg, holdID, res.BookingCode)
		return res.BookingCode, ErrConfirmedAfterExpiry
	}
	o.code = res.BookingCode
	o.state = StateConfirmed
	o.stopTickerLocked()
	log.Printf("hold %s: %s confirmed as %s", o.leg, holdID, res.BookingCode)
	return res.BookingCode, nil
}

// Release cancels an active hold. Holds in any other state are left alone and nil is returned.
func (o *Orchestrator) Release(ctx context.Context) *domain.Compensation {
	o.mu.Lock()
	o.expireIfDueLocked()
	if o.state != StateActive {
		o.mu.Unlock()
		return nil
	}
	holdID := o.hold.ID
	o.state = StateFailed
	o.stopTickerLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	comp := &domain.Compensation{HoldID: holdID}
	if _, err := o.booking.Cancel(ctx, o.sess, upstream.CancelTarget{HoldID: holdID}); err != nil {
		comp.Error = err.Error()
		log.Printf("hold %s: release %s failed: %v", o.leg, holdID, err)
	} else {
		comp.Released = true
		log.Printf("hold %s: released %s", o.leg, holdID)
	}

	o.mu.Lock()
	o.release = comp
	snap = o.snapshotLocked()
	o.mu.Unlock()
	o.notify(snap)

	out := *comp
	return &out
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	expired := o.expireIfDueLocked()
	snap := o.snapshotLocked()
	o.mu.Unlock()
	if expired {
		o.notify(snap)
	}
	return snap
}

// Remaining is max(0, expiresAt-now). Zero before the hold is active.
func (o *Orchestrator) Remaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remainingLocked()
}

func (o *Orchestrator) remainingLocked() time.Duration {
	if o.hold == nil {
		return 0
	}
	left := o.hold.ExpiresAt.Sub(o.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// expireIfDueLocked moves a live hold to Expired once its expiry instant has passed.
func (o *Orchestrator) expireIfDueLocked() bool {
	if o.state != StateActive && o.state != StateConfirmRequested {
		return false
	}
	if o.remainingLocked() > 0 {
		return false
	}
	o.state = StateExpired
	if o.failure == nil {
		o.failure = domain.NewFailure(domain.FailureHoldExpired, "hold expired before confirmation")
	}
	o.stopTickerLocked()
	log.Printf("hold %s: %s expired", o.leg, o.hold.ID)
	return true
}

func (o *Orchestrator) startTickerLocked() {
	if o.ticker != nil {
		return
	}
	o.ticker = o.clock.Ticker(o.tick)
	o.stopTick = make(chan struct{})
	go o.runTicker(o.ticker, o.stopTick)
}

func (o *Orchestrator) stopTickerLocked() {
	if o.ticker == nil {
		return
	}
	o.ticker.Stop()
	close(o.stopTick)
	o.ticker = nil
	o.stopTick = nil
}

func (o *Orchestrator) runTicker(ticker *clock.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			expired := o.expireIfDueLocked()
			snap := o.snapshotLocked()
			o.mu.Unlock()
			if expired {
				o.notify(snap)
				return
			}
		}
	}
}

func (o *Orchestrator) failureLocked() error {
	if o.failure == nil {
		return nil
	}
	return o.failure
}

// secondsLeft rounds up so a hold still shows 1 during its last second.
func secondsLeft(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Leg:             o.leg,
		State:           o.state,
		OfferID:         o.request.OfferID,
		BookingCode:     o.code,
		LateBookingCode: o.late,
	}
	if o.state == StateActive || o.state == StateConfirmRequested {
		snap.SecondsLeft = secondsLeft(o.remainingLocked())
	}
	if o.hold != nil {
		h := *o.hold
		h.Status = o.state.holdStatus()
		snap.Hold = &h
	}
	if o.failure != nil {
		f := *o.failure
		snap.Failure = &f
	}
	if o.release != nil {
		r := *o.release
		snap.Release = &r
	}
	return snap
}

func (o *Orchestrator) notify(snap Snapshot) {
	if o.onTransition != nil {
		o.onTransition(snap)
	}
}
