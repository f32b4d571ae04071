// Package attempt coordinates one or two hold orchestrators as a single booking attempt.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/service/hold"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/benbjohnson/clock"
)

var (
	ErrAttemptBusy     = errors.New("attempt has a request in flight")
	ErrAttemptNotFound = errors.New("attempt not found")
)

// View is what the presentation layer renders for an attempt.
// The outbound leg's countdown governs SecondsLeft.
type View struct {
	ID           string               `json:"id"`
	Status       domain.AttemptStatus `json:"status"`
	Outbound     hold.Snapshot        `json:"outbound"`
	Return       *hold.Snapshot       `json:"return,omitempty"`
	SecondsLeft  int                  `json:"seconds_left"`
	Codes        domain.BookingCodes  `json:"booking_codes"`
	Failure      *domain.Failure      `json:"failure,omitempty"`
	Compensation *domain.Compensation `json:"compensation,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// LateCodes lists booking codes issued after a leg had already expired locally.
func (v View) LateCodes() []string {
	var out []string
	if v.Outbound.LateBookingCode != "" {
		out = append(out, v.Outbound.LateBookingCode)
	}
	if v.Return != nil && v.Return.LateBookingCode != "" {
		out = append(out, v.Return.LateBookingCode)
	}
	return out
}

// Attempt is the dual-leg coordinator. For a one-way trip it runs the outbound leg alone.
type Attempt struct {
	mu        sync.Mutex
	id        string
	sess      session.Session
	passenger domain.PassengerDetails
	clock     clock.Clock
	bg        context.Context
	onChange  func(View)

	outbound *hold.Orchestrator
	ret      *hold.Orchestrator

	status       domain.AttemptStatus
	codes        domain.BookingCodes
	failure      *domain.Failure
	compensation *domain.Compensation
	busy         bool
	createdAt    time.Time
	updatedAt    time.Time
}

type attemptConfig struct {
	id       string
	booking  hold.BookingGateway
	sess     session.Session
	request  domain.AttemptRequest
	clock    clock.Clock
	tick     time.Duration
	bg       context.Context
	onChange func(View)
}

func newAttempt(cfg attemptConfig) *Attempt {
	if cfg.bg == nil {
		cfg.bg = context.Background()
	}
	now := cfg.clock.Now()
	a := &Attempt{
		id:        cfg.id,
		sess:      cfg.sess,
		passenger: cfg.request.Passenger,
		clock:     cfg.clock,
		bg:        cfg.bg,
		onChange:  cfg.onChange,
		status:    domain.AttemptInProgress,
		createdAt: now,
		updatedAt: now,
	}

	opts := []hold.Option{
		hold.WithClock(cfg.clock),
		hold.WithTickInterval(cfg.tick),
		hold.WithTransitionHook(a.legChanged),
	}
	manifest := cfg.request.Passenger.Manifest()
	reserve := func(offerID string) domain.ReserveRequest {
		return domain.ReserveRequest{
			OfferID:          offerID,
			Seats:            cfg.request.Seats,
			PassengerName:    cfg.request.Passenger.Name,
			PassengerContact: cfg.request.Passenger.Email,
		}
	}

	a.outbound = hold.NewOrchestrator(domain.LegOutbound, cfg.booking, cfg.sess, reserve(cfg.request.OutboundOfferID), manifest, opts...)
	if cfg.request.RoundTrip() {
		a.ret = hold.NewOrchestrator(domain.LegReturn, cfg.booking, cfg.sess, reserve(cfg.request.ReturnOfferID), manifest, opts...)
	}
	return a
}

func (a *Attempt) ID() string { return a.id }

func (a *Attempt) Subject() string { return a.sess.Subject() }

func (a *Attempt) Passenger() domain.PassengerDetails { return a.passenger }

// Reserve holds the outbound leg, then the return leg. A failed return leg releases the outbound hold.
func (a *Attempt) Reserve(ctx context.Context) error {
	if !a.acquire() {
		return ErrAttemptBusy
	}

	if err := a.outbound.Reserve(ctx); err != nil {
		f := domain.AsFailure(err)
		a.finish(domain.AttemptFailed, f, nil)
		return f
	}

	if a.ret != nil {
		if err := a.ret.Reserve(ctx); err != nil {
			f := domain.AsFailure(err)
			comp := a.outbound.Release(ctx)
			log.Printf("attempt %s: return leg failed (%v), outbound released: %v", a.id, f, comp != nil && comp.Released)
			a.finish(domain.AttemptFailed, f, comp)
			return f
		}
	}

	a.mu.Lock()
	a.busy = false
	a.updatedAt = a.clock.Now()
	a.mu.Unlock()
	a.emit()
	a.checkExpired()
	return nil
}

// Confirm confirms the outbound leg, then the return leg.
// A confirmed attempt returns nil again without new requests.
func (a *Attempt) Confirm(ctx context.Context) error {
	a.mu.Lock()
	if a.status.Terminal() {
		status, f := a.status, a.failure
		a.mu.Unlock()
		if status == domain.AttemptConfirmed || f == nil {
			return nil
		}
		return f
	}
	if a.busy {
		a.mu.Unlock()
		return ErrAttemptBusy
	}
	a.busy = true
	a.mu.Unlock()

	for _, leg := range a.legs() {
		snap := leg.Snapshot()
		if snap.State == hold.StateActive {
			continue
		}
		if snap.State == hold.StateExpired {
			f := domain.NewFailure(domain.FailureHoldExpired, fmt.Sprintf("%s hold expired before confirmation", leg.Leg()))
			a.finish(domain.AttemptExpired, f, a.releaseOther(ctx, leg.Leg()))
			return f
		}
		f := domain.NewFailure(domain.FailureConfirmation, fmt.Sprintf("%s hold is %s", leg.Leg(), snap.State))
		a.finish(domain.AttemptFailed, f, a.releaseOther(ctx, leg.Leg()))
		return f
	}

	code, err := a.outbound.Confirm(ctx)
	if err != nil {
		status, f := confirmOutcome(domain.LegOutbound, err)
		a.finish(status, f, a.releaseOther(ctx, domain.LegOutbound))
		return f
	}
	a.mu.Lock()
	a.codes.Outbound = code
	a.mu.Unlock()

	if a.ret == nil {
		a.finish(domain.AttemptConfirmed, nil, nil)
		return nil
	}

	code, err = a.ret.Confirm(ctx)
	if err != nil {
		_, f := confirmOutcome(domain.LegReturn, err)
		log.Printf("attempt %s: outbound confirmed, return failed: %v", a.id, f)
		a.finish(domain.AttemptPartiallyFailed, f, nil)
		return f
	}
	a.mu.Lock()
	a.codes.Return = code
	a.mu.Unlock()
	a.finish(domain.AttemptConfirmed, nil, nil)
	return nil
}

// Abandon releases every active hold on user request.
func (a *Attempt) Abandon(ctx context.Context) error {
	a.mu.Lock()
	if a.status.Terminal() {
		a.mu.Unlock()
		return nil
	}
	if a.busy {
		a.mu.Unlock()
		return ErrAttemptBusy
	}
	a.busy = true
	a.mu.Unlock()

	var comp *domain.Compensation
	for _, leg := range a.legs() {
		if c := leg.Release(ctx); c != nil && comp == nil {
			comp = c
		}
	}
	a.finish(domain.AttemptFailed, domain.NewFailure(domain.FailureAbandoned, "attempt abandoned, holds released"), comp)
	return nil
}

func (a *Attempt) View() View {
	out := a.outbound.Snapshot()
	var ret *hold.Snapshot
	if a.ret != nil {
		s := a.ret.Snapshot()
		ret = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	v := View{
		ID:          a.id,
		Status:      a.status,
		Outbound:    out,
		Return:      ret,
		SecondsLeft: out.SecondsLeft,
		Codes:       a.codes,
		CreatedAt:   a.createdAt,
		UpdatedAt:   a.updatedAt,
	}
	if a.status.Terminal() {
		v.SecondsLeft = 0
	}
	if a.failure != nil {
		f := *a.failure
		v.Failure = &f
	}
	if a.compensation != nil {
		c := *a.compensation
		v.Compensation = &c
	}
	return v
}

// Done reports whether the attempt is terminal and since when.
func (a *Attempt) Done() (bool, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status.Terminal(), a.updatedAt
}

func (a *Attempt) legs() []*hold.Orchestrator {
	if a.ret == nil {
		return []*hold.Orchestrator{a.outbound}
	}
	return []*hold.Orchestrator{a.outbound, a.ret}
}

func (a *Attempt) releaseOther(ctx context.Context, leg domain.Leg) *domain.Compensation {
	switch {
	case leg == domain.LegOutbound && a.ret != nil:
		return a.ret.Release(ctx)
	case leg == domain.LegReturn:
		return a.outbound.Release(ctx)
	}
	return nil
}

// legChanged runs on every leg transition. An expiry outside a reserve or confirm
// flow ends the attempt.
func (a *Attempt) legChanged(s hold.Snapshot) {
	if s.State == hold.StateExpired {
		a.expire(s.Leg)
	}
}

func (a *Attempt) expire(leg domain.Leg) {
	if !a.acquire() {
		return
	}
	f := domain.NewFailure(domain.FailureHoldExpired, fmt.Sprintf("%s hold expired before confirmation", leg))
	a.finish(domain.AttemptExpired, f, a.releaseOther(a.bg, leg))
}

func (a *Attempt) checkExpired() {
	for _, leg := range a.legs() {
		if leg.Snapshot().State == hold.StateExpired {
			a.expire(leg.Leg())
			return
		}
	}
}

// acquire marks the attempt busy. It fails when a flow is already running or the attempt is terminal.
func (a *Attempt) acquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status.Terminal() || a.busy {
		return false
	}
	a.busy = true
	return true
}

func (a *Attempt) finish(status domain.AttemptStatus, f *domain.Failure, comp *domain.Compensation) {
	a.mu.Lock()
	a.busy = false
	if a.status.Terminal() {
		a.mu.Unlock()
		return
	}
	a.status = status
	a.failure = f
	if comp != nil {
		a.compensation = comp
	}
	a.updatedAt = a.clock.Now()
	a.mu.Unlock()

	log.Printf("attempt %s: %s", a.id, status)
	a.emit()
}

func (a *Attempt) emit() {
	if a.onChange != nil {
		a.onChange(a.View())
	}
}

func confirmOutcome(leg domain.Leg, err error) (domain.AttemptStatus, *domain.Failure) {
	if errors.Is(err, hold.ErrConfirmedAfterExpiry) {
		return domain.AttemptExpired, domain.NewFailure(domain.FailureHoldExpired, fmt.Sprintf("%s hold expired before the booking was confirmed", leg))
	}
	f := domain.AsFailure(err)
	if f.Kind == domain.FailureHoldExpired {
		return domain.AttemptExpired, f
	}
	return domain.AttemptFailed, f
}
