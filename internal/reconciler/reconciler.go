// Package reconciler merges push-feed deltas into the offer store.
package reconciler

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
)

const DefaultHighlightWindow = 3500 * time.Millisecond

type OfferPatcher interface {
	PatchAll(id string, delta domain.OfferDelta) []domain.Scope
	MarkChanged(id string, until time.Time)
	PruneChanges() int
}

// Reconciler is the single consumer of feed events. It writes only to the offer store,
// never to holds.
type Reconciler struct {
	store     OfferPatcher
	clock     clock.Clock
	highlight time.Duration
}

func New(store OfferPatcher, clk clock.Clock, highlight time.Duration) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	if highlight <= 0 {
		highlight = DefaultHighlightWindow
	}
	return &Reconciler{store: store, clock: clk, highlight: highlight}
}

// Apply merges one event. Events for offers not in any scope are dropped silently.
func (r *Reconciler) Apply(ev domain.FeedEvent) bool {
	if ev.OfferID == "" || ev.Delta.Empty() {
		return false
	}
	touched := r.store.PatchAll(ev.OfferID, ev.Delta)
	if len(touched) == 0 {
		return false
	}
	r.store.MarkChanged(ev.OfferID, r.clock.Now().Add(r.highlight))
	return true
}

// Run applies events in delivery order until ctx is done or events is closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan domain.FeedEvent) error {
	sweep := r.clock.Ticker(r.highlight)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				log.Printf("[reconciler] feed channel closed")
				return nil
			}
			r.Apply(ev)
		case <-sweep.C:
			r.store.PruneChanges()
		}
	}
}
