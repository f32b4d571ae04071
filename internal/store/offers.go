// Package store keeps the latest known state of the offers returned by searches.
package store

import (
	"sync"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
)

type scopeEntries struct {
	scope    domain.Scope
	order    []string
	offers   map[string]*domain.FlightOffer
	loadedAt time.Time
}

// OfferStore maps offer id to FlightOffer within each search scope.
// It is mutated only through Put and Patch; readers always get copies.
type OfferStore struct {
	mu         sync.RWMutex
	clock      clock.Clock
	scopes     map[string]*scopeEntries
	changes    map[string]time.Time
	stale      bool
	staleSince time.Time
}

func NewOfferStore(clk clock.Clock) *OfferStore {
	if clk == nil {
		clk = clock.New()
	}
	return &OfferStore{
		clock:   clk,
		scopes:  make(map[string]*scopeEntries),
		changes: make(map[string]time.Time),
	}
}

// Put replaces the entries of scope wholesale. Duplicate ids keep their first position
// and the data of their last occurrence.
func (s *OfferStore) Put(scope domain.Scope, offers []domain.FlightOffer) {
	entries := &scopeEntries{
		scope:    scope,
		order:    make([]string, 0, len(offers)),
		offers:   make(map[string]*domain.FlightOffer, len(offers)),
		loadedAt: s.clock.Now(),
	}
	for i := range offers {
		o := offers[i]
		o.RecentlyChanged = false
		if _, exists := entries.offers[o.ID]; !exists {
			entries.order = append(entries.order, o.ID)
		}
		entries.offers[o.ID] = &o
	}

	s.mu.Lock()
	s.scopes[scope.Key()] = entries
	s.mu.Unlock()
}

// Patch applies delta to offer id in scope. Unknown scopes and ids are ignored.
func (s *OfferStore) Patch(scope domain.Scope, id string, delta domain.OfferDelta) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.scopes[scope.Key()]
	if !ok {
		return false
	}
	offer, ok := entries.offers[id]
	if !ok {
		return false
	}
	delta.Apply(offer)
	return true
}

// PatchAll applies delta to id in every scope holding it and returns those scopes.
func (s *OfferStore) PatchAll(id string, delta domain.OfferDelta) []domain.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []domain.Scope
	for _, entries := range s.scopes {
		if offer, ok := entries.offers[id]; ok {
			delta.Apply(offer)
			touched = append(touched, entries.scope)
		}
	}
	return touched
}

// MarkChanged records that id changed; the mark is visible on reads until the given instant.
func (s *OfferStore) MarkChanged(id string, until time.Time) {
	s.mu.Lock()
	if current, ok := s.changes[id]; !ok || until.After(current) {
		s.changes[id] = until
	}
	s.mu.Unlock()
}

// PruneChanges drops expired change marks and reports how many were removed.
func (s *OfferStore) PruneChanges() int {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, until := range s.changes {
		if !now.Before(until) {
			delete(s.changes, id)
			removed++
		}
	}
	return removed
}

// Get returns copies of the scope's offers in the order the search returned them.
func (s *OfferStore) Get(scope domain.Scope) []domain.FlightOffer {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.scopes[scope.Key()]
	if !ok {
		return nil
	}
	out := make([]domain.FlightOffer, 0, len(entries.order))
	for _, id := range entries.order {
		out = append(out, s.copyOf(entries.offers[id], now))
	}
	return out
}

func (s *OfferStore) Offer(scope domain.Scope, id string) (domain.FlightOffer, bool) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.scopes[scope.Key()]
	if !ok {
		return domain.FlightOffer{}, false
	}
	offer, ok := entries.offers[id]
	if !ok {
		return domain.FlightOffer{}, false
	}
	return s.copyOf(offer, now), true
}

// Find looks id up in any scope.
func (s *OfferStore) Find(id string) (domain.FlightOffer, bool) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entries := range s.scopes {
		if offer, ok := entries.offers[id]; ok {
			return s.copyOf(offer, now), true
		}
	}
	return domain.FlightOffer{}, false
}

func (s *OfferStore) Has(scope domain.Scope) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.scopes[scope.Key()]
	return ok
}

func (s *OfferStore) Scopes() []domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Scope, 0, len(s.scopes))
	for _, entries := range s.scopes {
		out = append(out, entries.scope)
	}
	return out
}

func (s *OfferStore) Drop(scope domain.Scope) {
	s.mu.Lock()
	delete(s.scopes, scope.Key())
	s.mu.Unlock()
}

// EvictOlderThan drops scopes loaded more than age ago.
func (s *OfferStore) EvictOlderThan(age time.Duration) int {
	deadline := s.clock.Now().Add(-age)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, entries := range s.scopes {
		if entries.loadedAt.Before(deadline) {
			delete(s.scopes, key)
			evicted++
		}
	}
	return evicted
}

// SetStale flags the whole store as possibly outdated because the feed is down.
func (s *OfferStore) SetStale(stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stale == s.stale {
		return
	}
	s.stale = stale
	if stale {
		s.staleSince = s.clock.Now()
	} else {
		s.staleSince = time.Time{}
	}
}

func (s *OfferStore) Freshness() (stale bool, since time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale, s.staleSince
}

func (s *OfferStore) copyOf(o *domain.FlightOffer, now time.Time) domain.FlightOffer {
	c := *o
	if o.PriceLockSecondsLeft != nil {
		v := *o.PriceLockSecondsLeft
		c.PriceLockSecondsLeft = &v
	}
	if o.PriceIncreasePercent != nil {
		v := *o.PriceIncreasePercent
		c.PriceIncreasePercent = &v
	}
	if until, ok := s.changes[o.ID]; ok && now.Before(until) {
		c.RecentlyChanged = true
	}
	return c
}
