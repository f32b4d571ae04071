// Package search runs offer searches, installs the results in the offer store and serves projections of it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/projection"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/Domenick1991/flysmart/internal/upstream"
	"github.com/spf13/cast"
)

type SearchUseCase interface {
	Search(ctx context.Context, sess session.Session, req domain.SearchRequest) (*Result, error)
	Offers(scope domain.Scope, filter domain.FilterCriteria, sort domain.SortCriteria) (*Listing, error)
	Facets(scopes ...domain.Scope) projection.Facets
	Offer(id string) (*domain.FlightOffer, error)
	Suggest(ctx context.Context, sess session.Session, query string) ([]domain.CitySuggestion, error)
}

type PricingGateway interface {
	Search(ctx context.Context, sess session.Session, scope domain.Scope, params upstream.SearchParams) ([]domain.FlightOffer, error)
	Suggest(ctx context.Context, sess session.Session, query string) ([]domain.CitySuggestion, error)
}

type OfferCache interface {
	GetOffers(ctx context.Context, key string) ([]domain.FlightOffer, error)
	SetOffers(ctx context.Context, key string, offers []domain.FlightOffer) error
}

type OfferStore interface {
	Put(scope domain.Scope, offers []domain.FlightOffer)
	Get(scope domain.Scope) []domain.FlightOffer
	Has(scope domain.Scope) bool
	Find(id string) (domain.FlightOffer, bool)
	Freshness() (stale bool, since time.Time)
}

// Listing is one scope's offers as the presentation layer shows them.
type Listing struct {
	Scope      domain.Scope         `json:"scope"`
	Offers     []domain.FlightOffer `json:"offers"`
	Stale      bool                 `json:"stale"`
	StaleSince *time.Time           `json:"stale_since,omitempty"`
}

type Result struct {
	Outbound Listing           `json:"outbound"`
	Return   *Listing          `json:"return,omitempty"`
	Facets   projection.Facets `json:"facets"`
}

var (
	ErrScopeNotLoaded = errors.New("no search loaded for this route and date")
	ErrOfferNotFound  = errors.New("offer not found in any loaded search")
)

type SearchService struct {
	pricing PricingGateway
	cache   OfferCache
	store   OfferStore
}

func NewSearchService(pricing PricingGateway, cache OfferCache, store OfferStore) *SearchService {
	return &SearchService{pricing: pricing, cache: cache, store: store}
}

// Search loads the outbound scope and, for round trips, the return scope. Each
// load replaces the scope in the store wholesale.
func (s *SearchService) Search(ctx context.Context, sess session.Session, req domain.SearchRequest) (*Result, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	params := upstream.SearchParams{MinPrice: req.MinPrice, MaxPrice: req.MaxPrice}

	outScope := req.Scope()
	if err := s.load(ctx, sess, outScope, params); err != nil {
		return nil, err
	}
	result := &Result{Outbound: s.listing(outScope, s.store.Get(outScope))}

	if retScope, ok := req.ReturnScope(); ok {
		if err := s.load(ctx, sess, retScope, params); err != nil {
			return nil, err
		}
		ret := s.listing(retScope, s.store.Get(retScope))
		result.Return = &ret
		result.Facets = projection.BuildFacets(result.Outbound.Offers, ret.Offers)
	} else {
		result.Facets = projection.BuildFacets(result.Outbound.Offers)
	}
	return result, nil
}

// Offers projects the stored scope through filter and sort.
func (s *SearchService) Offers(scope domain.Scope, filter domain.FilterCriteria, sort domain.SortCriteria) (*Listing, error) {
	if !s.store.Has(scope) {
		return nil, ErrScopeNotLoaded
	}
	listing := s.listing(scope, projection.Project(s.store.Get(scope), filter, sort))
	return &listing, nil
}

func (s *SearchService) Facets(scopes ...domain.Scope) projection.Facets {
	sets := make([][]domain.FlightOffer, 0, len(scopes))
	for _, scope := range scopes {
		sets = append(sets, s.store.Get(scope))
	}
	return projection.BuildFacets(sets...)
}

// Offer returns the current snapshot of one offer, live deltas included.
func (s *SearchService) Offer(id string) (*domain.FlightOffer, error) {
	offer, ok := s.store.Find(id)
	if !ok {
		return nil, ErrOfferNotFound
	}
	return &offer, nil
}

func (s *SearchService) Suggest(ctx context.Context, sess session.Session, query string) ([]domain.CitySuggestion, error) {
	return s.pricing.Suggest(ctx, sess, query)
}

// load fills the store for scope. The cache only seeds scopes the store does not hold yet.
func (s *SearchService) load(ctx context.Context, sess session.Session, scope domain.Scope, params upstream.SearchParams) error {
	key := cacheKey(scope, params)
	if s.cache != nil && !s.store.Has(scope) {
		if cached, err := s.cache.GetOffers(ctx, key); err == nil && cached != nil {
			s.store.Put(scope, cached)
			return nil
		} else if err != nil {
			log.Printf("offer cache read %s: %v", key, err)
		}
	}

	offers, err := s.pricing.Search(ctx, sess, scope, params)
	if err != nil {
		return err
	}
	s.store.Put(scope, offers)
	if s.cache != nil {
		if err := s.cache.SetOffers(ctx, key, offers); err != nil {
			log.Printf("offer cache write %s: %v", key, err)
		}
	}
	return nil
}

func (s *SearchService) listing(scope domain.Scope, offers []domain.FlightOffer) Listing {
	l := Listing{Scope: scope, Offers: offers}
	if l.Offers == nil {
		l.Offers = []domain.FlightOffer{}
	}
	if stale, since := s.store.Freshness(); stale {
		l.Stale = true
		l.StaleSince = &since
	}
	return l
}

func cacheKey(scope domain.Scope, params upstream.SearchParams) string {
	return fmt.Sprintf("%s:%s:%s", scope.Key(), cast.ToString(params.MinPrice), cast.ToString(params.MaxPrice))
}

var _ SearchUseCase = (*SearchService)(nil)
