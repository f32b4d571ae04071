package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/Domenick1991/flysmart/internal/session"
	"github.com/spf13/cast"
)

type PricingClient struct {
	client
}

func NewPricingClient(baseURL string, timeout time.Duration, hc *http.Client) *PricingClient {
	return &PricingClient{client: newClient(baseURL, timeout, hc)}
}

// SearchParams are the server-side filters of a search. Zero values are not sent.
type SearchParams struct {
	MinPrice float64
	MaxPrice float64
	SortBy   string
	Order    string
	Limit    int
	Offset   int
}

type flightOut struct {
	ID                     any                    `json:"id"`
	Airline                string                 `json:"airline"`
	FlightNumber           string                 `json:"flight_number"`
	Origin                 string                 `json:"origin"`
	Destination            string                 `json:"destination"`
	FlightDate             string                 `json:"flight_date"`
	DepartureISO           string                 `json:"departure_iso"`
	ArrivalISO             string                 `json:"arrival_iso"`
	DurationMin            any                    `json:"duration_min"`
	SeatsAvailable         any                    `json:"seats_available"`
	BasePrice              any                    `json:"base_price"`
	DynamicPrice           any                    `json:"dynamic_price"`
	PriceReal              any                    `json:"price_real"`
	PriceBreakdown         *domain.PriceBreakdown `json:"price_breakdown"`
	PriceCachedSecondsLeft any                    `json:"price_cached_seconds_left"`
	PriceIncreasePercent   any                    `json:"price_increase_percent"`
}

type suggestionOut struct {
	City        string `json:"city"`
	Code        string `json:"code"`
	AirportName string `json:"airport_name"`
}

func (c *PricingClient) Search(ctx context.Context, sess session.Session, scope domain.Scope, params SearchParams) ([]domain.FlightOffer, error) {
	q := url.Values{}
	q.Set("origin", scope.Origin)
	q.Set("destination", scope.Destination)
	if scope.Date != "" {
		q.Set("date", scope.Date)
	}
	if params.MinPrice > 0 {
		q.Set("min_price", cast.ToString(params.MinPrice))
	}
	if params.MaxPrice > 0 {
		q.Set("max_price", cast.ToString(params.MaxPrice))
	}
	if params.SortBy != "" {
		q.Set("sort_by", params.SortBy)
	}
	if params.Order != "" {
		q.Set("order", params.Order)
	}
	if params.Limit > 0 {
		q.Set("limit", cast.ToString(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", cast.ToString(params.Offset))
	}

	var raw []flightOut
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/flights/search", q, nil, &raw); err != nil {
		return nil, fmt.Errorf("search %s: %w", scope, err)
	}

	offers := make([]domain.FlightOffer, 0, len(raw))
	for _, f := range raw {
		offer, err := f.toDomain()
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", scope, err)
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (c *PricingClient) Suggest(ctx context.Context, sess session.Session, query string) ([]domain.CitySuggestion, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []domain.CitySuggestion{}, nil
	}
	var raw []suggestionOut
	if err := c.do(ctx, sess, http.MethodGet, "/api/v1/flights/suggest", url.Values{"q": {query}}, nil, &raw); err != nil {
		return nil, fmt.Errorf("suggest %q: %w", query, err)
	}
	out := make([]domain.CitySuggestion, 0, len(raw))
	for _, s := range raw {
		out = append(out, domain.CitySuggestion{Code: s.Code, City: s.City, Airport: s.AirportName})
	}
	return out, nil
}

func (f flightOut) toDomain() (domain.FlightOffer, error) {
	id := cast.ToString(f.ID)
	if id == "" {
		return domain.FlightOffer{}, fmt.Errorf("flight without id")
	}
	departure, err := parseInstant(f.DepartureISO)
	if err != nil {
		return domain.FlightOffer{}, fmt.Errorf("flight %s departure: %w", id, err)
	}
	arrival, err := parseInstant(f.ArrivalISO)
	if err != nil {
		return domain.FlightOffer{}, fmt.Errorf("flight %s arrival: %w", id, err)
	}

	dynamic := f.DynamicPrice
	if dynamic == nil {
		dynamic = f.PriceReal
	}
	offer := domain.FlightOffer{
		ID:             id,
		Airline:        f.Airline,
		FlightNumber:   f.FlightNumber,
		Origin:         f.Origin,
		Destination:    f.Destination,
		Date:           f.FlightDate,
		DepartureTime:  departure,
		ArrivalTime:    arrival,
		Duration:       time.Duration(cast.ToInt(f.DurationMin)) * time.Minute,
		SeatsAvailable: cast.ToInt(f.SeatsAvailable),
		BasePrice:      cast.ToFloat64(f.BasePrice),
		DynamicPrice:   cast.ToFloat64(dynamic),
	}
	if offer.Duration == 0 && arrival.After(departure) {
		offer.Duration = arrival.Sub(departure)
	}
	if offer.Date == "" {
		offer.Date = departure.Format("2006-01-02")
	}
	if f.PriceBreakdown != nil {
		offer.Breakdown = *f.PriceBreakdown
	}
	if f.PriceCachedSecondsLeft != nil {
		v := cast.ToInt(f.PriceCachedSecondsLeft)
		offer.PriceLockSecondsLeft = &v
	}
	if f.PriceIncreasePercent != nil {
		v := cast.ToFloat64(f.PriceIncreasePercent)
		offer.PriceIncreasePercent = &v
	}
	return offer, nil
}
