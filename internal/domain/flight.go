package domain

import (
	"fmt"
	"strings"
	"time"
)

type PriceBreakdown struct {
	Base         float64 `json:"base"`
	TimeMult     float64 `json:"time_mult"`
	SeatMult     float64 `json:"seat_mult"`
	DemandMult   float64 `json:"demand_mult"`
	ClampedPrice float64 `json:"clamped_price"`
}

// FlightOffer is a priced, seat-limited flight instance returned by a search.
type FlightOffer struct {
	ID                   string         `json:"id"`
	Airline              string         `json:"airline"`
	FlightNumber         string         `json:"flight_number"`
	Origin               string         `json:"origin"`
	Destination          string         `json:"destination"`
	Date                 string         `json:"date"`
	DepartureTime        time.Time      `json:"departure_time"`
	ArrivalTime          time.Time      `json:"arrival_time"`
	Duration             time.Duration  `json:"duration"`
	SeatsAvailable       int            `json:"seats_available"`
	BasePrice            float64        `json:"base_price"`
	DynamicPrice         float64        `json:"dynamic_price"`
	Breakdown            PriceBreakdown `json:"price_breakdown"`
	PriceLockSecondsLeft *int           `json:"price_cached_seconds_left,omitempty"`
	PriceIncreasePercent *float64       `json:"price_increase_percent,omitempty"`
	RecentlyChanged      bool           `json:"recently_changed"`
}

// OfferDelta is a partial update pushed by the feed. Nil fields are left untouched.
type OfferDelta struct {
	Price *float64
	Seats *int
}

func (d OfferDelta) Empty() bool {
	return d.Price == nil && d.Seats == nil
}

// Apply overwrites the fields present in the delta.
func (d OfferDelta) Apply(o *FlightOffer) {
	if d.Price != nil {
		o.DynamicPrice = *d.Price
	}
	if d.Seats != nil {
		o.SeatsAvailable = *d.Seats
	}
}

// Scope identifies one search: a route on a date.
type Scope struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

func NewScope(origin, destination, date string) Scope {
	return Scope{
		Origin:      strings.ToUpper(strings.TrimSpace(origin)),
		Destination: strings.ToUpper(strings.TrimSpace(destination)),
		Date:        strings.TrimSpace(date),
	}
}

// Reverse returns the scope of the return leg flown on date.
func (s Scope) Reverse(date string) Scope {
	return NewScope(s.Destination, s.Origin, date)
}

func (s Scope) Key() string {
	return fmt.Sprintf("%s-%s@%s", s.Origin, s.Destination, s.Date)
}

func (s Scope) String() string {
	return s.Key()
}

type CitySuggestion struct {
	Code    string `json:"code"`
	City    string `json:"city"`
	Airport string `json:"airport"`
}
