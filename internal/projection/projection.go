// Package projection turns a scope's offers into the ordered list shown to the user.
package projection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Domenick1991/flysmart/internal/domain"
)

// Project filters and sorts offers. It has no state: identical inputs give identical output.
// Ties on the sort key keep the input order.
func Project(offers []domain.FlightOffer, filter domain.FilterCriteria, sort domain.SortCriteria) []domain.FlightOffer {
	out := make([]domain.FlightOffer, 0, len(offers))
	for _, o := range offers {
		if !filter.PriceInRange(o.DynamicPrice) {
			continue
		}
		if !filter.CarrierSelected(o.Airline) {
			continue
		}
		if !filter.BucketSelected(domain.BucketOf(o.DepartureTime)) {
			continue
		}
		out = append(out, o)
	}

	slices.SortStableFunc(out, comparator(sort.Key))
	return out
}

func comparator(key domain.SortKey) func(a, b domain.FlightOffer) int {
	switch key {
	case domain.SortPriceDesc:
		return func(a, b domain.FlightOffer) int { return cmp.Compare(b.DynamicPrice, a.DynamicPrice) }
	case domain.SortDurationAsc:
		return func(a, b domain.FlightOffer) int { return cmp.Compare(a.Duration, b.Duration) }
	case domain.SortDepartureAsc:
		return func(a, b domain.FlightOffer) int { return a.DepartureTime.Compare(b.DepartureTime) }
	case domain.SortDepartureDesc:
		return func(a, b domain.FlightOffer) int { return b.DepartureTime.Compare(a.DepartureTime) }
	default:
		return func(a, b domain.FlightOffer) int { return cmp.Compare(a.DynamicPrice, b.DynamicPrice) }
	}
}

// Facets describes the values available for building filter controls.
type Facets struct {
	Airlines []string `json:"airlines"`
	MinPrice float64  `json:"min_price"`
	MaxPrice float64  `json:"max_price"`
}

func BuildFacets(offers ...[]domain.FlightOffer) Facets {
	seen := make(map[string]struct{})
	f := Facets{Airlines: []string{}}
	first := true
	for _, list := range offers {
		for _, o := range list {
			if _, ok := seen[strings.ToLower(o.Airline)]; !ok && o.Airline != "" {
				seen[strings.ToLower(o.Airline)] = struct{}{}
				f.Airlines = append(f.Airlines, o.Airline)
			}
			if first || o.DynamicPrice < f.MinPrice {
				f.MinPrice = o.DynamicPrice
			}
			if first || o.DynamicPrice > f.MaxPrice {
				f.MaxPrice = o.DynamicPrice
			}
			first = false
		}
	}
	slices.Sort(f.Airlines)
	return f
}
