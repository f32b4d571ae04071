package domain

import (
	"fmt"
	"strings"
	"time"
)

type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
	BucketNight     TimeBucket = "night"
)

// BucketOf maps a departure instant to its time-of-day bucket, using the instant's own offset.
func BucketOf(t time.Time) TimeBucket {
	h := t.Hour()
	switch {
	case h >= 6 && h < 12:
		return BucketMorning
	case h >= 12 && h < 18:
		return BucketAfternoon
	case h >= 18:
		return BucketEvening
	default:
		return BucketNight
	}
}

func ParseBucket(s string) (TimeBucket, error) {
	switch b := TimeBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case BucketMorning, BucketAfternoon, BucketEvening, BucketNight:
		return b, nil
	default:
		return "", fmt.Errorf("unknown departure bucket %q", s)
	}
}

type SortKey string

const (
	SortPriceAsc      SortKey = "price-asc"
	SortPriceDesc     SortKey = "price-desc"
	SortDurationAsc   SortKey = "duration-asc"
	SortDepartureAsc  SortKey = "departure-asc"
	SortDepartureDesc SortKey = "departure-desc"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortPriceAsc, nil
	case SortPriceAsc, SortPriceDesc, SortDurationAsc, SortDepartureAsc, SortDepartureDesc:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort option %q", s)
	}
}

type SortCriteria struct {
	Key SortKey
}

// FilterCriteria is an immutable value: the constructor copies its inputs.
// MaxPrice of zero means no upper bound.
type FilterCriteria struct {
	minPrice float64
	maxPrice float64
	carriers map[string]struct{}
	buckets  map[TimeBucket]struct{}
}

func NewFilterCriteria(minPrice, maxPrice float64, carriers []string, buckets []TimeBucket) FilterCriteria {
	f := FilterCriteria{minPrice: minPrice, maxPrice: maxPrice}
	if len(carriers) > 0 {
		f.carriers = make(map[string]struct{}, len(carriers))
		for _, c := range carriers {
			f.carriers[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
		}
	}
	if len(buckets) > 0 {
		f.buckets = make(map[TimeBucket]struct{}, len(buckets))
		for _, b := range buckets {
			f.buckets[b] = struct{}{}
		}
	}
	return f
}

func (f FilterCriteria) MinPrice() float64 { return f.minPrice }
func (f FilterCriteria) MaxPrice() float64 { return f.maxPrice }

func (f FilterCriteria) PriceInRange(p float64) bool {
	if p < f.minPrice {
		return false
	}
	return f.maxPrice <= 0 || p <= f.maxPrice
}

func (f FilterCriteria) CarrierSelected(airline string) bool {
	if len(f.carriers) == 0 {
		return true
	}
	_, ok := f.carriers[strings.ToLower(strings.TrimSpace(airline))]
	return ok
}

func (f FilterCriteria) BucketSelected(b TimeBucket) bool {
	if len(f.buckets) == 0 {
		return true
	}
	_, ok := f.buckets[b]
	return ok
}
