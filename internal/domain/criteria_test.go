package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketOf(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		at   time.Time
		want TimeBucket
	}{
		{time.Date(2026, 11, 1, 5, 59, 0, 0, ist), BucketNight},
		{time.Date(2026, 11, 1, 6, 0, 0, 0, ist), BucketMorning},
		{time.Date(2026, 11, 1, 11, 59, 0, 0, ist), BucketMorning},
		{time.Date(2026, 11, 1, 12, 0, 0, 0, ist), BucketAfternoon},
		{time.Date(2026, 11, 1, 18, 0, 0, 0, ist), BucketEvening},
		{time.Date(2026, 11, 1, 23, 59, 0, 0, ist), BucketEvening},
		{time.Date(2026, 11, 1, 0, 30, 0, 0, ist), BucketNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketOf(tt.at), tt.at.String())
	}
}

func TestParseBucketAndSortKey(t *testing.T) {
	b, err := ParseBucket(" Morning ")
	assert.NoError(t, err)
	assert.Equal(t, BucketMorning, b)

	_, err = ParseBucket("dawn")
	assert.Error(t, err)

	k, err := ParseSortKey("")
	assert.NoError(t, err)
	assert.Equal(t, SortPriceAsc, k)

	k, err = ParseSortKey("DEPARTURE-DESC")
	assert.NoError(t, err)
	assert.Equal(t, SortDepartureDesc, k)

	_, err = ParseSortKey("cheapest")
	assert.Error(t, err)
}

func TestFilterCriteria(t *testing.T) {
	carriers := []string{"IndiGo"}
	f := NewFilterCriteria(1000, 2000, carriers, []TimeBucket{BucketMorning})
	carriers[0] = "Vistara"

	assert.True(t, f.PriceInRange(1000))
	assert.True(t, f.PriceInRange(2000))
	assert.False(t, f.PriceInRange(999.99))
	assert.False(t, f.PriceInRange(2000.01))

	assert.True(t, f.CarrierSelected(" indigo "))
	assert.False(t, f.CarrierSelected("Vistara"))
	assert.True(t, f.BucketSelected(BucketMorning))
	assert.False(t, f.BucketSelected(BucketNight))

	open := NewFilterCriteria(0, 0, nil, nil)
	assert.True(t, open.PriceInRange(1e9))
	assert.True(t, open.CarrierSelected("anything"))
	assert.True(t, open.BucketSelected(BucketNight))
}

func TestOfferDelta(t *testing.T) {
	price := 4200.0
	o := FlightOffer{DynamicPrice: 4000, SeatsAvailable: 10}

	assert.True(t, OfferDelta{}.Empty())
	OfferDelta{Price: &price}.Apply(&o)
	assert.Equal(t, 4200.0, o.DynamicPrice)
	assert.Equal(t, 10, o.SeatsAvailable)
}
