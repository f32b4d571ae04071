package store

import (
	"testing"
	"time"

	"github.com/Domenick1991/flysmart/internal/domain"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }
func seats(v int) *int         { return &v }

func testOffers() []domain.FlightOffer {
	return []domain.FlightOffer{
		{ID: "1", Airline: "IndiGo", DynamicPrice: 1000, SeatsAvailable: 10},
		{ID: "2", Airline: "Vistara", DynamicPrice: 1500, SeatsAvailable: 5},
		{ID: "3", Airline: "IndiGo", DynamicPrice: 2000, SeatsAvailable: 1},
	}
}

var hydBlr = domain.NewScope("hyd", "blr", "2026-11-01")

func TestOfferStore_PutReplacesScope(t *testing.T) {
	s := NewOfferStore(clock.NewMock())

	s.Put(hydBlr, testOffers())
	s.Put(hydBlr, []domain.FlightOffer{{ID: "9", DynamicPrice: 700}})

	got := s.Get(hydBlr)
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].ID)
}

func TestOfferStore_PutKeepsOneEntryPerID(t *testing.T) {
	s := NewOfferStore(clock.NewMock())

	s.Put(hydBlr, []domain.FlightOffer{
		{ID: "1", DynamicPrice: 100},
		{ID: "2", DynamicPrice: 200},
		{ID: "1", DynamicPrice: 150},
	})

	got := s.Get(hydBlr)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, 150.0, got[0].DynamicPrice)
}

func TestOfferStore_PatchUnknownIDIsNoop(t *testing.T) {
	s := NewOfferStore(clock.NewMock())
	s.Put(hydBlr, testOffers())

	applied := s.Patch(hydBlr, "404", domain.OfferDelta{Price: price(1)})
	assert.False(t, applied)
	assert.Len(t, s.Get(hydBlr), 3)

	applied = s.Patch(domain.NewScope("del", "bom", "2026-11-01"), "1", domain.OfferDelta{Price: price(1)})
	assert.False(t, applied)
}

func TestOfferStore_PatchOverwritesOnlyGivenFields(t *testing.T) {
	s := NewOfferStore(clock.NewMock())
	s.Put(hydBlr, testOffers())

	assert.True(t, s.Patch(hydBlr, "2", domain.OfferDelta{Seats: seats(4)}))

	offer, ok := s.Offer(hydBlr, "2")
	require.True(t, ok)
	assert.Equal(t, 4, offer.SeatsAvailable)
	assert.Equal(t, 1500.0, offer.DynamicPrice)
}

func TestOfferStore_PatchIsIdempotentUnderDuplicates(t *testing.T) {
	deltas := []domain.OfferDelta{
		{Price: price(1800)},
		{Seats: seats(3)},
		{Price: price(1900), Seats: seats(2)},
	}

	once := NewOfferStore(clock.NewMock())
	once.Put(hydBlr, testOffers())
	for _, d := range deltas {
		once.Patch(hydBlr, "2", d)
	}

	dup := NewOfferStore(clock.NewMock())
	dup.Put(hydBlr, testOffers())
	for _, d := range deltas {
		dup.Patch(hydBlr, "2", d)
		dup.Patch(hydBlr, "2", d)
	}
	// replaying the tail again must not change anything
	dup.Patch(hydBlr, "2", deltas[2])

	assert.Equal(t, once.Get(hydBlr), dup.Get(hydBlr))
}

func TestOfferStore_PatchAllTouchesEveryScope(t *testing.T) {
	s := NewOfferStore(clock.NewMock())
	back := hydBlr.Reverse("2026-11-05")
	s.Put(hydBlr, testOffers())
	s.Put(back, []domain.FlightOffer{{ID: "2", DynamicPrice: 1500}})

	touched := s.PatchAll("2", domain.OfferDelta{Price: price(1600)})

	assert.Len(t, touched, 2)
	o, _ := s.Offer(hydBlr, "2")
	r, _ := s.Offer(back, "2")
	assert.Equal(t, 1600.0, o.DynamicPrice)
	assert.Equal(t, 1600.0, r.DynamicPrice)
}

func TestOfferStore_ReadersGetCopies(t *testing.T) {
	s := NewOfferStore(clock.NewMock())
	s.Put(hydBlr, testOffers())

	got := s.Get(hydBlr)
	got[0].DynamicPrice = 1

	again, _ := s.Offer(hydBlr, "1")
	assert.Equal(t, 1000.0, again.DynamicPrice)
}

func TestOfferStore_ChangeMarksExpire(t *testing.T) {
	clk := clock.NewMock()
	s := NewOfferStore(clk)
	s.Put(hydBlr, testOffers())

	s.MarkChanged("3", clk.Now().Add(3500*time.Millisecond))

	offer, _ := s.Offer(hydBlr, "3")
	assert.True(t, offer.RecentlyChanged)

	clk.Add(3 * time.Second)
	offer, _ = s.Offer(hydBlr, "3")
	assert.True(t, offer.RecentlyChanged)

	clk.Add(time.Second)
	offer, _ = s.Offer(hydBlr, "3")
	assert.False(t, offer.RecentlyChanged)
	assert.Equal(t, 1, s.PruneChanges())
}

func TestOfferStore_EvictAndStale(t *testing.T) {
	clk := clock.NewMock()
	s := NewOfferStore(clk)
	s.Put(hydBlr, testOffers())

	clk.Add(10 * time.Minute)
	s.Put(hydBlr.Reverse("2026-11-05"), testOffers())

	assert.Equal(t, 1, s.EvictOlderThan(5*time.Minute))
	assert.False(t, s.Has(hydBlr))
	assert.Len(t, s.Scopes(), 1)

	s.SetStale(true)
	stale, since := s.Freshness()
	assert.True(t, stale)
	assert.Equal(t, clk.Now(), since)

	s.SetStale(false)
	stale, _ = s.Freshness()
	assert.False(t, stale)
}
