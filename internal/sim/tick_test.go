package sim

import (
	"math"
	"testing"

	"github.com/vantagegames/magnate/internal/ecs"
)

func TestSubTickGranularityDoesNothing(t *testing.T) {
	w := newTestWorld(t, 1)
	addBakery(t, w)
	before := *w.Cities.Get(w.CityList[0])
	fuel := w.FuelPrice

	// 29 ticks stay inside the day; no pass may run.
	for i := 0; i < TicksPerDay-1; i++ {
		w.AdvanceTick()
	}
	if got := *w.Cities.Get(w.CityList[0]); got != before {
		t.Fatalf("city state changed inside a day: %+v != %+v", got, before)
	}
	if w.FuelPrice != fuel {
		t.Fatalf("fuel price moved inside a day")
	}

	// The 30th tick closes the day and runs the passes.
	w.AdvanceTick()
	if w.FuelPrice == fuel {
		t.Fatalf("day boundary did not run the macro pass")
	}
}

func TestSameSeedReplaysIdentically(t *testing.T) {
	a := newTestWorld(t, 99)
	b := newTestWorld(t, 99)
	addBakery(t, a)
	addBakery(t, b)
	a.AdvanceDays(120)
	b.AdvanceDays(120)

	fa := a.Finances.Get(a.CompanyList[0])
	fb := b.Finances.Get(b.CompanyList[0])
	if fa.Cash != fb.Cash {
		t.Fatalf("cash diverged: %v vs %v", fa.Cash, fb.Cash)
	}
	sa := a.Stocks.Get(a.CompanyList[0])
	sb := b.Stocks.Get(b.CompanyList[0])
	if sa.Price != sb.Price {
		t.Fatalf("stock price diverged: %v vs %v", sa.Price, sb.Price)
	}
	if a.FuelPrice != b.FuelPrice {
		t.Fatalf("fuel price diverged: %v vs %v", a.FuelPrice, b.FuelPrice)
	}
	ca := a.Cities.Get(a.CityList[0])
	cb := b.Cities.Get(b.CityList[0])
	if *ca != *cb {
		t.Fatalf("city state diverged:\n%+v\n%+v", *ca, *cb)
	}
}

func TestBoundedQuantitiesStayInRange(t *testing.T) {
	w := newTestWorld(t, 7)
	company, _ := addBakery(t, w)
	w.AdvanceDays(6 * 30)

	c := w.Cities.Get(w.CityList[0])
	checks := []struct {
		name   string
		v      float64
		lo, hi float64
	}{
		{"sentiment", c.Sentiment, 0, 100},
		{"purchasing power", c.PurchasingPower, 0, 100},
		{"unemployment", c.Unemployment, 1, 30},
		{"demand multiplier", c.DemandMult, 0.4, 1.8},
		{"interest", c.InterestBps, 50, 2500},
		{"fuel price", w.FuelPrice, 30, 180},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.v) || chk.v < chk.lo || chk.v > chk.hi {
			t.Errorf("%s = %v, want within [%v, %v]", chk.name, chk.v, chk.lo, chk.hi)
		}
	}

	fin := w.Finances.Get(company)
	if fin.CreditRating < 0 || fin.CreditRating > 100 {
		t.Errorf("credit rating = %v, want within [0, 100]", fin.CreditRating)
	}
	if fin.Debt < 0 {
		t.Errorf("debt went negative: %v", fin.Debt)
	}
	for _, key := range w.BrandKeys() {
		br := w.Brands[key]
		if br.Awareness < 0 || br.Awareness > 100 || br.Loyalty < 0 || br.Loyalty > 100 {
			t.Errorf("brand %v out of range: %+v", key, br)
		}
	}
	w.Staffing.Each(func(_ ecs.Entity, s *Staffing) {
		if s.Morale < 0 || s.Morale > 100 || s.Training < 0 || s.Training > 100 {
			t.Errorf("staffing out of range: %+v", s)
		}
	})
}

func TestNewsFeedIsBoundedMostRecentFirst(t *testing.T) {
	w := newTestWorld(t, 1)
	for i := 0; i < 80; i++ {
		w.Tick = uint64(i)
		w.PushNews("test", "entry")
	}
	if len(w.News) != newsCap {
		t.Fatalf("news length = %d, want %d", len(w.News), newsCap)
	}
	if w.News[0].Tick != 79 {
		t.Fatalf("newest entry tick = %d, want 79", w.News[0].Tick)
	}
	for i := 1; i < len(w.News); i++ {
		if w.News[i].Tick > w.News[i-1].Tick {
			t.Fatalf("news not most-recent-first at index %d", i)
		}
	}
}

func TestProductionChainReachesShelf(t *testing.T) {
	w := newTestWorld(t, 3)
	company, store := addBakery(t, w)
	w.AdvanceDays(30)

	inv := w.Inventories.Get(store)
	if inv.Stock(20) <= 0 {
		t.Fatalf("no bread reached the store after a month")
	}
	co := w.Companies.Get(company)
	if co.RevenueLastMonth <= 0 {
		t.Fatalf("a stocked, priced shelf earned no revenue")
	}
}
