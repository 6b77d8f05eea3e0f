package sim

import (
	"math"
	"testing"
)

// tickAtPhase returns a tick whose cycle phase sits in the requested regime.
func tickAtPhase(w *World, want func(*World) bool) uint64 {
	for tick := uint64(0); tick < 16*8000; tick += TicksPerMonth {
		w.Tick = tick
		if want(w) {
			return tick
		}
	}
	return 0
}

func TestRecessionDriftsRatesIntoBand(t *testing.T) {
	w := newTestWorld(t, 5)
	w.CreateCity(10, 10, "Port Anders", 800_000)
	c := w.Cities.Get(w.CityList[0])
	c.InterestBps = 800 // start well above the recession band

	if tickAtPhase(w, (*World).Recession) == 0 {
		t.Fatalf("no recession tick found in one full cycle")
	}

	// 15%/month convergence: two years pinned in recession must land the
	// rate inside (or numerically at) the 150–250bps band.
	for m := 0; m < 24; m++ {
		w.cityMonthlyPolicy(c)
	}
	if c.InterestBps < 50 || c.InterestBps > rateRecessionHi+10 {
		t.Fatalf("rate after 24 recession months = %.0fbps, want near [%v, %v]",
			c.InterestBps, rateRecessionLo, rateRecessionHi)
	}
}

func TestBoomRatesClimbAboveNeutral(t *testing.T) {
	w := newTestWorld(t, 5)
	w.CreateCity(10, 10, "Port Anders", 800_000)
	c := w.Cities.Get(w.CityList[0])
	start := c.InterestBps

	if tickAtPhase(w, (*World).Boom) == 0 {
		t.Fatalf("no boom tick found in one full cycle")
	}
	for m := 0; m < 24; m++ {
		w.cityMonthlyPolicy(c)
	}
	if c.InterestBps <= start {
		t.Fatalf("boom rate %.0fbps did not rise above starting %.0fbps", c.InterestBps, start)
	}
	if c.InterestBps > rateBoomHi+10 {
		t.Fatalf("boom rate %.0fbps overshot the band top %v", c.InterestBps, rateBoomHi)
	}
}

func TestFuelPriceStaysClamped(t *testing.T) {
	w := newTestWorld(t, 11)
	w.FuelPrice = 5000 // absurd starting point
	for d := 0; d < 365; d++ {
		w.driftFuelPrice()
		if w.FuelPrice < fuelMin || w.FuelPrice > fuelMax {
			t.Fatalf("day %d: fuel price %v escaped [%v, %v]", d, w.FuelPrice, fuelMin, fuelMax)
		}
	}
	// After a year of 5%/day drift the price must sit near the oil target.
	if math.Abs(w.FuelPrice-oilBase*100) > 30 {
		t.Fatalf("fuel price %v never converged toward %v", w.FuelPrice, oilBase*100)
	}
}

func TestCityPopulationHasFloor(t *testing.T) {
	w := newTestWorld(t, 2)
	w.CreateCity(0, 0, "Ghost Gulch", 1001)
	c := w.Cities.Get(w.CityList[0])
	w.Tick = tickAtPhase(w, (*World).Recession)
	for d := 0; d < 3650; d++ {
		w.cityDailyAdjust(c)
	}
	if c.Population < 1000 {
		t.Fatalf("population %d fell below the floor", c.Population)
	}
}

func TestCyclePhaseRegimes(t *testing.T) {
	w := newTestWorld(t, 1)
	w.Tick = 0
	if w.Recession() || w.Boom() {
		t.Fatalf("tick 0 must be neutral")
	}
	peak := 8000 * math.Pi / 2
	w.Tick = uint64(peak) // sin peak
	if !w.Boom() {
		t.Fatalf("cycle peak must read as boom, phase=%v", w.CyclePhase())
	}
	trough := 8000 * 3 * math.Pi / 2
	w.Tick = uint64(trough) // sin trough
	if !w.Recession() {
		t.Fatalf("cycle trough must read as recession, phase=%v", w.CyclePhase())
	}
}
