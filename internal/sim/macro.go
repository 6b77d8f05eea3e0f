// Macro-economy pass: city-level population, sentiment, purchasing power,
// wages, rates, inflation, taxes, sector demand, and the global fuel price,
// all driven by the shared sinusoidal business cycle. Deliberately stylized,
// not an econometric model.
package sim

import (
	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	oilBase = 0.65 // fuel target is oilBase·100 dollars, plus noise

	fuelStep = 0.05 // daily drift fraction toward target
	fuelMin  = 30.0
	fuelMax  = 180.0

	rateDrift      = 0.15 // monthly fraction toward the regime band
	inflationDrift = 0.10
	taxShockChance = 0.05
	taxShockSize   = 0.02

	// Interest-rate regime bands, basis points.
	rateRecessionLo, rateRecessionHi = 150.0, 250.0
	rateNeutralLo, rateNeutralHi     = 350.0, 500.0
	rateBoomLo, rateBoomHi           = 650.0, 850.0
)

// macroDaily runs once per simulated day, before anything that reads rates
// or fuel in the same tick.
func (w *World) macroDaily() {
	w.driftFuelPrice()
	for _, e := range w.CityList {
		c := w.Cities.Get(e)
		if c == nil {
			continue
		}
		w.cityDailyAdjust(c)
	}
}

// macroMonthly runs on month boundaries, after the daily pass.
func (w *World) macroMonthly() {
	for _, e := range w.CityList {
		c := w.Cities.Get(e)
		if c == nil {
			continue
		}
		w.cityMonthlyPolicy(c)
	}
}

// driftFuelPrice moves the global commodity price 5% toward its noisy
// target each day, clamped to [$30, $180].
func (w *World) driftFuelPrice() {
	target := oilBase*100 + w.Noise(12)
	w.FuelPrice += (target - w.FuelPrice) * fuelStep
	w.FuelPrice = ecs.Clamp(w.FuelPrice, fuelMin, fuelMax)
}

// cityDailyAdjust applies the daily micro-adjustments: population drift and
// exponential relaxation of sentiment, purchasing power, and real wage.
func (w *World) cityDailyAdjust(c *City) {
	phase := w.CyclePhase()

	// Population: regime-dependent multiplicative factor, dampened above 1M.
	growth := 1.0001
	switch {
	case w.Boom():
		growth = 1.0003
	case w.Recession():
		growth = 0.99985
	}
	if c.Population > 1_000_000 {
		growth = 1 + (growth-1)*0.5
	}
	c.Population = int(float64(c.Population) * growth)
	if c.Population < 1000 {
		c.Population = 1000
	}

	// Sentiment relaxes toward a cycle/employment target.
	sentTarget := 50 + 28*phase - (c.Unemployment-6)*1.5
	c.Sentiment += (sentTarget - c.Sentiment) * 0.02
	c.Sentiment = ecs.Clamp100(c.Sentiment)

	// Purchasing power follows real wage against the reference wage,
	// eroded by inflation above trend.
	ppTarget := 50 * (c.RealWage / 3000.0)
	ppTarget -= (c.InflationBps - 200) / 100.0
	c.PurchasingPower += (ecs.Clamp100(ppTarget) - c.PurchasingPower) * 0.02
	c.PurchasingPower = ecs.Clamp100(c.PurchasingPower)

	// Real wage creeps toward a GDP-driven target.
	wageTarget := 3000 * (1 + c.GDPGrowth/100.0) * (1 - (c.InflationBps-200)/10000.0)
	c.RealWage += (wageTarget - c.RealWage) * 0.01
	c.RealWage = ecs.Clamp(c.RealWage, 500, 20000)
}

// cityMonthlyPolicy moves the slow policy variables: interest rate,
// inflation, taxes, unemployment, GDP growth, and the demand multiplier.
func (w *World) cityMonthlyPolicy(c *City) {
	phase := w.CyclePhase()

	// Central bank: 15%/month toward the regime band.
	var rateTarget float64
	switch {
	case w.Recession():
		rateTarget = w.Range(rateRecessionLo, rateRecessionHi)
	case w.Boom():
		rateTarget = w.Range(rateBoomLo, rateBoomHi)
	default:
		rateTarget = w.Range(rateNeutralLo, rateNeutralHi)
	}
	c.InterestBps += (rateTarget - c.InterestBps) * rateDrift
	c.InterestBps = ecs.Clamp(c.InterestBps, 50, 2500)

	// Unemployment relaxes toward a regime target.
	unempTarget := 6.0 - phase*2.5
	if w.Recession() {
		unempTarget = 11 + w.Range(0, 3)
	}
	c.Unemployment += (unempTarget - c.Unemployment) * 0.12
	c.Unemployment = ecs.Clamp(c.Unemployment, 1, 30)

	// Inflation: 10%/month toward a target shaped by unemployment, the
	// regime, and a business-activity term.
	activity := (c.Sentiment - 50) * 2 // bps contribution
	inflTarget := 200 + phase*150 - (c.Unemployment-6)*20 + activity
	if w.Boom() {
		inflTarget += 120
	}
	if w.Recession() {
		inflTarget -= 100
	}
	c.InflationBps += (inflTarget - c.InflationBps) * inflationDrift
	c.InflationBps = ecs.Clamp(c.InflationBps, -200, 3000)

	// Fiscal shock: 5% chance of a ±2pp tax move.
	if w.Chance(taxShockChance) {
		delta := taxShockSize
		if w.Chance(0.5) {
			delta = -delta
		}
		c.TaxRate = ecs.Clamp(c.TaxRate+delta, 0.10, 0.45)
		w.PushNews("economy", c.Name+" adjusts corporate tax rate")
	}

	// GDP growth: weighted composite of cycle, sentiment, employment, noise.
	employment := 100 - c.Unemployment
	c.GDPGrowth = 2.2*phase + (c.Sentiment-50)*0.03 + (employment-94)*0.08 + w.Noise(0.4)
	c.GDPGrowth = ecs.Clamp(c.GDPGrowth, -8, 10)

	// Industry demand multiplier: cycle, sentiment, population-size bonus.
	popBonus := 0.0
	if c.Population > 500_000 {
		popBonus = 0.1
	}
	if c.Population > 1_500_000 {
		popBonus = 0.2
	}
	c.DemandMult = ecs.Clamp(1+0.35*phase+(c.Sentiment-50)/200.0+popBonus, 0.4, 1.8)
}
