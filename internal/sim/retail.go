// Retail & demand pass: per-store per-slot daily sales from price, quality,
// brand, city economics, competition, and macro state.
package sim

import (
	"math"

	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	stockoutPenalty   = 2.0 // loyalty lost on a full stockout with unmet demand
	overselPenalty    = 1.0 // loyalty lost when demand ≥ 1.5× available stock
	overselThreshold  = 1.5
	obsolescencePerLv = 0.035
	obsolescenceFloor = 0.3
	holidayBoost      = 1.25
	theftBase         = 0.001 // daily shrinkage fraction
	theftPerUnemp     = 0.0002
	rentPerTraffic    = 9.0 // monthly rent/utility per traffic point per size
)

// cityProduct keys the same-city saturation count.
type cityProduct struct {
	City    ecs.Entity
	Product int
}

// marketStats is the per-product competitive aggregate rebuilt every pass.
type marketStats struct {
	totalValue float64 // Σ quality/price across stores
	stores     int
}

// retailDaily rebuilds the competitive market rows, then sells.
func (w *World) retailDaily() {
	stats := make(map[int]*marketStats)
	saturation := make(map[cityProduct]int)
	w.Rows = w.Rows[:0]

	// First sweep: competitive snapshot. MarketRow is derived state; the
	// canonical price stays on the building's slots.
	w.Retail.Each(func(e ecs.Entity, rp *RetailPlot) {
		b := w.Buildings.Get(e)
		inv := w.Inventories.Get(e)
		if b == nil || inv == nil || !b.Operational {
			return
		}
		for _, slot := range rp.Slots {
			if slot.ProductID == 0 || slot.Price <= 0 {
				continue
			}
			quality := inv.StockQuality(slot.ProductID)
			if quality <= 0 {
				quality = w.Catalog.ProductOrDefault(slot.ProductID).BaseQuality
			}
			brand := w.Brand(b.OwnerRef, slot.ProductID)
			w.Rows = append(w.Rows, MarketRow{
				BuildingRef: e,
				ProductID:   slot.ProductID,
				Price:       slot.Price,
				Quality:     quality,
				BrandPower:  brand.Awareness,
				Share:       brand.MarketShare,
				AvgCost:     w.Catalog.ProductOrDefault(slot.ProductID).BasePrice * 0.7,
			})

			st := stats[slot.ProductID]
			if st == nil {
				st = &marketStats{}
				stats[slot.ProductID] = st
			}
			st.totalValue += quality / slot.Price
			st.stores++
			saturation[cityProduct{City: b.CityRef, Product: slot.ProductID}]++
		}
	})

	// Second sweep: demand, sales, stockouts, shrinkage.
	w.Retail.Each(func(e ecs.Entity, rp *RetailPlot) {
		b := w.Buildings.Get(e)
		inv := w.Inventories.Get(e)
		if b == nil || inv == nil || !b.Operational {
			return
		}
		if s := w.Strikes.Get(e); s.Active(w.Tick) && s.Severity == StrikeCritical {
			return
		}
		city := w.Cities.Get(b.CityRef)
		if city == nil {
			return
		}
		co := w.Companies.Get(b.OwnerRef)

		for _, slot := range rp.Slots {
			if slot.ProductID == 0 || slot.Price <= 0 {
				continue
			}
			demand := w.slotDemand(e, b, rp, co, city, inv, slot,
				stats[slot.ProductID],
				saturation[cityProduct{City: b.CityRef, Product: slot.ProductID}])
			if demand <= 0 {
				continue
			}

			available := inv.Stock(slot.ProductID)
			brand := w.Brand(b.OwnerRef, slot.ProductID)
			switch {
			case available <= 0:
				// Customers walked out empty-handed.
				brand.Loyalty = ecs.Clamp100(brand.Loyalty - stockoutPenalty)
				continue
			case demand >= available*overselThreshold:
				brand.Loyalty = ecs.Clamp100(brand.Loyalty - overselPenalty)
			}

			sold, _ := inv.Take(slot.ProductID, min(demand, available))
			if sold <= 0 {
				continue
			}
			w.creditBuilding(e, sold*slot.Price)
		}

		w.applyShrinkage(inv, city)
	})
}

// slotDemand is the full demand multiplier chain for one shelf.
func (w *World) slotDemand(e ecs.Entity, b *Building, rp *RetailPlot, co *Company, city *City, inv *Inventory, slot PriceSlot, st *marketStats, competitors int) float64 {
	product := w.Catalog.ProductOrDefault(slot.ProductID)
	demand := product.BaseDemand
	if demand <= 0 {
		return 0
	}

	quality := inv.StockQuality(slot.ProductID)
	if quality <= 0 {
		quality = product.BaseQuality
	}
	brand := w.Brand(b.OwnerRef, slot.ProductID)

	// Location: traffic and visibility.
	demand *= 0.5 + rp.Traffic/100.0
	demand *= 0.75 + rp.Visibility/200.0

	// City size, sqrt-dampened around a 500k reference city.
	demand *= ecs.Clamp(math.Sqrt(float64(city.Population)/500_000.0), 0.3, 2.5)

	// Local economy.
	demand *= 0.5 + city.PurchasingPower/100.0
	demand *= 0.7 + city.Sentiment*0.006

	// Price sensitivity, softened by quality and loyalty.
	fairPrice := product.BasePrice * (0.6 + quality/125.0) * (1 + brand.Loyalty/200.0)
	if fairPrice > 0 {
		ratio := slot.Price / fairPrice
		demand *= ecs.Clamp(math.Pow(ratio, -1.5), 0.2, 3.0)
	}

	// Brand effects.
	demand *= 0.5 + brand.Awareness/100.0
	demand *= 1 + brand.MarketShare/200.0 // network effect

	// Retail expertise: trained staff and automation policy.
	expertise := 0.9
	if staff := w.Staffing.Get(e); staff != nil {
		expertise += staff.Training / 500.0
	}
	if co != nil && co.Policies&PolicyAutomation != 0 {
		expertise += 0.05
	}
	demand *= expertise

	// Product quality.
	demand *= 0.7 + quality/166.0

	// Macro: industry demand, unemployment drag, holiday season.
	demand *= city.DemandMult
	demand *= ecs.Clamp(1-(city.Unemployment-6)*0.015, 0.6, 1.1)
	if w.HolidaySeason() {
		demand *= holidayBoost
	}

	// Obsolescence drag: up to 70% of demand lost at a 20-level gap.
	gap := w.FrontierLevel(slot.ProductID) - w.TechLevel(b.OwnerRef, slot.ProductID)
	if gap > 0 {
		demand *= math.Max(obsolescenceFloor, 1-obsolescencePerLv*float64(gap))
	}

	// Competitive value against the market average.
	if st != nil && st.stores > 1 && slot.Price > 0 {
		avgValue := st.totalValue / float64(st.stores)
		if avgValue > 0 {
			demand *= ecs.Clamp((quality/slot.Price)/avgValue, 0.25, 2.5)
		}
	}

	// Same-city saturation: inverse-square-root share of the pie.
	if competitors > 1 {
		demand /= math.Sqrt(float64(competitors))
	}

	// Strategic directive.
	if co != nil {
		switch co.Directive {
		case DirectiveAggression:
			demand *= 1.1
		case DirectiveQuality:
			if quality > 60 {
				demand *= 1.05
			}
		}
	}

	// Minor strikes degrade service throughput.
	if s := w.Strikes.Get(e); s.Active(w.Tick) && s.Severity == StrikeMinor {
		demand *= 0.7
	}

	return demand
}

// applyShrinkage removes the daily theft fraction, scaled by unemployment.
func (w *World) applyShrinkage(inv *Inventory, city *City) {
	frac := theftBase + city.Unemployment*theftPerUnemp
	shrink := func(s *ProductStack) {
		if s.ProductID != 0 && s.Amount > 0 {
			s.Amount *= 1 - frac
		}
	}
	shrink(&inv.Output)
	for i := range inv.Inputs {
		shrink(&inv.Inputs[i])
	}
}

// retailMonthly charges rent and utilities per store.
func (w *World) retailMonthly() {
	w.Retail.Each(func(e ecs.Entity, rp *RetailPlot) {
		b := w.Buildings.Get(e)
		if b == nil {
			return
		}
		rent := rp.Traffic * float64(b.Size) * rentPerTraffic
		w.chargeBuilding(e, rent)
	})
}
