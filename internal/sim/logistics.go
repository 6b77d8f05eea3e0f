// Production & logistics pass: factories turn inputs into output, then
// goods move along configured supply links with distance/fuel/strike
// adjusted transport cost and quality blending.
package sim

import (
	"math"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	transportBaseRate  = 0.02 // dollars per unit-km
	transportMinCharge = 1.0  // floor per shipment
	crossCityMult      = 3.0
	longHaulThreshold  = 40.0 // km before the linear long-haul penalty
	longHaulPerKm      = 0.01
	logisticsDiscount  = 0.85 // with logistics-optimizing management
	transferBasePerDay = 30.0 // units per day per size unit

	spoilBase       = 0.01 // cross-city spoilage
	spoilPerishable = 0.01 // extra for perishables
	spoilUnmanaged  = 0.01 // extra without logistics management
)

// productionDaily advances every operational factory one day.
func (w *World) productionDaily() {
	w.Factories.Each(func(e ecs.Entity, f *Factory) {
		b := w.Buildings.Get(e)
		inv := w.Inventories.Get(e)
		if b == nil || inv == nil || !b.Operational || f.RecipeID == 0 {
			return
		}
		strike := w.Strikes.Get(e)
		if strike.Active(w.Tick) && strike.Severity == StrikeCritical {
			return
		}

		recipe, ok := w.Catalog.Recipe(f.RecipeID)
		if !ok {
			return
		}

		// Daily rate scales with level and efficiency; laggard tech pays
		// the obsolescence efficiency penalty.
		owner := b.OwnerRef
		techPenalty := w.techEfficiencyFactor(owner, recipe.OutputID)
		rate := recipe.BaseRate * float64(b.Level) * (f.Efficiency / 100.0) * techPenalty
		if strike.Active(w.Tick) && strike.Severity == StrikeMinor {
			rate *= 0.5
		}
		if rate <= 0 {
			return
		}

		// Producible units limited by each input buffer.
		units := rate
		for _, in := range recipe.Inputs {
			if in.Amount <= 0 {
				continue
			}
			units = min(units, inv.Stock(in.ProductID)/in.Amount)
		}
		if units <= 0 {
			return
		}

		// Consume inputs; output quality blends factory quality with input
		// quality and is capped by the company's tech ceiling.
		inQuality, inWeight := 0.0, 0.0
		for _, in := range recipe.Inputs {
			taken, q := inv.Take(in.ProductID, units*in.Amount)
			inQuality += q * taken
			inWeight += taken
		}
		quality := f.Quality
		if inWeight > 0 {
			quality = 0.6*f.Quality + 0.4*(inQuality/inWeight)
		}
		quality = min(quality, w.techQualityCeiling(owner, recipe.OutputID))

		inv.StoreOutput(recipe.OutputID, units, ecs.Clamp100(quality))
	})
}

// logisticsDaily moves goods along every configured supply link.
func (w *World) logisticsDaily() {
	w.Supply.Each(func(dst ecs.Entity, links *SupplyLinks) {
		dstB := w.Buildings.Get(dst)
		dstInv := w.Inventories.Get(dst)
		if dstB == nil || dstInv == nil || !dstB.Operational {
			return
		}
		dstStrike := w.Strikes.Get(dst)
		if dstStrike.Active(w.Tick) && dstStrike.Severity == StrikeCritical {
			return
		}

		for _, slot := range links.Slots {
			if slot.SourceRef == 0 || slot.ProductID == 0 {
				continue
			}
			w.runSupplyLink(dst, dstB, dstInv, dstStrike, slot)
		}
	})
}

func (w *World) runSupplyLink(dst ecs.Entity, dstB *Building, dstInv *Inventory, dstStrike *Strike, slot SupplySlot) {
	src := slot.SourceRef
	srcB := w.Buildings.Get(src)
	srcInv := w.Inventories.Get(src)
	if srcB == nil || srcInv == nil || !srcB.Operational {
		return
	}
	srcStrike := w.Strikes.Get(src)
	if srcStrike.Active(w.Tick) && srcStrike.Severity == StrikeCritical {
		return
	}

	minorStrike := (srcStrike.Active(w.Tick) && srcStrike.Severity == StrikeMinor) ||
		(dstStrike.Active(w.Tick) && dstStrike.Severity == StrikeMinor)

	// Transfer = min(source stock, destination room, size-scaled base rate).
	base := transferBasePerDay * float64(srcB.Size) * float64(srcB.Level)
	if minorStrike {
		base *= 0.5
	}
	amount := min(base, srcInv.Stock(slot.ProductID))
	amount = min(amount, dstInv.InputRoom(slot.ProductID))
	if amount <= 0 {
		return
	}

	taken, quality := srcInv.Take(slot.ProductID, amount)
	if taken <= 0 {
		return
	}

	// Cross-city shipments spoil 1–3% in transit.
	crossCity := srcB.CityRef != dstB.CityRef
	owner := w.Companies.Get(dstB.OwnerRef)
	managed := owner != nil && owner.Policies&PolicyLogistics != 0
	if crossCity {
		spoil := spoilBase
		if p, ok := w.Catalog.Product(slot.ProductID); ok && p.Perishable {
			spoil += spoilPerishable
		}
		if !managed {
			spoil += spoilUnmanaged
		}
		taken *= 1 - spoil
	}

	stored := dstInv.StoreInput(slot.ProductID, taken, quality)
	if stored <= 0 {
		return
	}

	// Transport cost, charged to the destination's owning company. Unpaid
	// balances are priced by the finance pass, not here.
	cost := w.transportCost(src, dst, crossCity, managed) * stored
	if minorStrike {
		cost *= 2
	}
	cost = math.Max(cost, transportMinCharge)
	w.chargeBuilding(dst, cost)
}

// transportCost returns the per-unit freight rate between two buildings.
func (w *World) transportCost(src, dst ecs.Entity, crossCity, managed bool) float64 {
	a, b := w.Positions.Get(src), w.Positions.Get(dst)
	if a == nil || b == nil {
		return transportBaseRate
	}
	distKm := math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
	fuelFactor := w.FuelPrice / (oilBase * 100)

	rate := distKm * transportBaseRate * fuelFactor
	if crossCity {
		rate *= crossCityMult
	}
	if distKm > longHaulThreshold {
		rate += (distKm - longHaulThreshold) * longHaulPerKm
	}
	if managed {
		rate *= logisticsDiscount
	}
	return math.Max(rate, 0.002)
}

// techEfficiencyFactor is the production multiplier for a company lagging
// the global tech frontier: 2% per level behind, plus 1.5% per level beyond
// a 5-level gap versus the competitor average.
func (w *World) techEfficiencyFactor(company ecs.Entity, product int) float64 {
	gap := w.FrontierLevel(product) - w.TechLevel(company, product)
	if gap <= 0 {
		return 1
	}
	factor := 1 - 0.02*float64(gap)

	avgGap := w.avgTechLevel(product) - float64(w.TechLevel(company, product))
	if avgGap > 5 {
		factor -= 0.015 * (avgGap - 5)
	}
	return ecs.Clamp(factor, 0.2, 1)
}

// techQualityCeiling caps output quality by the company's own tech level.
func (w *World) techQualityCeiling(company ecs.Entity, product int) float64 {
	lv := float64(w.TechLevel(company, product))
	return ecs.Clamp(30+lv*0.7, 30, 100)
}

// avgTechLevel is the mean tech level across registered companies for one
// product, catalog base when nobody researched it yet.
func (w *World) avgTechLevel(product int) float64 {
	if len(w.CompanyList) == 0 {
		return float64(catalog.DefaultTechLevel)
	}
	total := 0.0
	for _, c := range w.CompanyList {
		total += float64(w.TechLevel(c, product))
	}
	return total / float64(len(w.CompanyList))
}
