// Competitor AI pass: each AI company acts once per simulated month —
// pricing, debt posture, expansion, and R&D targeting, in that order.
package sim

import (
	"fmt"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	aiActionInterval   = TicksPerMonth
	aiHighRateBps      = 600.0
	aiExpansionBase    = 300_000.0
	aiLowStockFraction = 0.10
	aiClearanceUtil    = 0.8
	aiScarcityUtil     = 0.2
	buildJitter        = 9 // tiles around the city center
)

// aiPass runs the decision loop for every due AI company.
func (w *World) aiPass() {
	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		if co == nil || !co.IsAI {
			continue
		}
		if w.Tick-co.LastActionTick < aiActionInterval && co.LastActionTick != 0 {
			continue
		}
		co.LastActionTick = w.Tick

		w.aiAdjustPrices(company, co)
		deleveraging := w.aiManageDebt(company, co)
		if !deleveraging {
			w.aiExpand(company, co)
		}
		w.aiRetargetResearch(company, co)
	}
}

// aiAdjustPrices reprices retail slots from inventory utilization: heavy
// stock clears at a discount, scarce stock earns a premium.
func (w *World) aiAdjustPrices(company ecs.Entity, co *Company) {
	for _, e := range w.BuildingsOf(company) {
		rp := w.Retail.Get(e)
		inv := w.Inventories.Get(e)
		if rp == nil || inv == nil || inv.Capacity <= 0 {
			continue
		}
		for i := range rp.Slots {
			slot := &rp.Slots[i]
			if slot.ProductID == 0 || slot.Price <= 0 {
				continue
			}
			util := inv.Stock(slot.ProductID) / inv.Capacity
			switch {
			case util > aiClearanceUtil:
				cut := 0.05 + co.Aggression*0.10 // aggressive firms cut deeper
				slot.Price *= 1 - cut
			case util < aiScarcityUtil:
				slot.Price *= 1.05
			}
			floor := w.Catalog.ProductOrDefault(slot.ProductID).BasePrice * 0.5
			if slot.Price < floor {
				slot.Price = floor
			}
		}
	}
}

// aiManageDebt prioritizes paydown over expansion while rates are elevated
// and leverage is high. Returns true when the month goes to deleveraging.
func (w *World) aiManageDebt(company ecs.Entity, co *Company) bool {
	fin := w.Finances.Get(company)
	if fin == nil {
		return false
	}
	if w.CentralRateBps() <= aiHighRateBps || fin.Debt <= fin.CreditLimit*0.5 {
		return false
	}
	led := w.Ledger(company)
	if len(led.Loans) == 0 || fin.Cash <= 0 {
		return true // still a deleveraging month, nothing to pay with
	}

	// Retire the most expensive loan first.
	worst := 0
	for i := range led.Loans {
		if led.Loans[i].RateBps > led.Loans[worst].RateBps {
			worst = i
		}
	}
	budget := fin.Cash * 0.5
	if err := w.PrepayLoan(company, led.Loans[worst].ID, budget); err == nil {
		w.PushNews("finance", co.Name+" pays down debt as rates climb")
	}
	return true
}

// aiExpand tries vertical integration first, then an R&D footprint, then a
// market-gap build, once cash clears the regime- and personality-scaled
// threshold.
func (w *World) aiExpand(company ecs.Entity, co *Company) {
	fin := w.Finances.Get(company)
	if fin == nil {
		return
	}
	threshold := aiExpansionBase / (0.5 + co.Aggression)
	if w.CentralRateBps() > aiHighRateBps || w.Recession() {
		threshold *= 1.6 // hoard cash in bad weather
	}
	if fin.Cash < threshold {
		return
	}

	if w.aiVerticalIntegration(company, co, fin) {
		return
	}
	if w.aiBuildResearch(company, co, fin) {
		return
	}
	w.aiBuildMarketGap(company, co, fin)
}

// aiVerticalIntegration builds a raw-material producer for any starved
// factory input buffer.
func (w *World) aiVerticalIntegration(company ecs.Entity, co *Company, fin *Finances) bool {
	for _, e := range w.BuildingsOf(company) {
		f := w.Factories.Get(e)
		inv := w.Inventories.Get(e)
		b := w.Buildings.Get(e)
		if f == nil || inv == nil || b == nil || f.RecipeID == 0 {
			continue
		}
		recipe, ok := w.Catalog.Recipe(f.RecipeID)
		if !ok {
			continue
		}
		for _, in := range recipe.Inputs {
			if inv.Stock(in.ProductID) >= inv.Capacity*aiLowStockFraction {
				continue
			}
			producers := w.Catalog.RecipesForProduct(in.ProductID)
			if len(producers) == 0 {
				continue
			}
			src := producers[0]
			typeID, ok := w.Catalog.BuildingIDByKind(src.BuildKind)
			if !ok {
				continue
			}
			built := w.aiConstruct(company, fin, typeID, b.CityRef)
			if built == 0 {
				return false
			}
			if nf := w.Factories.Get(built); nf != nil {
				nf.RecipeID = src.ID
			}
			// Feed the starving factory from the new producer.
			for slotIdx := 0; slotIdx < 3; slotIdx++ {
				links := w.Supply.Get(e)
				if links != nil && links.Slots[slotIdx].SourceRef == 0 {
					links.Slots[slotIdx] = SupplySlot{SourceRef: built, ProductID: in.ProductID}
					break
				}
			}
			w.PushNews("business", fmt.Sprintf("%s integrates upstream into %s",
				co.Name, w.Catalog.ProductOrDefault(in.ProductID).Name))
			return true
		}
	}
	return false
}

// aiBuildResearch adds an R&D center when the company has none.
func (w *World) aiBuildResearch(company ecs.Entity, co *Company, fin *Finances) bool {
	for _, e := range w.BuildingsOf(company) {
		if w.Research.Has(e) {
			return false
		}
	}
	if !w.Chance(0.5) {
		return false
	}
	typeID, ok := w.Catalog.BuildingIDByKind(catalog.KindResearch)
	if !ok {
		return false
	}
	city := w.aiPickCity()
	if city == 0 {
		return false
	}
	built := w.aiConstruct(company, fin, typeID, city)
	if built == 0 {
		return false
	}
	w.PushNews("business", co.Name+" opens a research center")
	return true
}

// aiBuildMarketGap constructs toward a demand-weighted-random product gap.
func (w *World) aiBuildMarketGap(company ecs.Entity, co *Company, fin *Finances) {
	productID := w.aiPickGapProduct()
	if productID == 0 {
		return
	}
	p := w.Catalog.ProductOrDefault(productID)

	var kind string
	switch {
	case p.Category == catalog.CategoryRaw:
		recipes := w.Catalog.RecipesForProduct(productID)
		kind = catalog.KindMine
		if len(recipes) > 0 {
			kind = recipes[0].BuildKind
		}
	case p.Category == catalog.CategoryConsumer && w.Chance(0.7):
		kind = catalog.KindRetail
	default:
		kind = catalog.KindFactory
	}

	typeID, ok := w.Catalog.BuildingIDByKind(kind)
	if !ok {
		return
	}
	city := w.aiPickCity()
	if city == 0 {
		return
	}
	built := w.aiConstruct(company, fin, typeID, city)
	if built == 0 {
		return
	}

	switch kind {
	case catalog.KindRetail, catalog.KindSupermarket:
		rp := w.Retail.Get(built)
		if rp != nil {
			rp.Slots[0] = PriceSlot{ProductID: productID, Price: p.BasePrice * 1.15}
		}
	default:
		if f := w.Factories.Get(built); f != nil {
			if recipes := w.Catalog.RecipesForProduct(productID); len(recipes) > 0 {
				f.RecipeID = recipes[0].ID
			}
		}
	}
	w.PushNews("business", fmt.Sprintf("%s moves into the %s market", co.Name, p.Name))
}

// aiConstruct pays for and places a building near the city center on a
// randomly jittered unoccupied tile. Returns 0 when placement or funding
// fails; a rejected build leaves state unchanged.
func (w *World) aiConstruct(company ecs.Entity, fin *Finances, typeID int, city ecs.Entity) ecs.Entity {
	bt := w.Catalog.BuildingOrDefault(typeID)
	if fin.Cash < bt.BaseCost {
		return 0
	}
	center := w.Positions.Get(city)
	if center == nil {
		return 0
	}

	for attempt := 0; attempt < 12; attempt++ {
		x := center.X + w.Intn(2*buildJitter+1) - buildJitter
		y := center.Y + w.Intn(2*buildJitter+1) - buildJitter
		if !w.TileFree(x, y, bt.Size) {
			continue
		}
		w.chargeCompany(company, bt.BaseCost)
		return w.CreateBuilding(x, y, typeID, city, company)
	}
	return 0
}

// aiPickCity draws a city weighted by population and demand multiplier.
func (w *World) aiPickCity() ecs.Entity {
	if len(w.CityList) == 0 {
		return 0
	}
	weights := make([]float64, len(w.CityList))
	for i, e := range w.CityList {
		if c := w.Cities.Get(e); c != nil {
			weights[i] = float64(c.Population) * c.DemandMult
		}
	}
	return w.CityList[w.WeightedPick(weights)]
}

// aiPickGapProduct draws a consumer product weighted by base demand and
// thinness of current supply.
func (w *World) aiPickGapProduct() int {
	ids := w.Catalog.ProductIDs()
	if len(ids) == 0 {
		return 0
	}
	sellers := make(map[int]int)
	for _, row := range w.Rows {
		sellers[row.ProductID]++
	}
	weights := make([]float64, len(ids))
	for i, id := range ids {
		p, _ := w.Catalog.Product(id)
		if p.Category != catalog.CategoryConsumer {
			continue
		}
		weights[i] = p.BaseDemand / float64(1+sellers[id])
	}
	return ids[w.WeightedPick(weights)]
}

// aiRetargetResearch points the company's R&D at the product with the
// highest observed market quality ceiling, with a random-diversification
// fallback and an occasional pivot to process efficiency.
func (w *World) aiRetargetResearch(company ecs.Entity, co *Company) {
	var centers []ecs.Entity
	for _, e := range w.BuildingsOf(company) {
		if w.Research.Has(e) {
			centers = append(centers, e)
		}
	}
	if len(centers) == 0 {
		return
	}

	// Occasional pivot to the generic process-efficiency track.
	if w.Chance(0.1) {
		co.RDTargetID = 0
	} else {
		best, bestQ := 0, -1.0
		for _, row := range w.Rows {
			if row.Quality > bestQ {
				bestQ = row.Quality
				best = row.ProductID
			}
		}
		if best == 0 {
			// Nothing observed yet — diversify at random.
			ids := w.Catalog.ProductIDs()
			best = ids[w.Intn(len(ids))]
		}
		co.RDTargetID = best
	}
	for _, e := range centers {
		if rc := w.Research.Get(e); rc != nil {
			rc.TargetID = co.RDTargetID
		}
	}
}
