package sim

import (
	"math"
	"testing"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

// addStore creates a company with one priced, optionally stocked shelf.
func addStore(t *testing.T, w *World, stock float64) (company, store ecs.Entity) {
	t.Helper()
	city := w.CreateCity(50, 50, "Harborview", 500_000)
	company = w.CreateCompany(1_000_000, "Crumb & Co", "CRMB", false)
	retailID, _ := w.Catalog.BuildingIDByKind(catalog.KindRetail)
	store = w.CreateBuilding(52, 52, retailID, city, company)
	if err := w.SetSlotPrice(store, 0, 20, 5.0); err != nil {
		t.Fatalf("price slot: %v", err)
	}
	if stock > 0 {
		w.Inventories.Get(store).StoreInput(20, stock, 60)
	}
	return company, store
}

func TestStockoutCostsLoyalty(t *testing.T) {
	w := newTestWorld(t, 4)
	company, _ := addStore(t, w, 0) // priced shelf, empty inventory
	brand := w.Brand(company, 20)
	brand.Loyalty = 50

	w.retailDaily()
	if got := brand.Loyalty; got != 50-stockoutPenalty {
		t.Fatalf("loyalty after full stockout = %v, want %v", got, 50-stockoutPenalty)
	}
}

func TestNearStockoutCostsLessLoyalty(t *testing.T) {
	w := newTestWorld(t, 4)
	company, store := addStore(t, w, 1) // one unit against tens of demand
	brand := w.Brand(company, 20)
	brand.Loyalty = 50

	w.retailDaily()
	if got := brand.Loyalty; got != 50-overselPenalty {
		t.Fatalf("loyalty after near-stockout = %v, want %v", got, 50-overselPenalty)
	}
	if w.Inventories.Get(store).Stock(20) > 0.01 {
		t.Fatalf("the single unit should have sold")
	}
}

func TestSaleCreditsOwnerAndBuilding(t *testing.T) {
	w := newTestWorld(t, 4)
	company, store := addStore(t, w, 500)
	cashBefore := w.Finances.Get(company).Cash

	w.retailDaily()
	b := w.Buildings.Get(store)
	if b.RevenueAcc <= 0 {
		t.Fatalf("sale did not accrue building revenue")
	}
	if got := w.Finances.Get(company).Cash; got <= cashBefore {
		t.Fatalf("sale did not move owner cash: %v -> %v", cashBefore, got)
	}
}

func TestObsolescenceFloorsAtSeventyPercentLoss(t *testing.T) {
	// Identical worlds except for how far the frontier runs ahead.
	demandAt := func(gap int) float64 {
		w := newTestWorld(t, 4)
		_, store := addStore(t, w, 500)
		b := w.Buildings.Get(store)
		owner := b.OwnerRef
		base := w.TechLevel(owner, 20)
		rival := w.CreateCompany(1, "Rival Labs", "RVLB", true)
		w.SetTechLevel(rival, 20, base+gap)

		rp := w.Retail.Get(store)
		inv := w.Inventories.Get(store)
		city := w.Cities.Get(b.CityRef)
		co := w.Companies.Get(owner)
		return w.slotDemand(store, b, rp, co, city, inv, rp.Slots[0], nil, 1)
	}

	fresh := demandAt(0)
	lagging := demandAt(20)
	far := demandAt(40)
	if fresh <= 0 {
		t.Fatalf("baseline demand must be positive")
	}
	if ratio := lagging / fresh; math.Abs(ratio-obsolescenceFloor) > 0.01 {
		t.Fatalf("20-level gap demand ratio = %v, want %v", ratio, obsolescenceFloor)
	}
	if far != lagging {
		t.Fatalf("drag must floor at %v of demand: %v vs %v", obsolescenceFloor, far, lagging)
	}
}

func TestSaturationSplitsDemand(t *testing.T) {
	w := newTestWorld(t, 8)
	city := w.CreateCity(50, 50, "Harborview", 500_000)
	retailID, _ := w.Catalog.BuildingIDByKind(catalog.KindRetail)

	// Four equal competitors in one city.
	var stores []ecs.Entity
	for i := 0; i < 4; i++ {
		co := w.CreateCompany(1_000_000, "Chain", "CHN", true)
		s := w.CreateBuilding(60+i*3, 60, retailID, city, co)
		if err := w.SetSlotPrice(s, 0, 20, 5.0); err != nil {
			t.Fatalf("price: %v", err)
		}
		w.Inventories.Get(s).StoreInput(20, 400, 50)
		stores = append(stores, s)
	}
	w.retailDaily()

	sold := 0.0
	for _, s := range stores {
		sold += w.Buildings.Get(s).RevenueAcc / 5.0
	}
	p := w.Catalog.ProductOrDefault(20)
	// Four stores with 1/sqrt(4) saturation each sell at most ~2x one
	// store's unconstrained potential, not 4x.
	if sold > p.BaseDemand*2*3 { // generous envelope over multipliers
		t.Fatalf("saturation failed to split demand: %v units sold", sold)
	}
}

func TestShrinkageScalesWithUnemployment(t *testing.T) {
	w := newTestWorld(t, 4)
	inv := &Inventory{Capacity: 1000}
	inv.StoreInput(20, 1000, 50)
	calm := &City{Unemployment: 2}
	grim := &City{Unemployment: 25}

	w.applyShrinkage(inv, calm)
	afterCalm := inv.Stock(20)
	lossCalm := 1000 - afterCalm

	inv2 := &Inventory{Capacity: 1000}
	inv2.StoreInput(20, 1000, 50)
	w.applyShrinkage(inv2, grim)
	lossGrim := 1000 - inv2.Stock(20)

	if lossCalm <= 0 || lossGrim <= lossCalm {
		t.Fatalf("shrinkage calm=%v grim=%v, want 0 < calm < grim", lossCalm, lossGrim)
	}
}

func TestHolidaySeasonLiftsDemand(t *testing.T) {
	base := newTestWorld(t, 4)
	_, store := addStore(t, base, 500)
	b := base.Buildings.Get(store)
	rp := base.Retail.Get(store)
	inv := base.Inventories.Get(store)
	city := base.Cities.Get(b.CityRef)
	co := base.Companies.Get(b.OwnerRef)

	base.Tick = 0 // January
	jan := base.slotDemand(store, b, rp, co, city, inv, rp.Slots[0], nil, 1)
	base.Tick = 10 * TicksPerMonth // November
	nov := base.slotDemand(store, b, rp, co, city, inv, rp.Slots[0], nil, 1)
	if math.Abs(nov/jan-holidayBoost) > 0.01 {
		t.Fatalf("holiday lift = %v, want %v", nov/jan, holidayBoost)
	}
}
