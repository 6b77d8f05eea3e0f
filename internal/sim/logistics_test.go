package sim

import (
	"testing"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

// addFreightPair wires a mine feeding a factory, optionally across cities.
func addFreightPair(t *testing.T, w *World, crossCity bool) (src, dst ecs.Entity) {
	t.Helper()
	cityA := w.CreateCity(0, 0, "Oretown", 300_000)
	cityB := cityA
	if crossCity {
		cityB = w.CreateCity(60, 0, "Forgeburg", 300_000)
	}
	company := w.CreateCompany(5_000_000, "Haul & Smelt", "HAUL", false)

	mineID, _ := w.Catalog.BuildingIDByKind(catalog.KindMine)
	factoryID, _ := w.Catalog.BuildingIDByKind(catalog.KindFactory)
	src = w.CreateBuilding(2, 2, mineID, cityA, company)
	dst = w.CreateBuilding(58, 2, factoryID, cityB, company)

	w.Factories.Get(src).RecipeID = 2  // iron ore
	w.Factories.Get(dst).RecipeID = 11 // steel
	if err := w.LinkSupply(dst, 0, src, 2); err != nil {
		t.Fatalf("link: %v", err)
	}
	return src, dst
}

func TestSupplyLinkMovesGoodsAndCharges(t *testing.T) {
	w := newTestWorld(t, 14)
	src, dst := addFreightPair(t, w, false)
	w.Inventories.Get(src).StoreOutput(2, 400, 55)
	dstB := w.Buildings.Get(dst)

	w.logisticsDaily()
	moved := w.Inventories.Get(dst).Stock(2)
	if moved <= 0 {
		t.Fatalf("nothing moved along the link")
	}
	// Same-city transfers do not spoil.
	srcB := w.Buildings.Get(src)
	want := transferBasePerDay * float64(srcB.Size) * float64(srcB.Level)
	if moved != want {
		t.Fatalf("moved %v, want the %v daily cap", moved, want)
	}
	if dstB.ExpenseAcc < transportMinCharge {
		t.Fatalf("freight was free: %v", dstB.ExpenseAcc)
	}
}

func TestCrossCityShipmentsSpoil(t *testing.T) {
	w := newTestWorld(t, 14)
	src, dst := addFreightPair(t, w, true)
	w.Inventories.Get(src).StoreOutput(2, 400, 55)

	w.logisticsDaily()
	srcB := w.Buildings.Get(src)
	cap := transferBasePerDay * float64(srcB.Size) * float64(srcB.Level)
	moved := w.Inventories.Get(dst).Stock(2)
	if moved >= cap {
		t.Fatalf("cross-city shipment arrived without spoilage: %v of %v", moved, cap)
	}
	if moved < cap*0.9 {
		t.Fatalf("spoilage too aggressive: %v of %v", moved, cap)
	}
}

func TestTransportCostScalesWithDistanceAndBorder(t *testing.T) {
	w := newTestWorld(t, 14)
	src, dst := addFreightPair(t, w, true)

	near := w.transportCost(src, src, false, false)
	far := w.transportCost(src, dst, false, false)
	border := w.transportCost(src, dst, true, false)
	managed := w.transportCost(src, dst, true, true)

	if far <= near {
		t.Fatalf("distance is free: near=%v far=%v", near, far)
	}
	if border <= far {
		t.Fatalf("city border is free: %v vs %v", border, far)
	}
	if managed >= border {
		t.Fatalf("logistics management gives no discount: %v vs %v", managed, border)
	}
}

func TestProductionConsumesInputsAndCapsQuality(t *testing.T) {
	w := newTestWorld(t, 14)
	_, dst := addFreightPair(t, w, false)
	inv := w.Inventories.Get(dst)
	inv.StoreInput(2, 300, 90) // pristine ore

	w.productionDaily()
	out := inv.Output
	if out.ProductID != 11 || out.Amount <= 0 {
		t.Fatalf("no steel produced: %+v", out)
	}
	if inv.Stock(2) >= 300 {
		t.Fatalf("inputs not consumed")
	}
	b := w.Buildings.Get(dst)
	ceiling := w.techQualityCeiling(b.OwnerRef, 11)
	if out.Quality > ceiling {
		t.Fatalf("quality %v above the tech ceiling %v", out.Quality, ceiling)
	}
}

func TestIdleFactoryProducesNothing(t *testing.T) {
	w := newTestWorld(t, 14)
	_, dst := addFreightPair(t, w, false)
	inv := w.Inventories.Get(dst)
	inv.StoreInput(2, 300, 50)
	w.Buildings.Get(dst).Operational = false

	w.productionDaily()
	if inv.Output.Amount != 0 {
		t.Fatalf("mothballed factory produced %v units", inv.Output.Amount)
	}
}
