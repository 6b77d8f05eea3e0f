package sim

import (
	"testing"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

// newTestWorld builds a world on the embedded catalog with a fixed seed.
func newTestWorld(t *testing.T, seed int64) *World {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return NewWorld(cat, seed)
}

// addBakery wires a minimal bread chain: farm → mill → bakery → store, all
// owned by one company in one city. Returns the company and the store.
func addBakery(t *testing.T, w *World) (company, store ecs.Entity) {
	t.Helper()
	city := w.CreateCity(100, 100, "Milltown", 600_000)
	company = w.CreateCompany(2_000_000, "Hearth & Grain", "HRTH", false)

	farmID, _ := w.Catalog.BuildingIDByKind(catalog.KindFarm)
	factoryID, _ := w.Catalog.BuildingIDByKind(catalog.KindFactory)
	retailID, _ := w.Catalog.BuildingIDByKind(catalog.KindRetail)

	farm := w.CreateBuilding(90, 90, farmID, city, company)
	mill := w.CreateBuilding(95, 95, factoryID, city, company)
	bakery := w.CreateBuilding(98, 98, factoryID, city, company)
	store = w.CreateBuilding(102, 102, retailID, city, company)

	w.Factories.Get(farm).RecipeID = 1    // wheat
	w.Factories.Get(mill).RecipeID = 10   // flour
	w.Factories.Get(bakery).RecipeID = 20 // bread

	if err := w.LinkSupply(mill, 0, farm, 1); err != nil {
		t.Fatalf("link farm→mill: %v", err)
	}
	if err := w.LinkSupply(bakery, 0, mill, 10); err != nil {
		t.Fatalf("link mill→bakery: %v", err)
	}
	if err := w.LinkSupply(store, 0, bakery, 20); err != nil {
		t.Fatalf("link bakery→store: %v", err)
	}
	if err := w.SetSlotPrice(store, 0, 20, 5.0); err != nil {
		t.Fatalf("price slot: %v", err)
	}
	return company, store
}
