package main

import (
	"log/slog"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/config"
	"github.com/vantagegames/magnate/internal/ecs"
	"github.com/vantagegames/magnate/internal/sim"
	"github.com/vantagegames/magnate/internal/worldgen"
)

// Competitor identities for fresh worlds. The daemon takes as many as the
// config asks for.
var rivalRoster = []struct {
	name   string
	symbol string
}{
	{"Meridian Group", "MRDN"},
	{"Castellan Foods", "CSTL"},
	{"Vector Consumer", "VCTR"},
	{"Aurora Mercantile", "AURM"},
	{"Pinnacle Industries", "PNCL"},
	{"Harbinger Retail", "HRBR"},
}

// bootstrap generates a fresh world: terrain, cities, the player company,
// and a roster of AI competitors, each seeded with a working bread chain.
func bootstrap(cat *catalog.Catalog, cfg *config.Config, seed int64) *sim.World {
	m := worldgen.Generate(worldgen.GenConfig{
		Width:  cfg.Map.Width,
		Height: cfg.Map.Height,
		Seed:   seed,
		Cities: cfg.Map.Cities,
	})

	w := sim.NewWorld(cat, seed)
	for _, site := range m.Sites {
		w.CreateCity(site.X, site.Y, site.Name, site.Population)
	}

	player := w.CreateCompany(cfg.Sim.StartingCash, "Pioneer Holdings", "PION", false)
	companies := []ecs.Entity{player}

	n := cfg.Sim.AICompanies
	if n > len(rivalRoster) {
		n = len(rivalRoster)
	}
	for i := 0; i < n; i++ {
		companies = append(companies,
			w.CreateCompany(cfg.Sim.StartingCash, rivalRoster[i].name, rivalRoster[i].symbol, true))
	}

	for i, company := range companies {
		city := w.CityList[i%len(w.CityList)]
		seedStarterChain(w, company, city)
	}

	slog.Info("world generated",
		"cities", len(w.CityList),
		"companies", len(w.CompanyList),
		"buildings", w.Buildings.Len(),
	)
	return w
}

// seedStarterChain gives a company a working farm-to-shelf bread chain in
// its home city so the economy has activity from day one.
func seedStarterChain(w *sim.World, company, city ecs.Entity) {
	farmID, _ := w.Catalog.BuildingIDByKind(catalog.KindFarm)
	factoryID, _ := w.Catalog.BuildingIDByKind(catalog.KindFactory)
	retailID, _ := w.Catalog.BuildingIDByKind(catalog.KindRetail)

	farm := placeBuilding(w, city, farmID, company)
	mill := placeBuilding(w, city, factoryID, company)
	bakery := placeBuilding(w, city, factoryID, company)
	store := placeBuilding(w, city, retailID, company)

	w.Factories.Get(farm).RecipeID = 1    // wheat
	w.Factories.Get(mill).RecipeID = 10   // flour
	w.Factories.Get(bakery).RecipeID = 20 // bread

	_ = w.LinkSupply(mill, 0, farm, 1)
	_ = w.LinkSupply(bakery, 0, mill, 10)
	_ = w.LinkSupply(store, 0, bakery, 20)

	price := w.Catalog.ProductOrDefault(20).BasePrice * 1.25
	_ = w.SetSlotPrice(store, 0, 20, price)
}

// placeBuilding finds the nearest free plot to the city center and builds
// there. Starter buildings are granted, not charged.
func placeBuilding(w *sim.World, city ecs.Entity, typeID int, company ecs.Entity) ecs.Entity {
	pos := w.Positions.Get(city)
	size := w.Catalog.BuildingOrDefault(typeID).Size

	x, y := findPlot(w, pos.X, pos.Y, size)
	return w.CreateBuilding(x, y, typeID, city, company)
}

// findPlot searches outward in rings from (x0, y0) for a free footprint.
func findPlot(w *sim.World, x0, y0, size int) (int, int) {
	if w.TileFree(x0, y0, size) {
		return x0, y0
	}
	for radius := 1; radius < 64; radius++ {
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				if dx > -radius && dx < radius && dy > -radius && dy < radius {
					continue // ring interior already visited
				}
				if w.TileFree(x0+dx, y0+dy, size) {
					return x0 + dx, y0 + dy
				}
			}
		}
	}
	return x0, y0
}
