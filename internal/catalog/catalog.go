// Package catalog is the read-only game-data service: products, building
// types, and recipes keyed by numeric id. The simulation treats a missing
// lookup as "use the documented default", never as a fatal condition.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// Documented fallback constants used when a lookup misses.
const (
	DefaultTechLevel   = 40     // base tech level for unknown products
	DefaultMonthlyWage = 3000.0 // base wage when no city/product data applies
	DefaultBasePrice   = 10.0
	DefaultBaseDemand  = 50.0
)

// Product categories.
const (
	CategoryRaw       = "raw"
	CategoryComponent = "component"
	CategoryConsumer  = "consumer"
)

// Building kinds.
const (
	KindFactory     = "factory"
	KindFarm        = "farm"
	KindMine        = "mine"
	KindRetail      = "retail"
	KindSupermarket = "supermarket"
	KindWarehouse   = "warehouse"
	KindResearch    = "research"
	KindMarketing   = "marketing"
)

// Product is a catalog row describing one tradeable good.
type Product struct {
	ID          int     `toml:"id"`
	Name        string  `toml:"name"`
	Category    string  `toml:"category"`
	BasePrice   float64 `toml:"base_price"`
	BaseDemand  float64 `toml:"base_demand"` // daily units per reference store
	BaseQuality float64 `toml:"base_quality"`
	TechBase    int     `toml:"tech_base"`
	Perishable  bool    `toml:"perishable"`
	Sector      int     `toml:"sector"` // sector code shared with Stock
}

// BuildingType describes a constructible building.
type BuildingType struct {
	ID         int     `toml:"id"`
	Name       string  `toml:"name"`
	Kind       string  `toml:"kind"`
	BaseCost   float64 `toml:"base_cost"`
	BaseUpkeep float64 `toml:"base_upkeep"` // daily upkeep at level 1
	Size       int     `toml:"size"`        // footprint side length in tiles
	MaxFloors  int     `toml:"max_floors"`
}

// RecipeInput names one input slot of a recipe.
type RecipeInput struct {
	ProductID int     `toml:"product"`
	Amount    float64 `toml:"amount"` // units consumed per unit produced
}

// Recipe describes how a factory turns inputs into an output product.
type Recipe struct {
	ID        int           `toml:"id"`
	OutputID  int           `toml:"output"`
	BaseRate  float64       `toml:"base_rate"` // units per day at efficiency 100
	Inputs    []RecipeInput `toml:"inputs"`
	BuildKind string        `toml:"build_kind"` // building kind that runs it
}

// Catalog holds the loaded game data with by-id indexes.
type Catalog struct {
	products  map[int]Product
	buildings map[int]BuildingType
	recipes   map[int]Recipe
	byOutput  map[int][]Recipe

	productOrder []int // ascending ids, for deterministic iteration
}

type rawData struct {
	Products  []Product      `toml:"products"`
	Buildings []BuildingType `toml:"buildings"`
	Recipes   []Recipe       `toml:"recipes"`
}

//go:embed data.toml
var embedded []byte

// Load parses the embedded game data.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// Parse builds a Catalog from TOML bytes. Duplicate ids are a data-file
// defect and rejected.
func Parse(b []byte) (*Catalog, error) {
	var raw rawData
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{
		products:  make(map[int]Product, len(raw.Products)),
		buildings: make(map[int]BuildingType, len(raw.Buildings)),
		recipes:   make(map[int]Recipe, len(raw.Recipes)),
		byOutput:  make(map[int][]Recipe),
	}
	for _, p := range raw.Products {
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d", p.ID)
		}
		c.products[p.ID] = p
		c.productOrder = append(c.productOrder, p.ID)
	}
	for _, b := range raw.Buildings {
		if _, dup := c.buildings[b.ID]; dup {
			return nil, fmt.Errorf("duplicate building id %d", b.ID)
		}
		c.buildings[b.ID] = b
	}
	for _, r := range raw.Recipes {
		if _, dup := c.recipes[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %d", r.ID)
		}
		if len(r.Inputs) > 3 {
			return nil, fmt.Errorf("recipe %d has %d inputs, max 3", r.ID, len(r.Inputs))
		}
		c.recipes[r.ID] = r
		c.byOutput[r.OutputID] = append(c.byOutput[r.OutputID], r)
	}
	return c, nil
}

// Product returns the catalog row for a product id.
func (c *Catalog) Product(id int) (Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// ProductOrDefault returns the product row, or a synthetic row with the
// documented defaults when the id is unknown.
func (c *Catalog) ProductOrDefault(id int) Product {
	if p, ok := c.products[id]; ok {
		return p
	}
	return Product{
		ID:          id,
		Name:        fmt.Sprintf("product-%d", id),
		Category:    CategoryConsumer,
		BasePrice:   DefaultBasePrice,
		BaseDemand:  DefaultBaseDemand,
		BaseQuality: 50,
		TechBase:    DefaultTechLevel,
	}
}

// Building returns the building type for an id.
func (c *Catalog) Building(id int) (BuildingType, bool) {
	b, ok := c.buildings[id]
	return b, ok
}

// BuildingOrDefault returns the building type, or a small generic factory
// when the id is unknown.
func (c *Catalog) BuildingOrDefault(id int) BuildingType {
	if b, ok := c.buildings[id]; ok {
		return b
	}
	return BuildingType{
		ID:         id,
		Name:       fmt.Sprintf("building-%d", id),
		Kind:       KindFactory,
		BaseCost:   100_000,
		BaseUpkeep: 120,
		Size:       2,
		MaxFloors:  3,
	}
}

// Recipe returns the recipe for an id.
func (c *Catalog) Recipe(id int) (Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// RecipesForProduct returns every recipe producing the product.
func (c *Catalog) RecipesForProduct(productID int) []Recipe {
	return c.byOutput[productID]
}

// ProductIDs returns all known product ids in data-file order.
func (c *Catalog) ProductIDs() []int {
	out := make([]int, len(c.productOrder))
	copy(out, c.productOrder)
	return out
}

// BuildingIDByKind returns the first building type of the given kind, used
// by the competitor AI when it only knows what role it wants to build.
func (c *Catalog) BuildingIDByKind(kind string) (int, bool) {
	best := -1
	for id, b := range c.buildings {
		if b.Kind == kind && (best == -1 || id < best) {
			best = id
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}
