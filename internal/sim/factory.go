// Entity factories invoked by world setup, the competitor AI, and UI
// collaborators.
package sim

import (
	"fmt"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

// Company creation defaults.
const (
	startingShares    = 1_000_000.0
	startingPrice     = 10.0
	startingRating    = 50.0
	startingRateBps   = 500.0
	creditLimitFactor = 0.5 // initial credit limit as a share of cash
)

// CreateCity registers a city entity at a tile with sane macro defaults.
// Cities are created once at world setup and never destroyed.
func (w *World) CreateCity(x, y int, name string, population int) ecs.Entity {
	e := w.Registry.Create()
	w.Positions.Set(e, Position{X: x, Y: y})
	w.Cities.Set(e, City{
		Name:            name,
		Population:      population,
		PurchasingPower: 50,
		Unemployment:    6,
		Sentiment:       55,
		RealWage:        catalog.DefaultMonthlyWage,
		InterestBps:     400,
		InflationBps:    200,
		TaxRate:         0.25,
		DemandMult:      1.0,
		GDPGrowth:       2.0,
	})
	w.CityList = append(w.CityList, e)
	return e
}

// CreateCompany registers a company with its finances, stock, and ledger.
func (w *World) CreateCompany(initialCash float64, name, symbol string, isAI bool) ecs.Entity {
	e := w.Registry.Create()
	w.Companies.Set(e, Company{
		Name:       name,
		Symbol:     symbol,
		IsAI:       isAI,
		Reputation: 50,
		MarketCap:  startingShares * startingPrice,
		Aggression: w.Range(0.2, 0.9),
	})
	w.Finances.Set(e, Finances{
		Cash:         initialCash,
		CreditLimit:  initialCash * creditLimitFactor,
		InterestBps:  startingRateBps,
		CreditRating: startingRating,
	})
	w.Stocks.Set(e, Stock{
		Shares:    startingShares,
		Price:     startingPrice,
		PrevPrice: startingPrice,
		PERatio:   15,
		Sector:    4,
	})
	w.Ledgers[e] = &Ledger{}
	w.CompanyList = append(w.CompanyList, e)
	return e
}

// CreateBuilding places a building of the given catalog type at a tile and
// attaches the role-specific companion components. The caller settles
// construction cost; the factory only mutates the store.
func (w *World) CreateBuilding(x, y, buildingTypeID int, city, owner ecs.Entity) ecs.Entity {
	bt := w.Catalog.BuildingOrDefault(buildingTypeID)

	e := w.Registry.Create()
	w.Positions.Set(e, Position{X: x, Y: y})
	w.Buildings.Set(e, Building{
		TypeID:      buildingTypeID,
		Level:       1,
		MaxFloors:   bt.MaxFloors,
		Size:        bt.Size,
		Operational: true,
		OwnerRef:    owner,
		CityRef:     city,
	})

	wage := catalog.DefaultMonthlyWage
	if c := w.Cities.Get(city); c != nil {
		wage = c.RealWage
	}
	w.Staffing.Set(e, Staffing{
		Headcount: 8 * bt.Size,
		Morale:    60,
		Training:  30,
		Wage:      wage,
	})

	switch bt.Kind {
	case catalog.KindFactory, catalog.KindFarm, catalog.KindMine:
		w.Factories.Set(e, Factory{Efficiency: 70, Quality: 50})
		w.Inventories.Set(e, Inventory{Capacity: 500 * float64(bt.Size)})
		w.Supply.Set(e, SupplyLinks{})
	case catalog.KindRetail, catalog.KindSupermarket:
		w.Retail.Set(e, RetailPlot{
			Traffic:    w.Range(30, 70),
			Visibility: w.Range(40, 80),
		})
		w.Inventories.Set(e, Inventory{Capacity: 300 * float64(bt.Size)})
		w.Supply.Set(e, SupplyLinks{})
	case catalog.KindWarehouse:
		w.Warehouses.Set(e, Warehouse{Radius: 12 * bt.Size})
		w.Inventories.Set(e, Inventory{Capacity: 1500 * float64(bt.Size)})
		w.Supply.Set(e, SupplyLinks{})
	case catalog.KindResearch:
		w.Research.Set(e, ResearchCenter{Budget: 2000})
	case catalog.KindMarketing:
		w.Marketing.Set(e, MarketingOffice{DailySpend: 1000})
	}

	// Mark the footprint occupied.
	for dx := 0; dx < bt.Size; dx++ {
		for dy := 0; dy < bt.Size; dy++ {
			w.Occupied[Position{X: x + dx, Y: y + dy}] = e
		}
	}
	return e
}

// TileFree reports whether a building of the given size fits at (x, y).
func (w *World) TileFree(x, y, size int) bool {
	for dx := 0; dx < size; dx++ {
		for dy := 0; dy < size; dy++ {
			if _, taken := w.Occupied[Position{X: x + dx, Y: y + dy}]; taken {
				return false
			}
		}
	}
	return true
}

// SetSlotPrice configures one retail shelf: which product it sells and at
// what price. UI/AI command.
func (w *World) SetSlotPrice(building ecs.Entity, slot, productID int, price float64) error {
	rp := w.Retail.Get(building)
	if rp == nil {
		return fmt.Errorf("building %d: %w", building, ErrNotRetail)
	}
	if slot < 0 || slot >= len(rp.Slots) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	if price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	rp.Slots[slot] = PriceSlot{ProductID: productID, Price: price}
	return nil
}

// SetOperational toggles a building's operational flag. A building frozen
// by a critical strike cannot be switched back on until the strike ends.
func (w *World) SetOperational(building ecs.Entity, on bool) error {
	b := w.Buildings.Get(building)
	if b == nil {
		return fmt.Errorf("building %d: %w", building, ErrNoSuchEntity)
	}
	if on {
		if s := w.Strikes.Get(building); s.Active(w.Tick) && s.Severity == StrikeCritical {
			return ErrStrikeActive
		}
	}
	b.Operational = on
	return nil
}

// LinkSupply configures an inbound supply slot on a destination building.
func (w *World) LinkSupply(dst ecs.Entity, slot int, src ecs.Entity, productID int) error {
	links := w.Supply.Get(dst)
	if links == nil {
		return fmt.Errorf("building %d accepts no supply links", dst)
	}
	if slot < 0 || slot >= len(links.Slots) {
		return fmt.Errorf("slot %d out of range", slot)
	}
	if src != 0 && w.Buildings.Get(src) == nil {
		return fmt.Errorf("source building %d: %w", src, ErrNoSuchEntity)
	}
	links.Slots[slot] = SupplySlot{SourceRef: src, ProductID: productID}
	return nil
}
