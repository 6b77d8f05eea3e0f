// Package sim implements the tycoon economy core: a fixed-step world model
// advanced one discrete tick at a time by an ordered sequence of subsystem
// passes over a shared entity/component store.
package sim

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/vantagegames/magnate/internal/catalog"
	"github.com/vantagegames/magnate/internal/ecs"
)

// Tick cadence. 30 ticks advance one simulated day, 900 one month.
const (
	TicksPerDay   = 30
	TicksPerMonth = 900
)

// newsCap bounds the news ring buffer.
const newsCap = 50

// TechKey identifies a (company, product) technology level.
type TechKey struct {
	Company ecs.Entity
	Product int
}

// TechAlert flags a company whose product tech trails the global leader by
// 15+ levels. Consumed by marketing (PR shielding) and valuation (panic
// discount).
type TechAlert struct {
	Company    ecs.Entity
	Product    int
	Gap        int
	RaisedTick uint64
}

// NewsItem is one entry of the bounded most-recent-first news feed.
type NewsItem struct {
	Tick     uint64 `json:"tick"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Notification is an outbound event for UI collaborators, drained after
// each tick. The core never reads its own queue back.
type Notification struct {
	Tick     uint64     `json:"tick"`
	Kind     string     `json:"kind"`
	Company  ecs.Entity `json:"company,omitempty"`
	Building ecs.Entity `json:"building,omitempty"`
	Text     string     `json:"text"`
}

// World is the complete simulation state: the component store, the shared
// context every subsystem reads, and the injected RNG. There is exactly one
// writer — the orchestrator thread — so no locking is needed.
type World struct {
	Tick    uint64
	Catalog *catalog.Catalog

	Registry *ecs.Registry

	// Component tables, one per component kind.
	Cities      *ecs.Table[City]
	Positions   *ecs.Table[Position]
	Companies   *ecs.Table[Company]
	Finances    *ecs.Table[Finances]
	Stocks      *ecs.Table[Stock]
	Buildings   *ecs.Table[Building]
	Factories   *ecs.Table[Factory]
	Retail      *ecs.Table[RetailPlot]
	Inventories *ecs.Table[Inventory]
	Warehouses  *ecs.Table[Warehouse]
	Research    *ecs.Table[ResearchCenter]
	Marketing   *ecs.Table[MarketingOffice]
	Supply      *ecs.Table[SupplyLinks]
	Staffing    *ecs.Table[Staffing]
	Strikes     *ecs.Table[Strike]

	// Registration-ordered entity lists (iteration order is load-bearing
	// for deterministic runs).
	CompanyList []ecs.Entity
	CityList    []ecs.Entity

	// Technology state shared across subsystems. The tech pass must run
	// before valuation reads the alert map in the same tick.
	TechLevels map[TechKey]int
	Frontier   map[int]int // product → global leader level
	Alerts     map[TechKey]*TechAlert

	// Per-company financial ledgers (variable-length collections, held
	// outside the component store).
	Ledgers map[ecs.Entity]*Ledger

	// Per (company, product) brands, created lazily.
	Brands map[BrandKey]*ProductBrand

	// Per (building, product) competitive rows, rebuilt every retail pass.
	Rows []MarketRow

	// Global commodity fuel price, dollars per unit.
	FuelPrice float64

	// Tile occupancy for build-site selection.
	Occupied map[Position]ecs.Entity

	News          []NewsItem
	notifications []Notification

	rng *rand.Rand
}

// NewWorld creates an empty world with a seeded RNG. All stochastic paths
// draw from this generator, so equal seeds replay identical runs.
func NewWorld(cat *catalog.Catalog, seed int64) *World {
	w := &World{
		Catalog:     cat,
		Registry:    ecs.NewRegistry(),
		Cities:      ecs.NewTable[City](),
		Positions:   ecs.NewTable[Position](),
		Companies:   ecs.NewTable[Company](),
		Finances:    ecs.NewTable[Finances](),
		Stocks:      ecs.NewTable[Stock](),
		Buildings:   ecs.NewTable[Building](),
		Factories:   ecs.NewTable[Factory](),
		Retail:      ecs.NewTable[RetailPlot](),
		Inventories: ecs.NewTable[Inventory](),
		Warehouses:  ecs.NewTable[Warehouse](),
		Research:    ecs.NewTable[ResearchCenter](),
		Marketing:   ecs.NewTable[MarketingOffice](),
		Supply:      ecs.NewTable[SupplyLinks](),
		Staffing:    ecs.NewTable[Staffing](),
		Strikes:     ecs.NewTable[Strike](),
		TechLevels:  make(map[TechKey]int),
		Frontier:    make(map[int]int),
		Alerts:      make(map[TechKey]*TechAlert),
		Ledgers:     make(map[ecs.Entity]*Ledger),
		Brands:      make(map[BrandKey]*ProductBrand),
		Occupied:    make(map[Position]ecs.Entity),
		FuelPrice:   oilBase * 100,
		rng:         rand.New(rand.NewSource(seed)),
	}
	return w
}

// Reseed replaces the RNG, used by the snapshot loader.
func (w *World) Reseed(seed int64) { w.rng = rand.New(rand.NewSource(seed)) }

// Day returns the current simulated day number.
func (w *World) Day() uint64 { return w.Tick / TicksPerDay }

// Month returns the current simulated month number.
func (w *World) Month() uint64 { return w.Tick / TicksPerMonth }

// simEpoch anchors the calendar. Months are a uniform 30 days.
var simEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Date returns the calendar date for the current tick.
func (w *World) Date() time.Time {
	months := int(w.Month())
	days := int(w.Day() % 30)
	return simEpoch.AddDate(0, months, days)
}

// HolidaySeason reports whether the calendar sits in the retail high season
// (November/December).
func (w *World) HolidaySeason() bool {
	m := w.Date().Month()
	return m == time.November || m == time.December
}

// CyclePhase is the shared deterministic business-cycle signal in [-1, 1].
func (w *World) CyclePhase() float64 {
	return math.Sin(float64(w.Tick) / 8000.0)
}

// Recession reports whether the cycle sits in the recession band.
func (w *World) Recession() bool { return w.CyclePhase() < -0.7 }

// Boom reports whether the cycle sits in the boom band.
func (w *World) Boom() bool { return w.CyclePhase() > 0.7 }

// PushNews prepends an entry to the bounded news feed (most recent first).
func (w *World) PushNews(category, text string) {
	item := NewsItem{Tick: w.Tick, Category: category, Text: text}
	w.News = append([]NewsItem{item}, w.News...)
	if len(w.News) > newsCap {
		w.News = w.News[:newsCap]
	}
}

// Notify queues an outbound notification for UI collaborators.
func (w *World) Notify(n Notification) {
	n.Tick = w.Tick
	w.notifications = append(w.notifications, n)
}

// DrainNotifications returns and clears the outbound queue.
func (w *World) DrainNotifications() []Notification {
	out := w.notifications
	w.notifications = nil
	return out
}

// Ledger returns the company's financial ledger, creating it on first use.
func (w *World) Ledger(company ecs.Entity) *Ledger {
	l, ok := w.Ledgers[company]
	if !ok {
		l = &Ledger{}
		w.Ledgers[company] = l
	}
	return l
}

// Brand returns the (company, product) brand, creating it on first use.
// Lookup-before-create enforces the at-most-one-per-pair invariant.
func (w *World) Brand(company ecs.Entity, product int) *ProductBrand {
	key := BrandKey{Company: company, Product: product}
	b, ok := w.Brands[key]
	if !ok {
		b = &ProductBrand{Awareness: 1, Loyalty: 10}
		w.Brands[key] = b
	}
	return b
}

// BrandKeys returns brand keys in deterministic (company, product) order.
func (w *World) BrandKeys() []BrandKey {
	keys := make([]BrandKey, 0, len(w.Brands))
	for k := range w.Brands {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Company != keys[j].Company {
			return keys[i].Company < keys[j].Company
		}
		return keys[i].Product < keys[j].Product
	})
	return keys
}

// TechLevel returns the company's tech level for a product, falling back to
// the catalog's product tech base, then the documented default.
func (w *World) TechLevel(company ecs.Entity, product int) int {
	if lv, ok := w.TechLevels[TechKey{Company: company, Product: product}]; ok {
		return lv
	}
	if p, ok := w.Catalog.Product(product); ok {
		return p.TechBase
	}
	return catalog.DefaultTechLevel
}

// SetTechLevel writes a company's product tech level and lifts the global
// frontier if it is now the leader. Levels never regress.
func (w *World) SetTechLevel(company ecs.Entity, product, level int) {
	key := TechKey{Company: company, Product: product}
	if cur, ok := w.TechLevels[key]; ok && level < cur {
		return
	}
	w.TechLevels[key] = level
	if level > w.Frontier[product] {
		w.Frontier[product] = level
	}
}

// FrontierLevel returns the global leader level for a product.
func (w *World) FrontierLevel(product int) int {
	if lv, ok := w.Frontier[product]; ok {
		return lv
	}
	if p, ok := w.Catalog.Product(product); ok {
		return p.TechBase
	}
	return catalog.DefaultTechLevel
}

// AlertFor returns the active tech alert for a (company, product), if any.
func (w *World) AlertFor(company ecs.Entity, product int) *TechAlert {
	return w.Alerts[TechKey{Company: company, Product: product}]
}

// HasAlert reports whether the company carries any unresolved tech alert.
func (w *World) HasAlert(company ecs.Entity) bool {
	for k := range w.Alerts {
		if k.Company == company {
			return true
		}
	}
	return false
}

// CityOf resolves a building's city record.
func (w *World) CityOf(building ecs.Entity) *City {
	b := w.Buildings.Get(building)
	if b == nil {
		return nil
	}
	return w.Cities.Get(b.CityRef)
}

// BuildingsOf returns the company's buildings in store order.
func (w *World) BuildingsOf(company ecs.Entity) []ecs.Entity {
	var out []ecs.Entity
	w.Buildings.Each(func(e ecs.Entity, b *Building) {
		if b.OwnerRef == company {
			out = append(out, e)
		}
	})
	return out
}

// ── RNG helpers ─────────────────────────────────────────────────────────
// All randomness flows through these so a seeded world replays exactly.

// Chance returns true with probability p.
func (w *World) Chance(p float64) bool { return w.rng.Float64() < p }

// Range returns a uniform draw in [lo, hi).
func (w *World) Range(lo, hi float64) float64 {
	return lo + w.rng.Float64()*(hi-lo)
}

// Noise returns a uniform draw in [-mag, +mag].
func (w *World) Noise(mag float64) float64 {
	return (w.rng.Float64()*2 - 1) * mag
}

// Intn returns a uniform draw in [0, n).
func (w *World) Intn(n int) int { return w.rng.Intn(n) }

// WeightedPick returns an index drawn proportionally to weights. Negative
// weights count as zero; an all-zero vector falls back to uniform.
func (w *World) WeightedPick(weights []float64) int {
	total := 0.0
	for _, wt := range weights {
		if wt > 0 {
			total += wt
		}
	}
	if total <= 0 {
		return w.rng.Intn(len(weights))
	}
	draw := w.rng.Float64() * total
	for i, wt := range weights {
		if wt <= 0 {
			continue
		}
		draw -= wt
		if draw <= 0 {
			return i
		}
	}
	return len(weights) - 1
}
