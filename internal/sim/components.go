// Component records attached to entities. Every field is a plain scalar so
// the snapshot serializer can dump them generically; fields holding another
// entity's id are named with the Ref suffix and remapped on restore.
package sim

import "github.com/vantagegames/magnate/internal/ecs"

// Position is a tile coordinate on the world grid.
type Position struct {
	X int
	Y int
}

// City holds the macro-economic state of one city. Created at world setup,
// mutated daily/monthly by the macro pass, never destroyed.
type City struct {
	Name            string
	Population      int
	PurchasingPower float64 // 0–100
	Unemployment    float64 // percent
	Sentiment       float64 // 0–100
	RealWage        float64 // monthly, dollars
	InterestBps     float64 // central-bank rate, basis points
	InflationBps    float64
	TaxRate         float64 // corporate, fraction
	DemandMult      float64 // industry demand multiplier, 0.4–1.8
	GDPGrowth       float64 // percent, annualized
}

// Strategic directives a company can adopt.
type Directive uint8

const (
	DirectiveNone Directive = iota
	DirectiveQuality
	DirectiveAggression
	DirectiveEfficiency
)

// Policy bitmask flags.
const (
	PolicyTraining uint8 = 1 << iota
	PolicyAutomation
	PolicyBenefits
	PolicyLogistics // logistics-optimizing management
)

// Marketing directives, separate from the strategic directive.
type MarketingDirective uint8

const (
	MktNone MarketingDirective = iota
	MktAggressive                 // deeper spend, faster loyalty fatigue
	MktGreenwash                  // quarters awareness decay at a cash cost
)

// Company is the corporate record. AI companies may go dormant but are
// never removed from the store.
type Company struct {
	Name       string
	Symbol     string
	IsAI       bool
	ParentRef  ecs.Entity // 0 = independent, else owning company
	Reputation float64    // 0–100
	MarketCap  float64
	Directive  Directive
	MktStyle   MarketingDirective
	Policies   uint8

	// PR spend this month, consumed by valuation's alert compression.
	PRSpendMonth float64

	// Monthly accumulators. Building-level revenue/expense rolls up into
	// the LastMonth fields; Direct* holds company-level items (interest,
	// dividends, construction) accrued between roll-ups.
	RevenueLastMonth   float64
	ExpensesLastMonth  float64
	NetIncomeLastMonth float64
	DirectRevenueAcc   float64
	DirectExpenseAcc   float64

	// AI-only decision state.
	Aggression     float64 // personality, 0–1
	LastActionTick uint64
	RDTargetID     int // 0 = process-efficiency track
}

// Finances is the per-company balance-sheet snapshot. Cash may go negative
// (credit-line usage); debt never does.
type Finances struct {
	Cash         float64
	Debt         float64
	CreditLimit  float64
	InterestBps  float64
	CreditRating float64 // 0–100
}

// Stock is the per-company equity record.
type Stock struct {
	Shares      float64
	Price       float64
	PrevPrice   float64
	DividendBps float64 // of share price, paid monthly
	EPS         float64
	PERatio     float64
	Volume      float64
	Sector      int
}

// Building is the common record for every constructed structure. Its
// operational flag gates all economic effects.
type Building struct {
	TypeID      int
	Level       int
	MaxFloors   int
	Size        int
	Operational bool
	OwnerRef    ecs.Entity // owning company
	CityRef     ecs.Entity
	Maintenance float64 // daily; 0 = derive from base upkeep and level

	// Accumulated since the last monthly roll-up.
	RevenueAcc float64
	ExpenseAcc float64
}

// Factory runs one recipe.
type Factory struct {
	RecipeID   int
	Efficiency float64 // 0–100
	Quality    float64 // 0–100, output quality before tech ceiling
}

// PriceSlot is one stocked-product shelf in a retail building.
type PriceSlot struct {
	ProductID int // 0 = empty slot
	Price     float64
}

// RetailPlot is the retail/supermarket companion record.
type RetailPlot struct {
	Traffic    float64 // traffic index, 0–100
	Visibility float64 // 0–100
	Slots      [3]PriceSlot
}

// ProductStack is a quantity of one product at one quality.
type ProductStack struct {
	ProductID int
	Amount    float64
	Quality   float64
}

// Inventory holds a building's output stock and input buffers.
type Inventory struct {
	Output   ProductStack
	Inputs   [3]ProductStack
	Capacity float64 // per-stack room
}

// Warehouse adds a distribution buffer on top of Inventory.
type Warehouse struct {
	Radius int // distribution radius in tiles
}

// ResearchCenter advances one product's tech level.
type ResearchCenter struct {
	TargetID int     // 0 = process-efficiency track
	Progress float64 // 0–100, breakthrough at 100
	Budget   float64 // daily spend
}

// Campaign archetypes.
type CampaignType uint8

const (
	CampaignMassMedia CampaignType = iota
	CampaignDigital
	CampaignPremium
	CampaignGuerrilla
	CampaignPR
)

// Demographic targets.
type Demographic uint8

const (
	DemoGeneral Demographic = iota
	DemoYouth
	DemoFamilies
	DemoProfessionals
	DemoSeniors
)

// MarketingOffice runs one campaign for one product.
type MarketingOffice struct {
	TargetID    int
	DailySpend  float64
	Campaign    CampaignType
	Demographic Demographic
	Reach       float64 // cumulative people-reached counter
	SpentMonth  float64
}

// SupplySlot is one configured inbound supply route.
type SupplySlot struct {
	SourceRef ecs.Entity // source building; 0 = unused slot
	ProductID int
}

// SupplyLinks configures up to three inbound routes for a building.
type SupplyLinks struct {
	Slots [3]SupplySlot
}

// Staffing carries the HR state that feeds the strike mechanic.
type Staffing struct {
	Headcount int
	Morale    float64 // 0–100
	Training  float64 // 0–100
	Wage      float64 // monthly, per head
}

// Strike severities.
type StrikeSeverity uint8

const (
	StrikeNone StrikeSeverity = iota
	StrikeMinor
	StrikeCritical
)

// Strike is the building-scoped labor-action state machine:
// none → striking → resolved (duration elapsed) → none.
type Strike struct {
	Severity     StrikeSeverity
	StartTick    uint64
	DurationDays int
}

// Active reports whether the strike is still running at the given tick.
func (s *Strike) Active(tick uint64) bool {
	if s == nil || s.Severity == StrikeNone {
		return false
	}
	return tick < s.StartTick+uint64(s.DurationDays)*TicksPerDay
}

// BrandKey identifies a (company, product) brand.
type BrandKey struct {
	Company ecs.Entity
	Product int
}

// ProductBrand is the per (company, product) marketing state. Created
// lazily on first advertisement or sale; never destroyed.
type ProductBrand struct {
	Awareness   float64 // 0–100
	Loyalty     float64 // 0–100
	MarketShare float64 // 0–100, recomputed monthly
	SpendMonth  float64 // ad spend this month, reset at share recompute
	RepBonus    float64
}

// MarketRow is the per (building, product) competitive snapshot rebuilt
// every retail pass. The canonical retail price lives on the building's
// price slots; this row is derived, not persisted.
type MarketRow struct {
	BuildingRef ecs.Entity
	ProductID   int
	Price       float64
	Quality     float64
	BrandPower  float64
	Share       float64
	AvgCost     float64
}
