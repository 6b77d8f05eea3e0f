// Stock valuation pass: monthly fundamental re-valuation plus daily noise,
// momentum, and the rare panic/squeeze events. Runs last in the tick so it
// sees the tech alerts and P&L written earlier in the same tick.
package sim

import (
	"fmt"
	"math"

	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	peDrift          = 0.30 // monthly P/E relaxation toward target
	priceDrift       = 0.20 // monthly price move toward target
	priceDriftShock  = 0.08 // under an unresolved tech alert
	priceNoise       = 0.03
	meanReversion    = 0.02 // daily pull toward the fundamental target
	alertCompression = 0.08
	panicChance      = 0.03
	squeezeChance    = 0.02
	bookValueFloor   = 0.25 // nominal minimum price for loss-makers
)

// sectorBasePE is the starting multiple per sector code.
var sectorBasePE = map[int]float64{
	1: 12, // agriculture
	2: 11, // materials
	3: 14, // industrials
	4: 16, // consumer
	5: 22, // tech
}

// valuationMonthly re-anchors every listed company to fundamentals.
func (w *World) valuationMonthly() {
	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		st := w.Stocks.Get(company)
		fin := w.Finances.Get(company)
		if co == nil || st == nil || fin == nil || st.Shares <= 0 {
			continue
		}

		st.EPS = co.NetIncomeLastMonth * 12 / st.Shares

		targetPE := w.targetPE(company, co, st)
		st.PERatio += (targetPE - st.PERatio) * peDrift

		target := w.fundamentalTarget(company, fin, st)
		drift := priceDrift
		if w.HasAlert(company) {
			drift = priceDriftShock
		}
		st.PrevPrice = st.Price
		st.Price += (target - st.Price) * drift
		st.Price *= 1 + w.Noise(priceNoise)
		if st.Price < bookValueFloor {
			st.Price = bookValueFloor
		}
		st.Volume = st.Shares * w.Range(0.002, 0.012)
		co.MarketCap = st.Price * st.Shares
	}
}

// targetPE builds the multiple from the sector base and every premium and
// discount the market prices in.
func (w *World) targetPE(company ecs.Entity, co *Company, st *Stock) float64 {
	pe, ok := sectorBasePE[st.Sector]
	if !ok {
		pe = 14
	}

	// Cycle scaling; high-tech gets partial recession resistance and a
	// larger boom premium.
	switch {
	case w.Boom():
		if st.Sector == 5 {
			pe *= 1.3
		} else {
			pe *= 1.2
		}
	case w.Recession():
		if st.Sector == 5 {
			pe *= 0.9
		} else {
			pe *= 0.8
		}
	}

	// Profitability, up to +50%.
	if co.RevenueLastMonth > 0 {
		margin := co.NetIncomeLastMonth / co.RevenueLastMonth
		pe *= 1 + ecs.Clamp(margin, 0, 0.5)
	}

	// Reputation, ±10%.
	pe *= 0.9 + co.Reputation/500.0

	// Technology position: innovator premium or obsolescence discount.
	pe *= w.techValuationFactor(company)

	// Unresolved tech alerts compress the multiple up to 8%, softened by
	// active PR spend and reputation.
	if w.HasAlert(company) {
		compression := alertCompression
		compression *= 1 - ecs.Clamp(co.PRSpendMonth/(prShieldThreshold*30), 0, 0.6)
		compression *= 1 - co.Reputation/300.0
		pe *= 1 - compression
	}

	return ecs.Clamp(pe, 3, 60)
}

// techValuationFactor averages the company's frontier gaps across the
// products it competes in.
func (w *World) techValuationFactor(company ecs.Entity) float64 {
	gaps, n := 0.0, 0
	for _, key := range w.activeTechPairs() {
		if key.Company != company {
			continue
		}
		gaps += float64(w.FrontierLevel(key.Product) - w.TechLevel(company, key.Product))
		n++
	}
	if n == 0 {
		return 1
	}
	avg := gaps / float64(n)
	switch {
	case avg <= 0.5:
		return 1.08 // innovator premium
	case avg > 10:
		return 0.85
	default:
		return 1 - avg*0.012
	}
}

// fundamentalTarget is EPS×P/E when profitable, else a fraction of book
// value per share, floored at a nominal minimum.
func (w *World) fundamentalTarget(company ecs.Entity, fin *Finances, st *Stock) float64 {
	if st.EPS > 0 {
		return st.EPS * st.PERatio
	}
	assets := 0.0
	w.Buildings.Each(func(_ ecs.Entity, b *Building) {
		if b.OwnerRef != company {
			return
		}
		bt := w.Catalog.BuildingOrDefault(b.TypeID)
		assets += bt.BaseCost * float64(b.Level)
	})
	book := (assets + fin.Cash) * 0.6 / st.Shares
	return math.Max(book, bookValueFloor)
}

// valuationDaily applies the non-revaluation drift: regime noise, mean
// reversion, and the rare strike-panic and short-squeeze events.
func (w *World) valuationDaily() {
	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		st := w.Stocks.Get(company)
		if co == nil || st == nil || st.Shares <= 0 {
			continue
		}

		drift := w.Noise(0.003)
		switch {
		case w.Boom():
			drift += 0.001
		case w.Recession():
			drift -= 0.001
		}
		st.PrevPrice = st.Price
		st.Price *= 1 + drift

		// Mean reversion toward the fundamental anchor.
		if st.EPS > 0 {
			target := st.EPS * st.PERatio
			st.Price += (target - st.Price) * meanReversion

			// Oversold names occasionally squeeze back up.
			if st.Price < target*0.5 && w.Chance(squeezeChance) {
				st.Price *= 1.08
				w.PushNews("market", co.Name+" shares snap back in a short squeeze")
			}
		}

		// Labor unrest spooks the market.
		if w.companyStruck(company) && w.Chance(panicChance) {
			st.Price *= 0.95
			w.PushNews("market", fmt.Sprintf("panic selling hits %s on strike news", co.Name))
		}

		if st.Price < bookValueFloor {
			st.Price = bookValueFloor
		}
		st.Volume = st.Shares * w.Range(0.001, 0.006)
		co.MarketCap = st.Price * st.Shares
	}
}

// companyStruck reports whether any of the company's buildings is under an
// active critical strike.
func (w *World) companyStruck(company ecs.Entity) bool {
	struck := false
	w.Strikes.Each(func(e ecs.Entity, s *Strike) {
		if struck || !s.Active(w.Tick) || s.Severity != StrikeCritical {
			return
		}
		if b := w.Buildings.Get(e); b != nil && b.OwnerRef == company {
			struck = true
		}
	})
	return struck
}

// IssueShares sells new shares at a small discount to market. The proceeds
// are capital, not revenue.
func (w *World) IssueShares(company ecs.Entity, shares float64) (float64, error) {
	st := w.Stocks.Get(company)
	fin := w.Finances.Get(company)
	co := w.Companies.Get(company)
	if st == nil || fin == nil || co == nil {
		return 0, ErrNotACompany
	}
	if shares <= 0 {
		return 0, fmt.Errorf("share count must be positive")
	}
	proceeds := shares * st.Price * 0.97
	st.Shares += shares
	fin.Cash += proceeds
	co.MarketCap = st.Price * st.Shares
	w.PushNews("market", co.Name+" raises capital in a share offering")
	return proceeds, nil
}

// BuybackShares retires shares at a small premium. Rejected when cash
// cannot cover the purchase or the float would drop too low.
func (w *World) BuybackShares(company ecs.Entity, shares float64) error {
	st := w.Stocks.Get(company)
	fin := w.Finances.Get(company)
	co := w.Companies.Get(company)
	if st == nil || fin == nil || co == nil {
		return ErrNotACompany
	}
	if shares <= 0 || st.Shares-shares < 1000 {
		return fmt.Errorf("invalid buyback size")
	}
	cost := shares * st.Price * 1.02
	if fin.Cash < cost {
		return ErrInsufficientCash
	}
	fin.Cash -= cost
	st.Shares -= shares
	co.MarketCap = st.Price * st.Shares
	return nil
}

// SetDividend configures the monthly dividend in basis points of the share
// price. The finance pass force-cuts it when unaffordable.
func (w *World) SetDividend(company ecs.Entity, bps float64) error {
	st := w.Stocks.Get(company)
	if st == nil {
		return ErrNotACompany
	}
	if bps < 0 || bps > 500 {
		return fmt.Errorf("dividend must be within 0–500bps")
	}
	st.DividendBps = bps
	return nil
}
