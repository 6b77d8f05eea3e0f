// Cash movement helpers. Every transfer touches exactly one company's cash
// and the matching monthly accumulator, which is what makes the monthly
// net-income identity hold after roll-up. Cash is allowed to go negative —
// that models credit-line usage and is priced by the finance pass.
package sim

import "github.com/vantagegames/magnate/internal/ecs"

// creditBuilding books revenue earned by a building to its owner.
func (w *World) creditBuilding(building ecs.Entity, amount float64) {
	if amount <= 0 {
		return
	}
	b := w.Buildings.Get(building)
	if b == nil {
		return
	}
	if fin := w.Finances.Get(b.OwnerRef); fin != nil {
		fin.Cash += amount
	}
	b.RevenueAcc += amount
}

// chargeBuilding books an expense incurred by a building to its owner.
func (w *World) chargeBuilding(building ecs.Entity, amount float64) {
	if amount <= 0 {
		return
	}
	b := w.Buildings.Get(building)
	if b == nil {
		return
	}
	if fin := w.Finances.Get(b.OwnerRef); fin != nil {
		fin.Cash -= amount
	}
	b.ExpenseAcc += amount
}

// creditCompany books company-level revenue (share issues are handled
// separately — they are capital, not income).
func (w *World) creditCompany(company ecs.Entity, amount float64) {
	if amount <= 0 {
		return
	}
	if fin := w.Finances.Get(company); fin != nil {
		fin.Cash += amount
	}
	if co := w.Companies.Get(company); co != nil {
		co.DirectRevenueAcc += amount
	}
}

// chargeCompany books a company-level expense (interest, ad spend, R&D,
// construction, dividends).
func (w *World) chargeCompany(company ecs.Entity, amount float64) {
	if amount <= 0 {
		return
	}
	if fin := w.Finances.Get(company); fin != nil {
		fin.Cash -= amount
	}
	if co := w.Companies.Get(company); co != nil {
		co.DirectExpenseAcc += amount
	}
}
