// Technology & obsolescence pass: R&D progress, the global tech frontier,
// and tech alerts for laggards. Must run before valuation reads the alert
// map in the same tick.
package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	techAlertGap     = 15 // levels behind the frontier that raise an alert
	breakthroughBase = 0.8
)

// techDaily advances research centers and charges their budgets.
func (w *World) techDaily() {
	w.Research.Each(func(e ecs.Entity, rc *ResearchCenter) {
		b := w.Buildings.Get(e)
		if b == nil || !b.Operational || rc.Budget <= 0 {
			return
		}
		if s := w.Strikes.Get(e); s.Active(w.Tick) && s.Severity == StrikeCritical {
			return
		}

		w.chargeBuilding(e, rc.Budget)

		// Diminishing returns on spend; trained staff research faster.
		progress := breakthroughBase * sqrtScale(rc.Budget, 2000)
		if staff := w.Staffing.Get(e); staff != nil {
			progress *= 0.8 + staff.Training/250.0
		}
		progress *= float64(b.Level)
		rc.Progress += progress
		if rc.Progress < 100 {
			return
		}
		rc.Progress -= 100
		w.applyBreakthrough(b.OwnerRef, rc)
	})
}

// applyBreakthrough lands one completed research cycle.
func (w *World) applyBreakthrough(company ecs.Entity, rc *ResearchCenter) {
	co := w.Companies.Get(company)
	if rc.TargetID == 0 {
		// Process-efficiency track: the whole production fleet improves.
		w.Factories.Each(func(fe ecs.Entity, f *Factory) {
			if fb := w.Buildings.Get(fe); fb != nil && fb.OwnerRef == company {
				f.Efficiency = ecs.Clamp100(f.Efficiency + 2)
			}
		})
		if co != nil {
			w.PushNews("tech", co.Name+" rolls out a process improvement")
		}
		return
	}

	gain := 1 + w.Intn(3) // 1–3 levels per breakthrough
	level := w.TechLevel(company, rc.TargetID) + gain
	prevFrontier := w.FrontierLevel(rc.TargetID)
	w.SetTechLevel(company, rc.TargetID, level)
	if co != nil && level > prevFrontier {
		p := w.Catalog.ProductOrDefault(rc.TargetID)
		w.PushNews("tech", fmt.Sprintf("%s sets a new technology standard for %s", co.Name, p.Name))
	}
}

// techMonthly refreshes the frontier and raises/clears tech alerts.
func (w *World) techMonthly() {
	// Frontier is maintained incrementally by SetTechLevel; rebuild anyway
	// so a restored snapshot converges.
	for key, lv := range w.TechLevels {
		if lv > w.Frontier[key.Product] {
			w.Frontier[key.Product] = lv
		}
	}

	for _, key := range w.activeTechPairs() {
		gap := w.FrontierLevel(key.Product) - w.TechLevel(key.Company, key.Product)
		existing := w.Alerts[key]
		switch {
		case gap >= techAlertGap && existing == nil:
			w.Alerts[key] = &TechAlert{
				Company:    key.Company,
				Product:    key.Product,
				Gap:        gap,
				RaisedTick: w.Tick,
			}
			if co := w.Companies.Get(key.Company); co != nil {
				p := w.Catalog.ProductOrDefault(key.Product)
				w.PushNews("tech", fmt.Sprintf("%s falls dangerously behind on %s technology", co.Name, p.Name))
				w.Notify(Notification{Kind: "tech_alert", Company: key.Company,
					Text: fmt.Sprintf("%s technology is %d levels behind the leader", p.Name, gap)})
			}
		case gap >= techAlertGap:
			existing.Gap = gap
		case existing != nil:
			delete(w.Alerts, key)
		}
	}
}

// activeTechPairs lists every (company, product) pair the company competes
// in — researched, produced, or branded — in deterministic order.
func (w *World) activeTechPairs() []TechKey {
	seen := make(map[TechKey]bool)
	for key := range w.TechLevels {
		seen[key] = true
	}
	w.Factories.Each(func(e ecs.Entity, f *Factory) {
		b := w.Buildings.Get(e)
		if b == nil || f.RecipeID == 0 {
			return
		}
		if r, ok := w.Catalog.Recipe(f.RecipeID); ok {
			seen[TechKey{Company: b.OwnerRef, Product: r.OutputID}] = true
		}
	})
	for key := range w.Brands {
		seen[TechKey{Company: key.Company, Product: key.Product}] = true
	}

	keys := make([]TechKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Company != keys[j].Company {
			return keys[i].Company < keys[j].Company
		}
		return keys[i].Product < keys[j].Product
	})
	return keys
}

// sqrtScale maps spend onto a diminishing-returns factor: 1.0 at the
// reference spend, growing with the square root beyond it.
func sqrtScale(spend, reference float64) float64 {
	if spend <= 0 || reference <= 0 {
		return 0
	}
	out := spend / reference
	if out > 1 {
		out = math.Sqrt(out)
	}
	return out
}
