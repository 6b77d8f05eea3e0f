// Marketing & brand pass: campaign-driven awareness and loyalty growth,
// daily decay, the monthly market-share recomputation, and the PR plays
// (shielding, smears, viral spikes).
package sim

import (
	"fmt"
	"math"

	"github.com/vantagegames/magnate/internal/ecs"
)

// campaignProfile carries the fixed multipliers of one campaign archetype.
type campaignProfile struct {
	Awareness  float64
	Loyalty    float64
	Efficiency float64
	Reach      float64 // people reached per dollar
}

var campaignProfiles = map[CampaignType]campaignProfile{
	CampaignMassMedia: {Awareness: 1.2, Loyalty: 0.6, Efficiency: 0.8, Reach: 5.0},
	CampaignDigital:   {Awareness: 1.0, Loyalty: 0.8, Efficiency: 1.3, Reach: 3.0},
	CampaignPremium:   {Awareness: 0.7, Loyalty: 1.4, Efficiency: 0.7, Reach: 1.5},
	CampaignGuerrilla: {Awareness: 1.4, Loyalty: 0.5, Efficiency: 1.6, Reach: 2.0},
	CampaignPR:        {Awareness: 0.6, Loyalty: 1.1, Efficiency: 1.0, Reach: 1.0},
}

// demographicProfile carries a target demographic's boost pair.
type demographicProfile struct {
	Awareness float64
	Loyalty   float64
}

var demographicProfiles = map[Demographic]demographicProfile{
	DemoGeneral:       {Awareness: 1.0, Loyalty: 1.0},
	DemoYouth:         {Awareness: 1.3, Loyalty: 0.8},
	DemoFamilies:      {Awareness: 1.0, Loyalty: 1.2},
	DemoProfessionals: {Awareness: 0.9, Loyalty: 1.15},
	DemoSeniors:       {Awareness: 0.8, Loyalty: 1.25},
}

const (
	refDailySpend     = 1500.0 // spend with ~unit awareness growth
	prShieldThreshold = 2500.0 // daily PR spend that shields reputation
	smearChance       = 0.15
	viralChance       = 0.08
	greenwashCost     = 400.0 // daily flat cost of the greenwashing posture
)

// marketingDaily runs campaign spend and brand decay once per day.
func (w *World) marketingDaily() {
	w.Marketing.Each(func(e ecs.Entity, mo *MarketingOffice) {
		b := w.Buildings.Get(e)
		if b == nil || !b.Operational || mo.TargetID == 0 || mo.DailySpend <= 0 {
			return
		}
		co := w.Companies.Get(b.OwnerRef)
		if co == nil {
			return
		}

		spend := mo.DailySpend
		if co.MktStyle == MktAggressive {
			spend *= 1.2
		}
		w.chargeBuilding(e, spend)
		mo.SpentMonth += spend
		if mo.Campaign == CampaignPR {
			co.PRSpendMonth += spend
		}

		camp := campaignProfiles[mo.Campaign]
		demo := demographicProfiles[mo.Demographic]
		brand := w.Brand(b.OwnerRef, mo.TargetID)
		brand.SpendMonth += spend
		mo.Reach += spend * camp.Reach

		// Square-root diminishing returns on spend, further damped as
		// awareness approaches the ceiling.
		growth := math.Sqrt(spend/refDailySpend) * camp.Awareness * demo.Awareness * camp.Efficiency
		growth *= (100 - brand.Awareness) / 100.0
		growth *= brandEquity(co.Reputation)
		if co.Directive == DirectiveAggression {
			growth *= 1.15
		}
		brand.Awareness = ecs.Clamp100(brand.Awareness + growth)
	})

	w.decayBrands()
}

// decayBrands applies the daily awareness/loyalty erosion to every brand.
func (w *World) decayBrands() {
	for _, key := range w.BrandKeys() {
		brand := w.Brands[key]
		co := w.Companies.Get(key.Company)

		awDecay := 0.05 + (100-brand.Loyalty)*0.002
		loyDecay := 0.008
		if co != nil {
			switch co.MktStyle {
			case MktGreenwash:
				awDecay *= 0.25
				w.chargeCompany(key.Company, greenwashCost)
			case MktAggressive:
				loyDecay *= 2.5 // customer fatigue
			}
		}
		brand.Awareness = ecs.Clamp100(brand.Awareness - awDecay)
		brand.Loyalty = ecs.Clamp100(brand.Loyalty - loyDecay)
	}
}

// marketingMonthly grows loyalty, runs the PR mechanics, and recomputes
// market share per product from relative awareness.
func (w *World) marketingMonthly() {
	w.Marketing.Each(func(e ecs.Entity, mo *MarketingOffice) {
		b := w.Buildings.Get(e)
		if b == nil || !b.Operational || mo.TargetID == 0 || mo.SpentMonth <= 0 {
			return
		}
		co := w.Companies.Get(b.OwnerRef)
		if co == nil {
			return
		}
		camp := campaignProfiles[mo.Campaign]
		demo := demographicProfiles[mo.Demographic]
		brand := w.Brand(b.OwnerRef, mo.TargetID)

		// Loyalty builds slower than awareness and with its own ceiling.
		growth := math.Sqrt(mo.SpentMonth/(refDailySpend*30)) * camp.Loyalty * demo.Loyalty
		growth *= (100 - brand.Loyalty) / 120.0
		growth *= brandEquity(co.Reputation)
		brand.Loyalty = ecs.Clamp100(brand.Loyalty + growth)

		// Guerrilla campaigns occasionally go viral.
		if mo.Campaign == CampaignGuerrilla && w.Chance(viralChance) {
			brand.Awareness = ecs.Clamp100(brand.Awareness + 15)
			brand.Loyalty = ecs.Clamp100(brand.Loyalty + 5)
			p := w.Catalog.ProductOrDefault(mo.TargetID)
			w.PushNews("marketing", fmt.Sprintf("%s's %s stunt goes viral", co.Name, p.Name))
		}

		if mo.Campaign == CampaignPR {
			w.runSmearPlay(b.OwnerRef, co, mo)
		}

		mo.SpentMonth = 0
	})

	w.applyAlertReputation()
	w.recomputeMarketShare()

	// Monthly ad-spend accumulators reset after the share recompute.
	for _, key := range w.BrandKeys() {
		w.Brands[key].SpendMonth = 0
	}
	for _, company := range w.CompanyList {
		if co := w.Companies.Get(company); co != nil {
			co.PRSpendMonth = 0
		}
	}
}

// runSmearPlay lets a well-funded PR desk damage the category leader's
// reputation — only when the attacker has no crisis of its own, or is
// explicitly running an aggressive marketing posture.
func (w *World) runSmearPlay(company ecs.Entity, co *Company, mo *MarketingOffice) {
	if mo.SpentMonth < prShieldThreshold*30 {
		return
	}
	if w.HasAlert(company) && co.MktStyle != MktAggressive {
		return
	}

	_, leaderCo := w.categoryLeader(mo.TargetID, company)
	if leaderCo == nil || leaderCo.Reputation < 55 {
		return
	}
	if !w.Chance(smearChance) {
		return
	}
	leaderCo.Reputation = ecs.Clamp100(leaderCo.Reputation - 2)
	p := w.Catalog.ProductOrDefault(mo.TargetID)
	w.PushNews("marketing", fmt.Sprintf("negative press hits %s's %s business", leaderCo.Name, p.Name))
}

// categoryLeader returns the company with the highest market share for a
// product, excluding the given company.
func (w *World) categoryLeader(product int, exclude ecs.Entity) (ecs.Entity, *Company) {
	var best ecs.Entity
	bestShare := -1.0
	for _, key := range w.BrandKeys() {
		if key.Product != product || key.Company == exclude {
			continue
		}
		if share := w.Brands[key].MarketShare; share > bestShare {
			bestShare = share
			best = key.Company
		}
	}
	if best == 0 {
		return 0, nil
	}
	return best, w.Companies.Get(best)
}

// applyAlertReputation dings the reputation of companies carrying tech
// alerts, unless an active PR campaign shields them.
func (w *World) applyAlertReputation() {
	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		if co == nil || !w.HasAlert(company) {
			continue
		}
		if co.PRSpendMonth >= prShieldThreshold*30 {
			continue // PR shield holds
		}
		co.Reputation = ecs.Clamp100(co.Reputation - 1)
	}
}

// recomputeMarketShare sets each brand's share to its awareness as a
// fraction of total awareness for the product, rounded to one decimal.
func (w *World) recomputeMarketShare() {
	totals := make(map[int]float64)
	for _, key := range w.BrandKeys() {
		totals[key.Product] += w.Brands[key].Awareness
	}
	for _, key := range w.BrandKeys() {
		brand := w.Brands[key]
		total := totals[key.Product]
		if total <= 0 {
			brand.MarketShare = 0
			continue
		}
		share := brand.Awareness / total * 100
		brand.MarketShare = math.Round(share*10) / 10
	}
}

// brandEquity converts company reputation into a campaign multiplier.
func brandEquity(reputation float64) float64 {
	return 0.7 + reputation/150.0
}
