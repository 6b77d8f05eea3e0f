package sim

import (
	"testing"

	"github.com/vantagegames/magnate/internal/catalog"
)

func TestTechLevelsNeverRegress(t *testing.T) {
	w := newTestWorld(t, 1)
	company := w.CreateCompany(1, "Labs", "LABS", false)
	w.SetTechLevel(company, 24, 70)
	w.SetTechLevel(company, 24, 60)
	if got := w.TechLevel(company, 24); got != 70 {
		t.Fatalf("tech level = %d, want 70 (no regression)", got)
	}
	if got := w.FrontierLevel(24); got != 70 {
		t.Fatalf("frontier = %d, want 70", got)
	}
}

func TestAlertRaisedAtFifteenLevelGap(t *testing.T) {
	w := newTestWorld(t, 1)
	leader := w.CreateCompany(1, "Apex Devices", "APEX", true)
	laggard := w.CreateCompany(1, "Legacy Goods", "LGCY", false)
	base := w.TechLevel(laggard, 24)

	// 14 levels behind: no alert yet.
	w.SetTechLevel(leader, 24, base+14)
	w.Brand(laggard, 24) // puts the laggard in the competitive set
	w.techMonthly()
	if w.HasAlert(laggard) {
		t.Fatalf("alert raised below the %d-level threshold", techAlertGap)
	}

	// One more level crosses the threshold.
	w.SetTechLevel(leader, 24, base+15)
	w.techMonthly()
	alert := w.AlertFor(laggard, 24)
	if alert == nil {
		t.Fatalf("no alert at a %d-level gap", techAlertGap)
	}
	if alert.Gap != 15 {
		t.Fatalf("alert gap = %d, want 15", alert.Gap)
	}

	// Catching up clears it.
	w.SetTechLevel(laggard, 24, base+10)
	w.techMonthly()
	if w.HasAlert(laggard) {
		t.Fatalf("alert survived the catch-up")
	}
}

func TestBreakthroughAdvancesTargetLevel(t *testing.T) {
	w := newTestWorld(t, 6)
	city := w.CreateCity(0, 0, "Techhaven", 800_000)
	company := w.CreateCompany(10_000_000, "Novex", "NVX", false)
	researchID, _ := w.Catalog.BuildingIDByKind(catalog.KindResearch)
	lab := w.CreateBuilding(5, 5, researchID, city, company)

	rc := w.Research.Get(lab)
	rc.TargetID = 24
	rc.Budget = 2000
	rc.Progress = 99.9
	before := w.TechLevel(company, 24)

	w.techDaily()
	after := w.TechLevel(company, 24)
	gain := after - before
	if gain < 1 || gain > 3 {
		t.Fatalf("breakthrough gain = %d, want 1..3", gain)
	}
	if rc.Progress >= 100 {
		t.Fatalf("progress not consumed by the breakthrough: %v", rc.Progress)
	}
	if w.FrontierLevel(24) != after {
		t.Fatalf("sole researcher must set the frontier")
	}
}

func TestProcessTrackLiftsFleetEfficiency(t *testing.T) {
	w := newTestWorld(t, 6)
	city := w.CreateCity(0, 0, "Techhaven", 800_000)
	company := w.CreateCompany(10_000_000, "Novex", "NVX", false)
	factoryID, _ := w.Catalog.BuildingIDByKind(catalog.KindFactory)
	researchID, _ := w.Catalog.BuildingIDByKind(catalog.KindResearch)
	plant := w.CreateBuilding(5, 5, factoryID, city, company)
	lab := w.CreateBuilding(9, 9, researchID, city, company)

	rc := w.Research.Get(lab)
	rc.TargetID = 0 // process-efficiency track
	rc.Budget = 2000
	rc.Progress = 99.9
	effBefore := w.Factories.Get(plant).Efficiency

	w.techDaily()
	if got := w.Factories.Get(plant).Efficiency; got != effBefore+2 {
		t.Fatalf("fleet efficiency = %v, want %v", got, effBefore+2)
	}
}

func TestResearchChargesItsBudget(t *testing.T) {
	w := newTestWorld(t, 6)
	city := w.CreateCity(0, 0, "Techhaven", 800_000)
	company := w.CreateCompany(10_000_000, "Novex", "NVX", false)
	researchID, _ := w.Catalog.BuildingIDByKind(catalog.KindResearch)
	lab := w.CreateBuilding(5, 5, researchID, city, company)
	cash := w.Finances.Get(company).Cash

	w.techDaily()
	if got := w.Finances.Get(company).Cash; got != cash-w.Research.Get(lab).Budget {
		t.Fatalf("cash = %v, want budget %v deducted from %v", got, w.Research.Get(lab).Budget, cash)
	}
}

func TestTechEfficiencyFactorFloors(t *testing.T) {
	w := newTestWorld(t, 1)
	laggard := w.CreateCompany(1, "Legacy Goods", "LGCY", false)
	leader := w.CreateCompany(1, "Apex Devices", "APEX", true)
	base := w.TechLevel(laggard, 24)
	w.SetTechLevel(leader, 24, base+100)

	got := w.techEfficiencyFactor(laggard, 24)
	if got != 0.2 {
		t.Fatalf("efficiency factor = %v, want the 0.2 floor", got)
	}
	if w.techEfficiencyFactor(leader, 24) != 1 {
		t.Fatalf("the leader pays no penalty")
	}
}
