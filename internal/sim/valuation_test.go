package sim

import (
	"math"
	"testing"
)

func TestMarketCapTracksPriceTimesShares(t *testing.T) {
	w := newTestWorld(t, 12)
	addBakery(t, w)
	w.AdvanceDays(60)

	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		st := w.Stocks.Get(company)
		if math.Abs(co.MarketCap-st.Price*st.Shares) > 1e-6 {
			t.Fatalf("market cap %v != price %v × shares %v", co.MarketCap, st.Price, st.Shares)
		}
		if st.Price < bookValueFloor {
			t.Fatalf("price %v under the nominal floor", st.Price)
		}
	}
}

func TestTargetPEStaysClamped(t *testing.T) {
	w := newTestWorld(t, 12)
	company := w.CreateCompany(1_000_000, "Meme Factory", "MEME", false)
	co := w.Companies.Get(company)
	st := w.Stocks.Get(company)

	co.Reputation = 100
	co.RevenueLastMonth = 1
	co.NetIncomeLastMonth = 1
	st.Sector = 5
	boomPeak := 8000 * math.Pi / 2
	w.Tick = uint64(boomPeak) // boom peak
	if pe := w.targetPE(company, co, st); pe > 60 {
		t.Fatalf("target P/E %v above the 60 cap", pe)
	}

	co.Reputation = 0
	co.NetIncomeLastMonth = -1
	w.Alerts[TechKey{Company: company, Product: 24}] = &TechAlert{Company: company, Product: 24, Gap: 50}
	w.SetTechLevel(company, 24, 1)
	other := w.CreateCompany(1, "Apex", "APEX", true)
	w.SetTechLevel(other, 24, 90)
	recessionTrough := 8000 * 3 * math.Pi / 2
	w.Tick = uint64(recessionTrough) // recession trough
	if pe := w.targetPE(company, co, st); pe < 3 {
		t.Fatalf("target P/E %v below the 3 floor", pe)
	}
}

func TestLossMakersValueOnBook(t *testing.T) {
	w := newTestWorld(t, 12)
	w.CreateCity(0, 0, "Capital", 500_000)
	company := w.CreateCompany(2_000_000, "Deep Red", "DRED", false)
	st := w.Stocks.Get(company)
	fin := w.Finances.Get(company)
	st.EPS = -0.5

	target := w.fundamentalTarget(company, fin, st)
	want := fin.Cash * 0.6 / st.Shares // no buildings, cash is the book
	if math.Abs(target-want) > 1e-6 {
		t.Fatalf("book target = %v, want %v", target, want)
	}

	fin.Cash = 0
	if got := w.fundamentalTarget(company, fin, st); got != bookValueFloor {
		t.Fatalf("empty-book target = %v, want the %v floor", got, bookValueFloor)
	}
}

func TestIssueSharesIsCapitalNotRevenue(t *testing.T) {
	w := newTestWorld(t, 12)
	company := w.CreateCompany(1_000_000, "Dilute & Grow", "DLGR", false)
	co := w.Companies.Get(company)
	st := w.Stocks.Get(company)
	fin := w.Finances.Get(company)
	sharesBefore, cashBefore := st.Shares, fin.Cash

	proceeds, err := w.IssueShares(company, 100_000)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if want := 100_000 * st.Price * 0.97; math.Abs(proceeds-want) > 1e-6 {
		t.Fatalf("proceeds = %v, want %v (3%% discount)", proceeds, want)
	}
	if st.Shares != sharesBefore+100_000 {
		t.Fatalf("shares = %v, want %v", st.Shares, sharesBefore+100_000)
	}
	if fin.Cash != cashBefore+proceeds {
		t.Fatalf("cash = %v, want %v", fin.Cash, cashBefore+proceeds)
	}
	if co.DirectRevenueAcc != 0 {
		t.Fatalf("share issue leaked into revenue")
	}
}

func TestBuybackRejectsWhatItCannotAfford(t *testing.T) {
	w := newTestWorld(t, 12)
	company := w.CreateCompany(100, "Cashless", "CSH", false)
	st := w.Stocks.Get(company)
	sharesBefore := st.Shares

	if err := w.BuybackShares(company, 10_000); err == nil {
		t.Fatalf("unaffordable buyback accepted")
	}
	if st.Shares != sharesBefore {
		t.Fatalf("rejected buyback changed the float")
	}

	// A float below the minimum is rejected regardless of cash.
	w.Finances.Get(company).Cash = 1e12
	if err := w.BuybackShares(company, st.Shares-500); err == nil {
		t.Fatalf("buyback below the minimum float accepted")
	}
}

func TestSetDividendValidatesRange(t *testing.T) {
	w := newTestWorld(t, 12)
	company := w.CreateCompany(1_000, "Payout Plc", "PAYO", false)
	if err := w.SetDividend(company, 501); err == nil {
		t.Fatalf("dividend above 500bps accepted")
	}
	if err := w.SetDividend(company, -1); err == nil {
		t.Fatalf("negative dividend accepted")
	}
	if err := w.SetDividend(company, 150); err != nil {
		t.Fatalf("valid dividend rejected: %v", err)
	}
}
