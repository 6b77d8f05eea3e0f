// Financial ledger pass: maintenance, loan/bond servicing, credit rating
// and limit dynamics, dividends, and the monthly P&L roll-up.
package sim

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	overLimitPenaltyBps = 50.0
	rateCapBps          = 2000.0
	ratingDrift         = 0.10 // monthly relaxation toward target
	limitDrift          = 0.15
	missedLoanPenalty   = 5.0
	missedCouponPenalty = 10.0
	bondDefaultPenalty  = 20.0
	bondRatingFloor     = 60.0
	bondLeverageCap     = 0.5 // post-issuance debt vs market cap
	spreadMinBps        = 100.0
	spreadMaxBps        = 1500.0
	termPremiumPerYear  = 25.0 // bps per year of loan term
)

// Loan is one amortized borrowing held in a company ledger.
type Loan struct {
	ID         int     `json:"id"`
	Principal  float64 `json:"principal"`
	Remaining  float64 `json:"remaining"`
	RateBps    float64 `json:"rate_bps"`
	Payment    float64 `json:"payment"` // fixed monthly payment
	MonthsLeft int     `json:"months_left"`
	IssuedTick uint64  `json:"issued_tick"`
}

// Bond is one corporate bond issue. A defaulted bond stays in the ledger.
type Bond struct {
	ID         int     `json:"id"`
	Face       float64 `json:"face"`
	CouponBps  float64 `json:"coupon_bps"`
	IssuePrice float64 `json:"issue_price"`
	Maturity   int     `json:"maturity_months"`
	MonthsLeft int     `json:"months_left"`
	Rating     string  `json:"rating"` // AAA…D letter rating
	Defaulted  bool    `json:"defaulted"`
}

// Ledger holds a company's variable-length debt collections, keyed by
// company outside the component store.
type Ledger struct {
	Loans      []Loan
	Bonds      []Bond
	NextLoanID int
	NextBondID int
}

// FinancialSummary is the read-model returned to UI collaborators.
type FinancialSummary struct {
	Cash         float64 `json:"cash"`
	Debt         float64 `json:"debt"`
	CreditLimit  float64 `json:"credit_limit"`
	CreditRating float64 `json:"credit_rating"`
	InterestBps  float64 `json:"interest_bps"`
	Revenue      float64 `json:"revenue_last_month"`
	Expenses     float64 `json:"expenses_last_month"`
	NetIncome    float64 `json:"net_income_last_month"`
	LoanCount    int     `json:"loan_count"`
	BondCount    int     `json:"bond_count"`
	MarketCap    float64 `json:"market_cap"`
}

// CentralRateBps is the world-level central-bank rate: the mean across
// cities (they share one central bank, city rates wobble around it).
func (w *World) CentralRateBps() float64 {
	if len(w.CityList) == 0 {
		return 400
	}
	total := 0.0
	for _, e := range w.CityList {
		if c := w.Cities.Get(e); c != nil {
			total += c.InterestBps
		}
	}
	return total / float64(len(w.CityList))
}

// creditSpreadBps maps a 0–100 credit rating onto a 100–1500bps premium.
func creditSpreadBps(rating float64) float64 {
	r := ecs.Clamp100(rating)
	return spreadMinBps + (100-r)/100.0*(spreadMaxBps-spreadMinBps)
}

// letterRating maps a numeric credit rating to the bond letter scale.
func letterRating(rating float64) string {
	switch {
	case rating >= 90:
		return "AAA"
	case rating >= 80:
		return "AA"
	case rating >= 70:
		return "A"
	case rating >= 60:
		return "BBB"
	case rating >= 50:
		return "BB"
	case rating >= 40:
		return "B"
	case rating >= 30:
		return "CCC"
	case rating >= 20:
		return "CC"
	case rating >= 10:
		return "C"
	default:
		return "D"
	}
}

var ratingNotches = []string{"AAA", "AA", "A", "BBB", "BB", "B", "CCC", "CC", "C", "D"}

// downgradeNotch moves a letter rating one step toward D.
func downgradeNotch(r string) string {
	for i, n := range ratingNotches {
		if n == r && i < len(ratingNotches)-1 {
			return ratingNotches[i+1]
		}
	}
	return "D"
}

// amortizedPayment is the standard fixed-payment formula.
func amortizedPayment(principal, rateBps float64, months int) float64 {
	if months <= 0 {
		return principal
	}
	r := rateBps / 10000.0 / 12.0
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}

// IssueLoan draws an amortized loan. Rejected without state change when the
// post-draw debt would exceed the credit limit.
func (w *World) IssueLoan(company ecs.Entity, principal float64, months int) (*Loan, error) {
	fin := w.Finances.Get(company)
	if fin == nil {
		return nil, ErrNotACompany
	}
	if principal <= 0 || months <= 0 {
		return nil, fmt.Errorf("invalid loan terms")
	}
	if fin.Debt+principal > fin.CreditLimit {
		return nil, ErrOverCreditLimit
	}

	rate := w.CentralRateBps() + creditSpreadBps(fin.CreditRating) + float64(months)/12.0*termPremiumPerYear
	led := w.Ledger(company)
	led.NextLoanID++
	loan := Loan{
		ID:         led.NextLoanID,
		Principal:  principal,
		Remaining:  principal,
		RateBps:    rate,
		Payment:    amortizedPayment(principal, rate, months),
		MonthsLeft: months,
		IssuedTick: w.Tick,
	}
	led.Loans = append(led.Loans, loan)

	// Loan draws are capital movements: cash and debt move together, the
	// P&L only sees the interest portion of later payments.
	fin.Cash += principal
	fin.Debt += principal
	return &led.Loans[len(led.Loans)-1], nil
}

// PrepayLoan pays down a loan's remaining balance early. Rejected when cash
// cannot cover the amount.
func (w *World) PrepayLoan(company ecs.Entity, loanID int, amount float64) error {
	fin := w.Finances.Get(company)
	if fin == nil {
		return ErrNotACompany
	}
	led := w.Ledger(company)
	for i := range led.Loans {
		loan := &led.Loans[i]
		if loan.ID != loanID {
			continue
		}
		pay := min(amount, loan.Remaining)
		if pay <= 0 {
			return fmt.Errorf("invalid prepayment")
		}
		if fin.Cash < pay {
			return ErrInsufficientCash
		}
		fin.Cash -= pay
		fin.Debt = math.Max(0, fin.Debt-pay)
		loan.Remaining -= pay
		if loan.Remaining <= 0.01 {
			led.Loans = append(led.Loans[:i], led.Loans[i+1:]...)
		} else {
			loan.Payment = amortizedPayment(loan.Remaining, loan.RateBps, loan.MonthsLeft)
		}
		return nil
	}
	return ErrNoSuchLoan
}

// IssueCorporateBond places a bond issue. Requires credit rating ≥ 60 and
// post-issuance debt within half of market cap; the issue prices below face
// in proportion to credit risk.
func (w *World) IssueCorporateBond(company ecs.Entity, face float64, months int) (*Bond, error) {
	fin := w.Finances.Get(company)
	co := w.Companies.Get(company)
	if fin == nil || co == nil {
		return nil, ErrNotACompany
	}
	if face <= 0 || months <= 0 {
		return nil, fmt.Errorf("invalid bond terms")
	}
	if fin.CreditRating < bondRatingFloor {
		return nil, ErrRatingTooLow
	}
	if fin.Debt+face > co.MarketCap*bondLeverageCap {
		return nil, ErrOverLeverage
	}

	coupon := w.CentralRateBps() + creditSpreadBps(fin.CreditRating)*0.8
	discount := (100 - fin.CreditRating) / 100.0 * 0.2
	led := w.Ledger(company)
	led.NextBondID++
	bond := Bond{
		ID:         led.NextBondID,
		Face:       face,
		CouponBps:  coupon,
		IssuePrice: face * (1 - discount),
		Maturity:   months,
		MonthsLeft: months,
		Rating:     letterRating(fin.CreditRating),
	}
	led.Bonds = append(led.Bonds, bond)

	fin.Cash += bond.IssuePrice
	fin.Debt += face
	w.PushNews("finance", fmt.Sprintf("%s issues $%s in %s-rated bonds",
		co.Name, humanize.CommafWithDigits(face, 0), bond.Rating))
	return &led.Bonds[len(led.Bonds)-1], nil
}

// Summary builds the financial read-model for a company.
func (w *World) Summary(company ecs.Entity) (FinancialSummary, error) {
	fin := w.Finances.Get(company)
	co := w.Companies.Get(company)
	if fin == nil || co == nil {
		return FinancialSummary{}, ErrNotACompany
	}
	led := w.Ledger(company)
	return FinancialSummary{
		Cash:         fin.Cash,
		Debt:         fin.Debt,
		CreditLimit:  fin.CreditLimit,
		CreditRating: fin.CreditRating,
		InterestBps:  fin.InterestBps,
		Revenue:      co.RevenueLastMonth,
		Expenses:     co.ExpensesLastMonth,
		NetIncome:    co.NetIncomeLastMonth,
		LoanCount:    len(led.Loans),
		BondCount:    len(led.Bonds),
		MarketCap:    co.MarketCap,
	}, nil
}

// financeDaily charges building maintenance, derived from base upkeep and
// level when not explicitly set.
func (w *World) financeDaily() {
	w.Buildings.Each(func(e ecs.Entity, b *Building) {
		cost := b.Maintenance
		if cost <= 0 {
			bt := w.Catalog.BuildingOrDefault(b.TypeID)
			cost = bt.BaseUpkeep * (1 + 0.3*float64(b.Level-1))
		}
		w.chargeBuilding(e, cost)
	})
}

// financeMonthly runs the roll-up and all monthly debt mechanics.
func (w *World) financeMonthly() {
	for _, company := range w.CompanyList {
		co := w.Companies.Get(company)
		fin := w.Finances.Get(company)
		if co == nil || fin == nil {
			continue
		}
		w.rollupCompany(company, co)
		w.serviceCreditLine(co, fin)
		w.serviceLoans(company, co, fin)
		w.serviceBonds(company, co, fin)
		w.updateCreditStanding(co, fin)
		w.payDividend(company, co, fin)
	}
}

// rollupCompany folds building accumulators and company-level items into
// the monthly P&L, then zeroes them. After this, net income always equals
// revenue minus expenses.
func (w *World) rollupCompany(company ecs.Entity, co *Company) {
	rev := co.DirectRevenueAcc
	exp := co.DirectExpenseAcc
	w.Buildings.Each(func(_ ecs.Entity, b *Building) {
		if b.OwnerRef != company {
			return
		}
		rev += b.RevenueAcc
		exp += b.ExpenseAcc
		b.RevenueAcc = 0
		b.ExpenseAcc = 0
	})
	co.RevenueLastMonth = rev
	co.ExpensesLastMonth = exp
	co.NetIncomeLastMonth = rev - exp
	co.DirectRevenueAcc = 0
	co.DirectExpenseAcc = 0
}

// serviceCreditLine prices negative cash balances as short-term borrowing.
func (w *World) serviceCreditLine(co *Company, fin *Finances) {
	if fin.Cash >= 0 {
		return
	}
	rate := math.Max(fin.InterestBps, w.CentralRateBps()+100)
	interest := -fin.Cash * rate / 10000.0 / 12.0
	fin.Cash -= interest
	co.DirectExpenseAcc += interest
}

// serviceLoans makes each loan's fixed monthly payment. A missed payment is
// skipped (not defaulted) at a 5-point rating cost.
func (w *World) serviceLoans(company ecs.Entity, co *Company, fin *Finances) {
	led := w.Ledger(company)
	kept := led.Loans[:0]
	for _, loan := range led.Loans {
		if loan.MonthsLeft <= 0 || loan.Remaining <= 0.01 {
			continue
		}
		if fin.Cash < loan.Payment {
			fin.CreditRating = ecs.Clamp100(fin.CreditRating - missedLoanPenalty)
			w.Notify(Notification{Kind: "loan_missed", Company: company,
				Text: co.Name + " missed a loan payment"})
			kept = append(kept, loan)
			continue
		}
		interest := loan.Remaining * loan.RateBps / 10000.0 / 12.0
		principal := loan.Payment - interest

		fin.Cash -= loan.Payment
		co.DirectExpenseAcc += interest
		fin.Debt = math.Max(0, fin.Debt-principal)

		loan.Remaining -= principal
		loan.MonthsLeft--
		if loan.Remaining > 0.01 && loan.MonthsLeft > 0 {
			kept = append(kept, loan)
		}
	}
	led.Loans = kept
}

// serviceBonds pays coupons and handles maturities. Inability to repay face
// at maturity is the one terminal financial event: rating collapse, bond
// marked defaulted and retained.
func (w *World) serviceBonds(company ecs.Entity, co *Company, fin *Finances) {
	led := w.Ledger(company)
	kept := led.Bonds[:0]
	for _, bond := range led.Bonds {
		if bond.Defaulted {
			kept = append(kept, bond)
			continue
		}
		coupon := bond.Face * bond.CouponBps / 10000.0 / 12.0
		if fin.Cash < coupon {
			fin.CreditRating = ecs.Clamp100(fin.CreditRating - missedCouponPenalty)
			bond.Rating = downgradeNotch(bond.Rating)
			w.Notify(Notification{Kind: "coupon_missed", Company: company,
				Text: co.Name + " missed a bond coupon"})
		} else {
			fin.Cash -= coupon
			co.DirectExpenseAcc += coupon
		}

		bond.MonthsLeft--
		if bond.MonthsLeft > 0 {
			kept = append(kept, bond)
			continue
		}

		// Maturity.
		if fin.Cash >= bond.Face {
			fin.Cash -= bond.Face
			fin.Debt = math.Max(0, fin.Debt-bond.Face)
			continue // repaid, bond retired
		}
		bond.Defaulted = true
		bond.Rating = "D"
		fin.CreditRating = ecs.Clamp100(fin.CreditRating - bondDefaultPenalty)
		w.PushNews("finance", co.Name+" defaults on a maturing bond")
		w.Notify(Notification{Kind: "bond_default", Company: company,
			Text: co.Name + " failed to repay a maturing bond"})
		kept = append(kept, bond)
	}
	led.Bonds = kept
}

// updateCreditStanding relaxes the company rate, rating, and credit limit.
func (w *World) updateCreditStanding(co *Company, fin *Finances) {
	// Over-limit debt pays a penalty spread; healthy balances drift the
	// rate back toward central + rating spread.
	if fin.Debt > fin.CreditLimit {
		fin.InterestBps = math.Min(fin.InterestBps+overLimitPenaltyBps, rateCapBps)
	} else {
		base := w.CentralRateBps() + creditSpreadBps(fin.CreditRating)
		fin.InterestBps += (base - fin.InterestBps) * 0.25
	}

	// Rating target from liquidity and profitability.
	ratingTarget := 50.0
	if fin.CreditLimit > 0 {
		ratingTarget += ecs.Clamp(fin.Cash/fin.CreditLimit*25, -40, 40)
	}
	if co.RevenueLastMonth > 0 {
		margin := co.NetIncomeLastMonth / co.RevenueLastMonth
		ratingTarget += ecs.Clamp(margin*100, -25, 25)
	}
	fin.CreditRating += (ecs.Clamp100(ratingTarget) - fin.CreditRating) * ratingDrift
	fin.CreditRating = ecs.Clamp100(fin.CreditRating)

	// Limit follows market cap and rating.
	ratingFactor := 0.8 + fin.CreditRating/100.0*0.4
	limitTarget := math.Max(co.MarketCap*0.10, fin.CreditLimit*ratingFactor)
	fin.CreditLimit += (limitTarget - fin.CreditLimit) * limitDrift
}

// payDividend pays the configured monthly dividend, force-cutting it when
// unaffordable.
func (w *World) payDividend(company ecs.Entity, co *Company, fin *Finances) {
	st := w.Stocks.Get(company)
	if st == nil || st.DividendBps <= 0 {
		return
	}
	amount := st.Price * st.DividendBps / 10000.0 * st.Shares
	if amount <= 0 {
		return
	}
	if fin.Cash < amount {
		st.DividendBps = 0
		w.PushNews("finance", co.Name+" cuts its dividend")
		w.Notify(Notification{Kind: "dividend_cut", Company: company,
			Text: co.Name + " suspended its dividend"})
		return
	}
	fin.Cash -= amount
	co.DirectExpenseAcc += amount
}
