package sim

// AdvanceTick advances the world by exactly one tick. Sub-tick granularity
// does nothing on its own; all economic work happens on day and month
// boundaries, in a fixed pass order so every subsystem sees a consistent
// view of what ran before it:
//
//	macro → production/logistics → retail → finance → AI →
//	technology → marketing → valuation → staffing
//
// Technology must precede marketing and valuation (both read the alert map
// written this tick), and staffing runs last so strikes gate the following
// day's production rather than retroactively voiding today's.
func (w *World) AdvanceTick() {
	w.Tick++

	if w.Tick%TicksPerDay != 0 {
		return
	}
	monthly := w.Tick%TicksPerMonth == 0

	w.macroDaily()
	if monthly {
		w.macroMonthly()
	}

	w.productionDaily()
	w.logisticsDaily()

	w.retailDaily()
	if monthly {
		w.retailMonthly()
	}

	w.financeDaily()
	if monthly {
		w.financeMonthly()
	}

	w.aiPass()

	w.techDaily()
	if monthly {
		w.techMonthly()
	}

	w.marketingDaily()
	if monthly {
		w.marketingMonthly()
	}

	w.valuationDaily()
	if monthly {
		w.valuationMonthly()
	}

	w.hrDaily()
}

// AdvanceDays runs whole simulated days, mainly for tests and fast-forward.
func (w *World) AdvanceDays(days int) {
	for i := 0; i < days*TicksPerDay; i++ {
		w.AdvanceTick()
	}
}
