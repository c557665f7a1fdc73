package analytics

import (
	"seguros/internal/core"
)

// LossRatio is claims over earned premiums, in percent. Zero earned
// premiums give 0.
func LossRatio(a core.Amounts) float64 {
	return percentOfEarned(a.ClaimsIncurred, a.PremiumsEarned)
}

// ExpenseRatio is expenses over earned premiums, in percent.
func ExpenseRatio(a core.Amounts) float64 {
	return percentOfEarned(a.ExpensesIncurred, a.PremiumsEarned)
}

// CombinedRatio is the loss ratio plus the expense ratio.
func CombinedRatio(a core.Amounts) float64 {
	return core.Round2(LossRatio(a) + ExpenseRatio(a))
}

// RatiosOf computes all three ratios.
func RatiosOf(a core.Amounts) core.Ratios {
	return core.Ratios{
		LossRatio:     LossRatio(a),
		ExpenseRatio:  ExpenseRatio(a),
		CombinedRatio: CombinedRatio(a),
	}
}

// TotalsRatios computes the ratios of a KPI summary.
func TotalsRatios(t core.Totals) core.Ratios {
	return RatiosOf(core.Amounts{
		PremiumsWritten:  t.PremiumsWritten,
		PremiumsEarned:   t.PremiumsEarned,
		ClaimsIncurred:   t.ClaimsIncurred,
		ExpensesIncurred: t.ExpensesIncurred,
	})
}

// RatioRow is a table row with its ratios.
type RatioRow struct {
	Row
	core.Ratios
}

// WithRatios computes the ratios of every row.
func WithRatios(t Table) []RatioRow {
	out := make([]RatioRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = RatioRow{Row: r.clone(), Ratios: RatiosOf(r.Values)}
	}
	return out
}

func percentOfEarned(v, earned float64) float64 {
	if earned == 0 {
		return 0
	}
	return core.Round2(v / earned * 100)
}
