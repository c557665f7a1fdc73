package analytics

import (
	"seguros/internal/core"
)

// Totals sums each metric for the view mode and counts distinct company
// codes. Columns the source did not carry total 0.
func Totals(rs Records, mode core.ViewMode) core.Totals {
	present := rs.Schema.Metrics(mode)
	var sum core.Amounts
	for _, r := range rs.Rows {
		sum = sum.Add(r.Amounts(mode))
	}
	sum = sum.Only(present)

	out := core.Totals{
		PremiumsWritten:  sum.PremiumsWritten,
		PremiumsEarned:   sum.PremiumsEarned,
		ClaimsIncurred:   sum.ClaimsIncurred,
		ExpensesIncurred: sum.ExpensesIncurred,
	}
	if rs.Schema.HasDimension(core.DimCompanyCode) {
		codes := make(map[string]struct{})
		for _, r := range rs.Rows {
			codes[r.CompanyCode] = struct{}{}
		}
		out.EntityCount = len(codes)
	}
	return out
}
