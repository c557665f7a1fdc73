package core

// Totals is the KPI summary of a filtered table.
type Totals struct {
	PremiumsWritten  float64 `json:"primas_emitidas"`
	PremiumsEarned   float64 `json:"primas_devengadas"`
	ClaimsIncurred   float64 `json:"siniestros_devengados"`
	ExpensesIncurred float64 `json:"gastos_devengados"`
	EntityCount      int     `json:"entities_count"`
}

// Ratios are the standard insurance ratios, in percent.
type Ratios struct {
	LossRatio     float64 `json:"siniestralidad"`
	ExpenseRatio  float64 `json:"ratio_gastos"`
	CombinedRatio float64 `json:"combined_ratio"`
}

// DistributionItem is one slice of a distribution chart.
type DistributionItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Distribution is a category breakdown with its grand total.
type Distribution struct {
	Items []DistributionItem `json:"items"`
	Total float64            `json:"total"`
}

// RankingItem is one bar segment of the company ranking chart.
type RankingItem struct {
	CompanyName     string  `json:"nombre_corto"`
	Ramo            string  `json:"ramo_nombre_corto,omitempty"`
	Subramo         string  `json:"subramo_nombre_corto,omitempty"`
	PremiumsWritten float64 `json:"primas_emitidas"`
}

// Ranking is the top-N company breakdown. Total counts companies before
// truncation.
type Ranking struct {
	Companies []RankingItem `json:"companies"`
	Total     int           `json:"total"`
}

// CompanyRatios pairs a company with its ratios and premiums.
type CompanyRatios struct {
	CompanyName     string  `json:"nombre_corto"`
	PremiumsWritten float64 `json:"primas_emitidas"`
	MarketShare     float64 `json:"market_share"`
	Rank            int     `json:"ranking"`
	Ratios
}

// FilterOptions are the values offered by the filter controls.
type FilterOptions struct {
	Years     []string `json:"years"`
	Quarters  []string `json:"quarters"`
	Ramos     []string `json:"ramos"`
	Subramos  []string `json:"subramos,omitempty"`
	Companies []string `json:"companies"`
}

// QuarterLabel returns the display label of a quarter code.
func QuarterLabel(code string) string {
	switch code {
	case "01":
		return "Marzo (Q3)"
	case "02":
		return "Junio (Q4)"
	case "03":
		return "Septiembre (Q1)"
	case "04":
		return "Diciembre (Q2)"
	}
	return code
}

// TopNOptions are the ranking sizes offered by the dashboard.
var TopNOptions = []int{10, 15, 20, 50}

// DefaultTopN is the ranking size used when none is requested.
const DefaultTopN = 15
