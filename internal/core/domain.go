package core

import (
	"errors"
	"strings"
)

const (
	Accumulated ViewMode = "accumulated"
	Current     ViewMode = "current"
)

const (
	PremiumsWritten  Metric = "primas_emitidas"
	PremiumsEarned   Metric = "primas_devengadas"
	ClaimsIncurred   Metric = "siniestros_devengados"
	ExpensesIncurred Metric = "gastos_devengados"
)

const (
	DimCompanyCode Dimension = "cod_cia"
	DimCompanyName Dimension = "nombre_corto"
	DimRamo        Dimension = "ramo_nombre_corto"
	DimSubramo     Dimension = "subramo_nombre_corto"
)

// Physical column names of the source table that are not metrics.
const (
	ColPeriod = "periodo"
)

// UnnamedCompany replaces a missing company name during preparation.
const UnnamedCompany = "Sin nombre"

// OthersLabel is the synthetic category for long-tail rows.
const OthersLabel = "Otros"

type (
	// ViewMode selects which physical metric columns are read.
	ViewMode string

	// Metric is a canonical metric column name.
	Metric string

	// Dimension is a categorical grouping column.
	Dimension string

	// Amounts carries the four metric values of a row.
	Amounts struct {
		PremiumsWritten  float64 `json:"primas_emitidas"`
		PremiumsEarned   float64 `json:"primas_devengadas"`
		ClaimsIncurred   float64 `json:"siniestros_devengados"`
		ExpensesIncurred float64 `json:"gastos_devengados"`
	}

	// Record is one prepared row: company x ramo x subramo x period.
	Record struct {
		Period      string
		Year        int
		Quarter     string
		CompanyCode string
		CompanyName string
		Ramo        string
		Subramo     string
		Accumulated Amounts
		Current     Amounts
	}
)

var (
	ErrInvalidPeriod = errors.New("invalid period code")
	ErrMissingPeriod = errors.New("source has no periodo column")
)

// AllMetrics lists the canonical metrics in display order.
var AllMetrics = []Metric{PremiumsWritten, PremiumsEarned, ClaimsIncurred, ExpensesIncurred}

// AllDimensions lists the categorical columns a record carries.
var AllDimensions = []Dimension{DimCompanyCode, DimCompanyName, DimRamo, DimSubramo}

// Fixed grouping sets.
var (
	ByCompany        = []Dimension{DimCompanyCode, DimCompanyName}
	ByCompanyRamo    = []Dimension{DimCompanyCode, DimCompanyName, DimRamo}
	ByCompanySubramo = []Dimension{DimCompanyCode, DimCompanyName, DimSubramo}
	ByRamo           = []Dimension{DimRamo}
	BySubramo        = []Dimension{DimSubramo}
)

// metricColumns maps a canonical metric to its accumulated and current columns.
var metricColumns = map[Metric][2]string{
	PremiumsWritten:  {"primas_emitidas", "primas_emitidas_current"},
	PremiumsEarned:   {"primas_devengadas", "primas_devengadas_current"},
	ClaimsIncurred:   {"siniestros_devengados", "siniestros_devengados_current"},
	ExpensesIncurred: {"gastos_devengados", "gastos_devengados_current"},
}

// ParseViewMode accepts "current"; anything else is accumulated.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(strings.TrimSpace(s), string(Current)) {
		return Current
	}
	return Accumulated
}

func (v ViewMode) String() string { return string(v) }

// Valid reports whether m is one of the four canonical metrics.
func (m Metric) Valid() bool {
	_, ok := metricColumns[m]
	return ok
}

// Column returns the physical column holding m for the given view mode.
func (m Metric) Column(mode ViewMode) string {
	cols, ok := metricColumns[m]
	if !ok {
		return ""
	}
	if mode == Current {
		return cols[1]
	}
	return cols[0]
}

// Valid reports whether d is a known categorical column.
func (d Dimension) Valid() bool {
	switch d {
	case DimCompanyCode, DimCompanyName, DimRamo, DimSubramo:
		return true
	}
	return false
}

// Get returns the value of metric m.
func (a Amounts) Get(m Metric) float64 {
	switch m {
	case PremiumsWritten:
		return a.PremiumsWritten
	case PremiumsEarned:
		return a.PremiumsEarned
	case ClaimsIncurred:
		return a.ClaimsIncurred
	case ExpensesIncurred:
		return a.ExpensesIncurred
	}
	return 0
}

// Add returns the element-wise sum of a and o.
func (a Amounts) Add(o Amounts) Amounts {
	return Amounts{
		PremiumsWritten:  a.PremiumsWritten + o.PremiumsWritten,
		PremiumsEarned:   a.PremiumsEarned + o.PremiumsEarned,
		ClaimsIncurred:   a.ClaimsIncurred + o.ClaimsIncurred,
		ExpensesIncurred: a.ExpensesIncurred + o.ExpensesIncurred,
	}
}

// Only zeroes every metric not listed.
func (a Amounts) Only(metrics []Metric) Amounts {
	var out Amounts
	for _, m := range metrics {
		switch m {
		case PremiumsWritten:
			out.PremiumsWritten = a.PremiumsWritten
		case PremiumsEarned:
			out.PremiumsEarned = a.PremiumsEarned
		case ClaimsIncurred:
			out.ClaimsIncurred = a.ClaimsIncurred
		case ExpensesIncurred:
			out.ExpensesIncurred = a.ExpensesIncurred
		}
	}
	return out
}

// Amounts returns the metric values for the view mode. Current mode never
// reads the accumulated values and vice versa.
func (r Record) Amounts(mode ViewMode) Amounts {
	if mode == Current {
		return r.Current
	}
	return r.Accumulated
}

// Label returns the value of a categorical column.
func (r Record) Label(d Dimension) string {
	switch d {
	case DimCompanyCode:
		return r.CompanyCode
	case DimCompanyName:
		return r.CompanyName
	case DimRamo:
		return r.Ramo
	case DimSubramo:
		return r.Subramo
	}
	return ""
}
