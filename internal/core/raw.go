package core

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is a source row before type coercion. Every field is kept as
// text so that file, sheet and database sources share one preparation path.
type RawRecord struct {
	Period                  string `csv:"periodo" db:"periodo"`
	CompanyCode             string `csv:"cod_cia" db:"cod_cia"`
	CompanyName             string `csv:"nombre_corto" db:"nombre_corto"`
	Ramo                    string `csv:"ramo_nombre_corto" db:"ramo_nombre_corto"`
	Subramo                 string `csv:"subramo_nombre_corto" db:"subramo_nombre_corto"`
	PremiumsWritten         string `csv:"primas_emitidas" db:"primas_emitidas"`
	PremiumsEarned          string `csv:"primas_devengadas" db:"primas_devengadas"`
	ClaimsIncurred          string `csv:"siniestros_devengados" db:"siniestros_devengados"`
	ExpensesIncurred        string `csv:"gastos_devengados" db:"gastos_devengados"`
	PremiumsWrittenCurrent  string `csv:"primas_emitidas_current" db:"primas_emitidas_current"`
	PremiumsEarnedCurrent   string `csv:"primas_devengadas_current" db:"primas_devengadas_current"`
	ClaimsIncurredCurrent   string `csv:"siniestros_devengados_current" db:"siniestros_devengados_current"`
	ExpensesIncurredCurrent string `csv:"gastos_devengados_current" db:"gastos_devengados_current"`
}

// RawTable is what a source hands back: the header it actually carried and
// its rows.
type RawTable struct {
	Header  []string
	Records []RawRecord
}

// SourceColumns lists every physical column of the records table, in the
// order used when writing.
var SourceColumns = []string{
	ColPeriod,
	string(DimCompanyCode),
	string(DimCompanyName),
	string(DimRamo),
	string(DimSubramo),
	"primas_emitidas",
	"primas_devengadas",
	"siniestros_devengados",
	"gastos_devengados",
	"primas_emitidas_current",
	"primas_devengadas_current",
	"siniestros_devengados_current",
	"gastos_devengados_current",
}

// Set assigns a value by physical column name. Unknown columns are ignored
// and reported as false.
func (r *RawRecord) Set(column, value string) bool {
	switch strings.TrimSpace(strings.ToLower(column)) {
	case "periodo":
		r.Period = value
	case "cod_cia":
		r.CompanyCode = value
	case "nombre_corto":
		r.CompanyName = value
	case "ramo_nombre_corto":
		r.Ramo = value
	case "subramo_nombre_corto":
		r.Subramo = value
	case "primas_emitidas":
		r.PremiumsWritten = value
	case "primas_devengadas":
		r.PremiumsEarned = value
	case "siniestros_devengados":
		r.ClaimsIncurred = value
	case "gastos_devengados":
		r.ExpensesIncurred = value
	case "primas_emitidas_current":
		r.PremiumsWrittenCurrent = value
	case "primas_devengadas_current":
		r.PremiumsEarnedCurrent = value
	case "siniestros_devengados_current":
		r.ClaimsIncurredCurrent = value
	case "gastos_devengados_current":
		r.ExpensesIncurredCurrent = value
	default:
		return false
	}
	return true
}

// Values returns the fields in SourceColumns order.
func (r RawRecord) Values() []string {
	return []string{
		r.Period, r.CompanyCode, r.CompanyName, r.Ramo, r.Subramo,
		r.PremiumsWritten, r.PremiumsEarned, r.ClaimsIncurred, r.ExpensesIncurred,
		r.PremiumsWrittenCurrent, r.PremiumsEarnedCurrent, r.ClaimsIncurredCurrent, r.ExpensesIncurredCurrent,
	}
}

// Prepare derives year and quarter, coerces metrics and fills the company
// name. Only a malformed period is an error.
func (r RawRecord) Prepare() (Record, error) {
	year, quarter, err := ParsePeriod(r.Period)
	if err != nil {
		return Record{}, err
	}
	name := strings.TrimSpace(r.CompanyName)
	if name == "" {
		name = UnnamedCompany
	}
	return Record{
		Period:      strings.TrimSpace(r.Period),
		Year:        year,
		Quarter:     quarter,
		CompanyCode: strings.TrimSpace(r.CompanyCode),
		CompanyName: name,
		Ramo:        strings.TrimSpace(r.Ramo),
		Subramo:     strings.TrimSpace(r.Subramo),
		Accumulated: Amounts{
			PremiumsWritten:  ParseAmount(r.PremiumsWritten),
			PremiumsEarned:   ParseAmount(r.PremiumsEarned),
			ClaimsIncurred:   ParseAmount(r.ClaimsIncurred),
			ExpensesIncurred: ParseAmount(r.ExpensesIncurred),
		},
		Current: Amounts{
			PremiumsWritten:  ParseAmount(r.PremiumsWrittenCurrent),
			PremiumsEarned:   ParseAmount(r.PremiumsEarnedCurrent),
			ClaimsIncurred:   ParseAmount(r.ClaimsIncurredCurrent),
			ExpensesIncurred: ParseAmount(r.ExpensesIncurredCurrent),
		},
	}, nil
}

// Quarters is the fixed set of quarter codes.
var Quarters = []string{"01", "02", "03", "04"}

// ParsePeriod splits a YYYYQQ code. Numeric sources sometimes render the
// code as a float, so a trailing ".0" is tolerated.
func ParsePeriod(code string) (int, string, error) {
	s := strings.TrimSpace(code)
	s = strings.TrimSuffix(s, ".0")
	if len(s) != 6 {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, code)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, code)
	}
	quarter := s[4:]
	if !IsQuarter(quarter) {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidPeriod, code)
	}
	return year, quarter, nil
}

// IsQuarter reports whether q is one of the four quarter codes.
func IsQuarter(q string) bool {
	for _, v := range Quarters {
		if v == q {
			return true
		}
	}
	return false
}

// Schema records which physical columns a source actually carried.
type Schema struct {
	columns map[string]bool
}

// NewSchema builds a schema from a header row.
func NewSchema(header []string) Schema {
	s := Schema{columns: make(map[string]bool, len(header))}
	for _, h := range header {
		s.columns[strings.TrimSpace(strings.ToLower(h))] = true
	}
	return s
}

// FullSchema is the schema of a source carrying every column.
func FullSchema() Schema {
	return NewSchema(SourceColumns)
}

// HasColumn reports whether the physical column was present.
func (s Schema) HasColumn(name string) bool {
	return s.columns[name]
}

// HasDimension reports whether the categorical column was present.
func (s Schema) HasDimension(d Dimension) bool {
	return s.columns[string(d)]
}

// HasMetric reports whether the metric column for the mode was present.
func (s Schema) HasMetric(m Metric, mode ViewMode) bool {
	return s.columns[m.Column(mode)]
}

// Metrics returns the canonical metrics whose column for mode was present.
func (s Schema) Metrics(mode ViewMode) []Metric {
	var out []Metric
	for _, m := range AllMetrics {
		if s.HasMetric(m, mode) {
			out = append(out, m)
		}
	}
	return out
}
