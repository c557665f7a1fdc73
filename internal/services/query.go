package services

import (
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"seguros/internal/analytics"
	"seguros/internal/core"
)

// Query is the set of filters shared by every market read.
type Query struct {
	Year      *int
	Quarter   string
	Ramo      string
	Companies []string
	ViewMode  core.ViewMode
}

// Normalize trims every value, drops blank company names and defaults the
// view mode to accumulated.
func (q Query) Normalize() Query {
	out := Query{
		Year:     q.Year,
		Quarter:  strings.TrimSpace(q.Quarter),
		Ramo:     strings.TrimSpace(q.Ramo),
		ViewMode: core.ParseViewMode(string(q.ViewMode)),
	}
	for _, c := range q.Companies {
		if c = strings.TrimSpace(c); c != "" {
			out.Companies = append(out.Companies, c)
		}
	}
	return out
}

// Filter converts the query to the analytics filter.
func (q Query) Filter() analytics.Filter {
	return analytics.Filter{
		Year:      q.Year,
		Quarter:   q.Quarter,
		Ramo:      q.Ramo,
		Companies: q.Companies,
	}
}

// Key identifies the query for caching. Company order does not matter.
// Fields are JSON encoded so separators inside names cannot collide.
func (q Query) Key() string {
	companies := slices.Clone(q.Companies)
	slices.Sort(companies)
	b, _ := json.Marshal(struct {
		Year      *int          `json:"y"`
		Quarter   string        `json:"q"`
		Ramo      string        `json:"r"`
		Companies []string      `json:"c"`
		ViewMode  core.ViewMode `json:"v"`
	}{q.Year, q.Quarter, q.Ramo, slices.Compact(companies), q.ViewMode})
	return string(b)
}

// YearValue returns the selected year, or 0 when none is set.
func (q Query) YearValue() int {
	if q.Year == nil {
		return 0
	}
	return *q.Year
}

// PeriodLabel is "2024 - Marzo (Q3)" when both year and quarter are set.
func (q Query) PeriodLabel() string {
	if q.Year == nil || q.Quarter == "" {
		return "Todos los períodos"
	}
	return strconv.Itoa(*q.Year) + " - " + core.QuarterLabel(q.Quarter)
}

// ViewModeLabel describes the view mode for the dashboard header.
func (q Query) ViewModeLabel() string {
	if q.ViewMode == core.Current {
		return "Datos del Período Corriente"
	}
	return "Datos Acumulados"
}

// ClampTopN bounds a requested ranking size to 1..MaxTopN; non-positive
// values use the default.
func ClampTopN(n int) int {
	switch {
	case n <= 0:
		return core.DefaultTopN
	case n > MaxTopN:
		return MaxTopN
	}
	return n
}

// MaxTopN is the largest ranking the API serves.
const MaxTopN = 100
