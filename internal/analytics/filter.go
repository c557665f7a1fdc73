package analytics

import (
	"seguros/internal/core"
)

// Filter narrows records by year, quarter, ramo and company names. Zero
// fields pass every row; set fields combine with AND.
type Filter struct {
	Year      *int
	Quarter   string
	Ramo      string
	Companies []string
}

// IsZero reports whether the filter passes every row.
func (f Filter) IsZero() bool {
	return f.Year == nil && f.Quarter == "" && f.Ramo == "" && len(f.Companies) == 0
}

// Match reports whether a single record passes the filter.
func (f Filter) Match(r core.Record) bool {
	if f.Year != nil && r.Year != *f.Year {
		return false
	}
	if f.Quarter != "" && r.Quarter != f.Quarter {
		return false
	}
	if f.Ramo != "" && r.Ramo != f.Ramo {
		return false
	}
	if len(f.Companies) > 0 {
		found := false
		for _, c := range f.Companies {
			if r.CompanyName == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the matching rows as a new view. The input is not modified.
func (f Filter) Apply(rs Records) Records {
	out := Records{Schema: rs.Schema, Rows: make([]core.Record, 0, len(rs.Rows))}
	if f.IsZero() {
		out.Rows = append(out.Rows, rs.Rows...)
		return out
	}
	for _, r := range rs.Rows {
		if f.Match(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
